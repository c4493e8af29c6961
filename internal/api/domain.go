package api

import (
	"context"

	"github.com/stillharbor/anchorage/internal/annotations"
	"github.com/stillharbor/anchorage/internal/config"
	"github.com/stillharbor/anchorage/internal/connections"
	"github.com/stillharbor/anchorage/internal/documents"
	"github.com/stillharbor/anchorage/internal/extraction"
	"github.com/stillharbor/anchorage/internal/reprocess"
	"github.com/stillharbor/anchorage/internal/segmentation"
	"github.com/stillharbor/anchorage/internal/segments"
	"github.com/stillharbor/anchorage/pkg/match"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents   documents.System
	Segments    segments.System
	Annotations annotations.System
	Connections connections.System
	Reprocess   reprocess.System
}

// NewDomain creates all domain systems from the API runtime. The position
// matcher and the reprocessing runtime are wired here so every system
// shares the same collaborator instances.
func NewDomain(ctx context.Context, cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	segmentsSystem := segments.New(db, runtime.Logger, runtime.Pagination)
	annotationsSystem := annotations.New(db, runtime.Logger, runtime.Pagination)
	connectionsSystem := connections.New(db, runtime.Logger, runtime.Pagination)

	matcher := match.New(
		cfg.Recovery.Match,
		runtime.Embedder,
		runtime.Finder,
		runtime.Logger,
	)

	reprocessSystem := reprocess.New(ctx, db, &reprocess.Runtime{
		Documents:   docsSystem,
		Segments:    segmentsSystem,
		Annotations: annotationsSystem,
		Connections: connectionsSystem,
		Extractor:   extraction.New(runtime.Storage, runtime.Logger),
		Segmenter:   segmentation.NewChunker(0, 0),
		Embedder:    runtime.Embedder,
		Matcher:     matcher,
		Recovery:    &cfg.Recovery,
		Dimension:   cfg.Embedding.Dimension,
		Logger:      runtime.Logger,
	})

	return &Domain{
		Documents:   docsSystem,
		Segments:    segmentsSystem,
		Annotations: annotationsSystem,
		Connections: connectionsSystem,
		Reprocess:   reprocessSystem,
	}
}
