package reprocess

import (
	"log/slog"

	"github.com/stillharbor/anchorage/internal/annotations"
	"github.com/stillharbor/anchorage/internal/config"
	"github.com/stillharbor/anchorage/internal/connections"
	"github.com/stillharbor/anchorage/internal/documents"
	"github.com/stillharbor/anchorage/internal/embedding"
	"github.com/stillharbor/anchorage/internal/extraction"
	"github.com/stillharbor/anchorage/internal/segmentation"
	"github.com/stillharbor/anchorage/internal/segments"
	"github.com/stillharbor/anchorage/pkg/match"
)

// Runtime bundles the dependencies reprocessing nodes require. It is
// constructed by higher-level composition code from Infrastructure and
// the domain systems.
type Runtime struct {
	Documents   documents.System
	Segments    segments.System
	Annotations annotations.System
	Connections connections.System

	Extractor extraction.Extractor
	Segmenter segmentation.Segmenter
	Embedder  embedding.Embedder
	Matcher   *match.Matcher

	Recovery  *config.RecoveryConfig
	Dimension int
	Logger    *slog.Logger
}
