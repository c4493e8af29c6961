package connections

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stillharbor/anchorage/internal/embedding"
	"github.com/stillharbor/anchorage/internal/segments"
	"github.com/stillharbor/anchorage/internal/vectors"
)

// Outcome is the result of re-anchoring a document's validated
// connections against a new generation. Every input edge appears in
// exactly one bucket.
type Outcome struct {
	Resolved    int           `json:"resolved"`
	NeedsReview int           `json:"needs_review"`
	Lost        int           `json:"lost"`
	Items       []ItemOutcome `json:"items"`
}

// ItemOutcome records one connection's recovery classification.
// SuccessorID is set when a remapped edge was inserted.
type ItemOutcome struct {
	ConnectionID     uuid.UUID  `json:"connection_id"`
	SuccessorID      *uuid.UUID `json:"successor_id"`
	Status           string     `json:"status"`
	SourceSimilarity *float64   `json:"source_similarity"`
	TargetSimilarity *float64   `json:"target_similarity"`
}

// endpoint is one side's remapping decision.
type endpoint struct {
	segmentID  uuid.UUID
	similarity float64
	failed     bool
}

// Engine remaps validated connections after a document's segmentation is
// regenerated. Endpoints on the unedited side are carried over unchanged
// with similarity 1.0; endpoints on the edited side are resolved by top-1
// cosine search over the new generation's embeddings. Classification uses
// the minimum similarity across both endpoints.
type Engine struct {
	sys      System
	segs     segments.System
	embedder embedding.Embedder
	accept   float64
	review   float64
	workers  int
	logger   *slog.Logger
}

// NewEngine creates a recovery engine over the connection system.
func NewEngine(
	sys System,
	segs segments.System,
	embedder embedding.Embedder,
	accept, review float64,
	workers int,
	logger *slog.Logger,
) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		sys:      sys,
		segs:     segs,
		embedder: embedder,
		accept:   accept,
		review:   review,
		workers:  workers,
		logger:   logger.With("system", "connections.reanchor"),
	}
}

// Reanchor remaps every validated edge touching the edited document and
// persists the classification. Collaborator failures degrade the affected
// edge to lost; they never abort the batch.
func (e *Engine) Reanchor(
	ctx context.Context,
	conns []Connection,
	editedDocumentID uuid.UUID,
	index *vectors.Index,
) (*Outcome, error) {
	oldSegments, err := e.loadEditedSegments(ctx, conns, editedDocumentID)
	if err != nil {
		return nil, err
	}

	type decision struct {
		source endpoint
		target endpoint
	}
	decisions := make([]decision, len(conns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, c := range conns {
		g.Go(func() error {
			decisions[i] = decision{
				source: e.resolveEndpoint(gctx, c.SourceSegmentID, c.SourceDocumentID, editedDocumentID, oldSegments, index),
				target: e.resolveEndpoint(gctx, c.TargetSegmentID, c.TargetDocumentID, editedDocumentID, oldSegments, index),
			}
			return nil
		})
	}
	_ = g.Wait()

	outcome := &Outcome{Items: make([]ItemOutcome, 0, len(conns))}
	for i, c := range conns {
		d := decisions[i]
		item, err := e.apply(ctx, c, d.source, d.target)
		if err != nil {
			return nil, err
		}

		switch item.Status {
		case StatusActive:
			outcome.Resolved++
		case StatusNeedsReview:
			outcome.NeedsReview++
		default:
			outcome.Lost++
		}
		outcome.Items = append(outcome.Items, item)
	}

	e.logger.Info("connections re-anchored",
		"total", len(conns),
		"resolved", outcome.Resolved,
		"needs_review", outcome.NeedsReview,
		"lost", outcome.Lost,
	)
	return outcome, nil
}

// loadEditedSegments preloads the old-generation segments referenced by
// edited-side endpoints, so workers can reuse stored embeddings.
func (e *Engine) loadEditedSegments(
	ctx context.Context,
	conns []Connection,
	editedDocumentID uuid.UUID,
) (map[uuid.UUID]segments.Segment, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID

	add := func(segID, docID uuid.UUID) {
		if docID != editedDocumentID {
			return
		}
		if _, ok := seen[segID]; ok {
			return
		}
		seen[segID] = struct{}{}
		ids = append(ids, segID)
	}

	for _, c := range conns {
		add(c.SourceSegmentID, c.SourceDocumentID)
		add(c.TargetSegmentID, c.TargetDocumentID)
	}

	return e.segs.ByIDs(ctx, ids)
}

// resolveEndpoint decides one side's new segment reference. Unedited
// sides are preserved as-is.
func (e *Engine) resolveEndpoint(
	ctx context.Context,
	segmentID, documentID, editedDocumentID uuid.UUID,
	oldSegments map[uuid.UUID]segments.Segment,
	index *vectors.Index,
) endpoint {
	if documentID != editedDocumentID {
		return endpoint{segmentID: segmentID, similarity: 1.0}
	}

	seg, ok := oldSegments[segmentID]
	if !ok {
		e.logger.Warn("connection endpoint references missing segment", "segment_id", segmentID)
		return endpoint{segmentID: segmentID, failed: true}
	}

	vec := seg.Embedding
	if vec == nil {
		embedded, err := e.embedder.Embed(ctx, seg.Content)
		if err != nil {
			e.logger.Warn("endpoint embedding failed",
				"segment_id", segmentID,
				"error", err,
			)
			return endpoint{segmentID: segmentID, failed: true}
		}
		vec = embedded
	}

	hits, err := index.Search(ctx, vec, 1)
	if err != nil || len(hits) == 0 {
		e.logger.Warn("endpoint vector search failed",
			"segment_id", segmentID,
			"error", err,
		)
		return endpoint{segmentID: segmentID, failed: true}
	}

	return endpoint{segmentID: hits[0].SegmentID, similarity: hits[0].Similarity}
}

func (e *Engine) apply(ctx context.Context, c Connection, source, target endpoint) (ItemOutcome, error) {
	if source.failed || target.failed {
		if err := e.sys.MarkLost(ctx, c.ID, nil, nil); err != nil {
			return ItemOutcome{}, err
		}
		return ItemOutcome{ConnectionID: c.ID, Status: StatusLost}, nil
	}

	srcSim, tgtSim := source.similarity, target.similarity
	minSim := srcSim
	if tgtSim < minSim {
		minSim = tgtSim
	}

	if minSim < e.review {
		if err := e.sys.MarkLost(ctx, c.ID, &srcSim, &tgtSim); err != nil {
			return ItemOutcome{}, err
		}
		return ItemOutcome{
			ConnectionID:     c.ID,
			Status:           StatusLost,
			SourceSimilarity: &srcSim,
			TargetSimilarity: &tgtSim,
		}, nil
	}

	succ, err := e.sys.Supersede(ctx, c.ID, Successor{
		SourceSegmentID:  source.segmentID,
		TargetSegmentID:  target.segmentID,
		SourceSimilarity: srcSim,
		TargetSimilarity: tgtSim,
		Validated:        minSim >= e.accept,
	})
	if err != nil {
		return ItemOutcome{}, err
	}

	return ItemOutcome{
		ConnectionID:     c.ID,
		SuccessorID:      &succ.ID,
		Status:           succ.Status,
		SourceSimilarity: &srcSim,
		TargetSimilarity: &tgtSim,
	}, nil
}
