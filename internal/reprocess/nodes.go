package reprocess

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/internal/annotations"
	"github.com/stillharbor/anchorage/internal/connections"
	"github.com/stillharbor/anchorage/internal/documents"
	"github.com/stillharbor/anchorage/internal/segments"
	"github.com/stillharbor/anchorage/internal/vectors"
)

const keyRunState = "run_state"

// runState accumulates the working set of one reprocessing run as it
// moves through the graph. Nodes mutate it through the shared pointer in
// the state bag; activated flips once the generation swap has committed,
// after which rollback is no longer possible.
type runState struct {
	run        *Run
	doc        *documents.Document
	text       string
	pageCount  *int
	generation *segments.Generation
	segs       []segments.Segment
	index      *vectors.Index
	previous   *uuid.UUID
	activated  bool
	counts     Counts
}

func extractRunState(s state.State) (*runState, error) {
	val, ok := s.Get(keyRunState)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", keyRunState)
	}

	rs, ok := val.(*runState)
	if !ok {
		return nil, fmt.Errorf("%s is not *runState", keyRunState)
	}

	return rs, nil
}

// extractNode downloads the document's stored bytes and produces the text
// body the new generation will be cut from.
func (o *orchestrator) extractNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("extract: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageExtracting, 10, "extracting document text")

		doc, err := o.rt.Documents.Find(ctx, rs.run.DocumentID)
		if err != nil {
			return s, fmt.Errorf("extract: %w", err)
		}

		result, err := o.rt.Extractor.Extract(ctx, doc.StorageKey, doc.ContentType)
		if err != nil {
			return s, fmt.Errorf("extract: %w", err)
		}

		rs.doc = doc
		rs.text = result.Text
		rs.pageCount = result.PageCount

		o.rt.Logger.InfoContext(ctx, "extract node complete",
			"document_id", doc.ID,
			"text_bytes", len(result.Text),
		)
		return s, nil
	})
}

// segmentNode creates the pending generation and cuts it into segments.
// The old generation stays active and servable throughout.
func (o *orchestrator) segmentNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("segment: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageSegmenting, 25, "segmenting new generation")

		chunks, err := o.rt.Segmenter.Segment(ctx, rs.text)
		if err != nil {
			return s, fmt.Errorf("segment: %w", err)
		}

		gen, err := o.rt.Segments.CreateGeneration(ctx, rs.run.DocumentID, rs.text)
		if err != nil {
			return s, fmt.Errorf("segment: %w", err)
		}
		rs.generation = gen

		inputs := make([]segments.SegmentInput, 0, len(chunks))
		for _, c := range chunks {
			inputs = append(inputs, segments.SegmentInput{
				SequenceIndex: c.Index,
				StartOffset:   c.Start,
				EndOffset:     c.End,
				Content:       c.Content,
			})
		}

		segs, err := o.rt.Segments.InsertSegments(ctx, gen.ID, inputs)
		if err != nil {
			return s, fmt.Errorf("segment: %w", err)
		}
		rs.segs = segs

		o.rt.Logger.InfoContext(ctx, "segment node complete",
			"generation_id", gen.ID,
			"segments", len(segs),
		)
		return s, nil
	})
}

// embedNode embeds every new segment with bounded concurrency, persists
// the vectors, and builds the in-process index connection recovery
// searches against.
func (o *orchestrator) embedNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("embed: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageEmbedding, 45, "embedding new segments")

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.rt.Recovery.Workers)

		for i := range rs.segs {
			g.Go(func() error {
				vec, err := o.rt.Embedder.Embed(gctx, rs.segs[i].Content)
				if err != nil {
					return fmt.Errorf("segment %d: %w", rs.segs[i].SequenceIndex, err)
				}

				if err := o.rt.Segments.SetEmbedding(gctx, rs.segs[i].ID, vec); err != nil {
					return fmt.Errorf("segment %d: %w", rs.segs[i].SequenceIndex, err)
				}

				rs.segs[i].Embedding = vec
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return s, fmt.Errorf("embed: %w", err)
		}

		index, err := vectors.NewIndex(o.rt.Dimension)
		if err != nil {
			return s, fmt.Errorf("embed: %w", err)
		}
		for _, seg := range rs.segs {
			if err := index.Add(ctx, seg.ID, seg.Embedding); err != nil {
				index.Close()
				return s, fmt.Errorf("embed: %w", err)
			}
		}
		rs.index = index

		o.rt.Logger.InfoContext(ctx, "embed node complete",
			"generation_id", rs.generation.ID,
			"vectors", index.Len(),
		)
		return s, nil
	})
}

// recoverAnnotationsNode re-anchors every annotation against the new
// generation before it becomes visible to readers.
func (o *orchestrator) recoverAnnotationsNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("recover annotations: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageRecoveringAnnotations, 65, "re-anchoring annotations")

		annots, err := o.rt.Annotations.ByDocument(ctx, rs.run.DocumentID)
		if err != nil {
			return s, fmt.Errorf("recover annotations: %w", err)
		}

		engine := annotations.NewEngine(
			o.rt.Annotations,
			o.rt.Matcher,
			o.rt.Recovery.AnnotationAccept,
			o.rt.Recovery.AnnotationReview,
			o.rt.Recovery.Workers,
			o.rt.Logger,
		)

		outcome, err := engine.Reanchor(ctx, annots, rs.text, rs.segs)
		if err != nil {
			return s, fmt.Errorf("recover annotations: %w", err)
		}

		rs.counts.AnnotationsResolved = outcome.Resolved
		rs.counts.AnnotationsReview = outcome.NeedsReview
		rs.counts.AnnotationsLost = outcome.Lost

		return s, nil
	})
}

// recoverConnectionsNode remaps validated edges touching the document
// against the new generation's vector index.
func (o *orchestrator) recoverConnectionsNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("recover connections: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageRecoveringConnections, 80, "remapping connections")

		conns, err := o.rt.Connections.ValidatedByDocument(ctx, rs.run.DocumentID)
		if err != nil {
			return s, fmt.Errorf("recover connections: %w", err)
		}

		engine := connections.NewEngine(
			o.rt.Connections,
			o.rt.Segments,
			o.rt.Embedder,
			o.rt.Recovery.ConnectionAccept,
			o.rt.Recovery.ConnectionReview,
			o.rt.Recovery.Workers,
			o.rt.Logger,
		)

		outcome, err := engine.Reanchor(ctx, conns, rs.run.DocumentID, rs.index)
		if err != nil {
			return s, fmt.Errorf("recover connections: %w", err)
		}

		rs.counts.ConnectionsResolved = outcome.Resolved
		rs.counts.ConnectionsReview = outcome.NeedsReview
		rs.counts.ConnectionsLost = outcome.Lost

		return s, nil
	})
}

// activateNode commits the generation swap. Past this point rollback is
// off the table; failures in later stages leave the new generation live.
func (o *orchestrator) activateNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("activate: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageActivating, 90, "activating new generation")

		previous, err := o.rt.Segments.Activate(ctx, rs.run.DocumentID, rs.generation.ID)
		if err != nil {
			return s, fmt.Errorf("activate: %w", err)
		}

		rs.previous = previous
		rs.activated = true

		o.rt.Logger.InfoContext(ctx, "activate node complete",
			"document_id", rs.run.DocumentID,
			"generation_id", rs.generation.ID,
		)
		return s, nil
	})
}

// cleanupNode deletes the retired generation and the unvalidated
// detections stranded on it. Runs only after activation succeeded.
func (o *orchestrator) cleanupNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("cleanup: %w", err)
		}

		o.store.progress(ctx, rs.run.ID, StageCleanup, 95, "deleting old generation")

		if rs.previous != nil {
			if _, err := o.rt.Connections.PurgeUnvalidated(ctx, *rs.previous); err != nil {
				return s, fmt.Errorf("cleanup: %w", err)
			}
			if err := o.rt.Segments.DeleteGeneration(ctx, *rs.previous); err != nil {
				return s, fmt.Errorf("cleanup: %w", err)
			}
		}

		return s, nil
	})
}
