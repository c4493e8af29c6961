package annotations

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stillharbor/anchorage/internal/segments"
	"github.com/stillharbor/anchorage/pkg/match"
)

// methodCorrupt marks items that never reached the matcher because their
// stored reference data was unusable.
const methodCorrupt = "corrupt_input"

// Outcome is the result of re-anchoring a document's annotations against
// a new generation. Every input annotation appears in exactly one bucket.
type Outcome struct {
	Resolved    int           `json:"resolved"`
	NeedsReview int           `json:"needs_review"`
	Lost        int           `json:"lost"`
	Items       []ItemOutcome `json:"items"`
}

// ItemOutcome records one annotation's recovery classification.
type ItemOutcome struct {
	AnnotationID uuid.UUID    `json:"annotation_id"`
	Status       string       `json:"status"`
	Result       match.Result `json:"result"`
}

// Engine re-anchors annotations after a document's segmentation is
// regenerated. Matching runs with bounded concurrency; a failure inside
// any single item degrades that item, never the batch.
type Engine struct {
	sys     System
	matcher *match.Matcher
	accept  float64
	review  float64
	workers int
	logger  *slog.Logger
}

// NewEngine creates a recovery engine over the annotation system.
func NewEngine(
	sys System,
	matcher *match.Matcher,
	accept, review float64,
	workers int,
	logger *slog.Logger,
) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		sys:     sys,
		matcher: matcher,
		accept:  accept,
		review:  review,
		workers: workers,
		logger:  logger.With("system", "annotations.reanchor"),
	}
}

// Reanchor relocates every annotation into the new text and persists the
// classification. Items whose first matching pass lands on interpolation
// get a second pass with neighbor hints built from the items that did
// resolve, so synthetic placements interpolate between recovered
// positions rather than stale ones.
func (e *Engine) Reanchor(
	ctx context.Context,
	annots []Annotation,
	newText string,
	segs []segments.Segment,
) (*Outcome, error) {
	ordered := make([]Annotation, len(annots))
	copy(ordered, annots)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartOffset < ordered[j].StartOffset
	})

	results := make([]match.Result, len(ordered))
	corrupt := make([]bool, len(ordered))

	e.locateAll(ctx, ordered, newText, segs, results, corrupt, nil)
	e.retryWithNeighbors(ctx, ordered, newText, segs, results, corrupt)

	outcome := &Outcome{Items: make([]ItemOutcome, 0, len(ordered))}
	for i, a := range ordered {
		rec := e.classify(a, results[i], corrupt[i], segs)

		if err := e.sys.ApplyRecovery(ctx, rec); err != nil {
			return nil, err
		}

		switch rec.Status {
		case StatusActive:
			outcome.Resolved++
		case StatusNeedsReview:
			outcome.NeedsReview++
		default:
			outcome.Lost++
		}

		outcome.Items = append(outcome.Items, ItemOutcome{
			AnnotationID: a.ID,
			Status:       rec.Status,
			Result:       results[i],
		})
	}

	e.logger.Info("annotations re-anchored",
		"total", len(ordered),
		"resolved", outcome.Resolved,
		"needs_review", outcome.NeedsReview,
		"lost", outcome.Lost,
	)
	return outcome, nil
}

// locateAll runs the matcher over the given item indexes (all items when
// indexes is nil) with bounded concurrency. Panics inside an item are
// contained and degrade that item to a zero-score synthetic result.
func (e *Engine) locateAll(
	ctx context.Context,
	ordered []Annotation,
	newText string,
	segs []segments.Segment,
	results []match.Result,
	corrupt []bool,
	indexes []int,
	hints ...[]match.Hints,
) {
	if indexes == nil {
		indexes = make([]int, len(ordered))
		for i := range ordered {
			indexes[i] = i
		}
	}

	var hintSet []match.Hints
	if len(hints) > 0 {
		hintSet = hints[0]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, i := range indexes {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("annotation match panic",
						"annotation_id", ordered[i].ID,
						"panic", r,
					)
					results[i] = match.Result{Tier: match.TierSynthetic, Method: match.MethodInterpolation}
				}
			}()

			a := ordered[i]
			if isCorrupt(a) {
				corrupt[i] = true
				return nil
			}

			var h match.Hints
			if hintSet != nil {
				h = hintSet[i]
			}

			results[i] = e.matcher.Locate(gctx, reference(a, i, segs), newText, h)
			return nil
		})
	}

	// Workers never return errors; Wait just joins them.
	_ = g.Wait()
}

// retryWithNeighbors re-runs interpolated items once the rest of the
// batch has resolved, so phase seven can place them between recovered
// neighbors.
func (e *Engine) retryWithNeighbors(
	ctx context.Context,
	ordered []Annotation,
	newText string,
	segs []segments.Segment,
	results []match.Result,
	corrupt []bool,
) {
	var retry []int
	for i := range ordered {
		if !corrupt[i] && results[i].Tier == match.TierSynthetic {
			retry = append(retry, i)
		}
	}
	if len(retry) == 0 {
		return
	}

	hintSet := make([]match.Hints, len(ordered))
	for _, i := range retry {
		hintSet[i] = neighborHints(i, results, corrupt)
	}

	e.locateAll(ctx, ordered, newText, segs, results, corrupt, retry, hintSet)
}

func (e *Engine) classify(a Annotation, res match.Result, isCorruptItem bool, segs []segments.Segment) Recovery {
	if isCorruptItem {
		return Recovery{
			AnnotationID: a.ID,
			Status:       StatusLost,
			Method:       methodCorrupt,
		}
	}

	rec := Recovery{
		AnnotationID: a.ID,
		StartOffset:  res.Start,
		EndOffset:    res.End,
		Confidence:   res.Score,
		Method:       res.Method,
	}

	switch {
	case res.Score >= e.accept:
		rec.Status = StatusActive
	case res.Score >= e.review:
		rec.Status = StatusNeedsReview
	default:
		rec.Status = StatusLost
		return rec
	}

	overlapping := overlappingSegments(res.Start, res.End, segs)
	if len(overlapping) > 0 {
		idx := overlapping[0].SequenceIndex
		rec.SegmentIndex = &idx
		rec.SegmentIDs = make([]uuid.UUID, 0, len(overlapping))
		for _, s := range overlapping {
			rec.SegmentIDs = append(rec.SegmentIDs, s.ID)
		}
	}

	return rec
}

// reference builds the matcher input for one annotation. The stored
// segment index is translated into an approximate byte offset when the
// new generation still has a segment at that index.
func reference(a Annotation, index int, segs []segments.Segment) match.Reference {
	ref := match.Reference{
		Text:          a.CapturedText,
		ContextBefore: a.ContextBefore,
		ContextAfter:  a.ContextAfter,
		OriginalStart: a.StartOffset,
		OriginalEnd:   a.EndOffset,
		ApproxOffset:  -1,
		Index:         index,
	}

	if a.SegmentIndex != nil {
		for _, s := range segs {
			if s.SequenceIndex == *a.SegmentIndex {
				ref.ApproxOffset = s.StartOffset
				break
			}
		}
	}

	return ref
}

func neighborHints(i int, results []match.Result, corrupt []bool) match.Hints {
	var h match.Hints

	for j := i - 1; j >= 0; j-- {
		if resolved(j, results, corrupt) {
			h.Preceding = &match.Neighbor{
				Index: j,
				Start: results[j].Start,
				End:   results[j].End,
			}
			break
		}
	}

	for j := i + 1; j < len(results); j++ {
		if resolved(j, results, corrupt) {
			h.Following = &match.Neighbor{
				Index: j,
				Start: results[j].Start,
				End:   results[j].End,
			}
			break
		}
	}

	return h
}

func resolved(j int, results []match.Result, corrupt []bool) bool {
	return !corrupt[j] && results[j].Tier != match.TierSynthetic
}

func overlappingSegments(start, end int, segs []segments.Segment) []segments.Segment {
	var out []segments.Segment
	for _, s := range segs {
		if s.StartOffset < end && start < s.EndOffset {
			out = append(out, s)
		}
	}
	return out
}

func isCorrupt(a Annotation) bool {
	if strings.TrimSpace(a.CapturedText) == "" {
		return true
	}
	if a.StartOffset < 0 || a.EndOffset <= a.StartOffset {
		return true
	}
	return false
}
