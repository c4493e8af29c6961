package match

import "context"

// Synthetic scores sit below every review threshold so interpolated
// positions always classify as lost unless a caller deliberately lowers its
// thresholds.
const (
	scoreInterpolated = 0.5
	scoreClamped      = 0.25
)

// interpolatePhase is the terminal phase and never misses. It places the
// span between the nearest resolved neighbors proportionally to sequence
// index distance, immediately adjacent to a lone neighbor, or at the stale
// original offsets clamped into the new body when no neighbor resolved.
type interpolatePhase struct{}

func (p *interpolatePhase) name() string { return MethodInterpolation }

func (p *interpolatePhase) attempt(_ context.Context, req *request) (Result, bool, error) {
	return p.locate(req), true, nil
}

func (p *interpolatePhase) locate(req *request) Result {
	ref := req.ref
	hayLen := len(req.haystack)
	refLen := len(ref.Text)
	pred := req.hints.Preceding
	succ := req.hints.Following

	var start, end int
	score := scoreInterpolated

	switch {
	case pred != nil && succ != nil && succ.Start > pred.End:
		gap := succ.Start - pred.End
		span := succ.Index - pred.Index
		offset := gap / 2
		if span > 1 {
			offset = gap * (ref.Index - pred.Index) / span
		}
		start = pred.End + clamp(offset, 0, gap)
		end = min(start+refLen, succ.Start)

	case pred != nil:
		start = clamp(pred.End, 0, hayLen)
		end = min(start+refLen, hayLen)

	case succ != nil:
		end = clamp(succ.Start, 0, hayLen)
		start = max(end-refLen, 0)

	default:
		score = scoreClamped
		if ref.OriginalStart >= 0 && ref.OriginalEnd > ref.OriginalStart {
			start = clamp(ref.OriginalStart, 0, hayLen)
			end = clamp(ref.OriginalEnd, start, hayLen)
		} else {
			start = 0
			end = min(refLen, hayLen)
		}
	}

	if end < start {
		end = start
	}

	return Result{
		Start:  start,
		End:    end,
		Tier:   TierSynthetic,
		Method: MethodInterpolation,
		Score:  score,
	}
}
