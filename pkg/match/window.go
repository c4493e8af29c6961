package match

import "context"

// windowPhase slides a window sized to the reference across a neighborhood
// of the haystack and scores each position with text similarity. The
// neighborhood is centered on the approximate offset when one is known,
// otherwise the whole document is scanned. The best-scoring window wins if
// it clears the acceptance threshold.
type windowPhase struct {
	cfg Config
}

func (p *windowPhase) name() string { return MethodWindow }

func (p *windowPhase) attempt(_ context.Context, req *request) (Result, bool, error) {
	needle := normalizeText(req.ref.Text)
	if needle == "" {
		return Result{}, false, nil
	}

	normHay, offsets := req.normalized()
	if len(normHay) == 0 {
		return Result{}, false, nil
	}

	window := int(float64(len(needle)) * p.cfg.WindowScale)
	if window < len(needle) {
		window = len(needle)
	}
	if window > len(normHay) {
		window = len(normHay)
	}

	lo, hi := 0, len(normHay)
	if req.ref.ApproxOffset >= 0 {
		lo = clamp(req.ref.ApproxOffset-p.cfg.SearchRadius, 0, len(normHay))
		hi = clamp(req.ref.ApproxOffset+p.cfg.SearchRadius+window, 0, len(normHay))
	}

	step := max(1, window/8)

	bestScore := 0.0
	bestStart := -1
	for start := lo; start+window <= hi; start += step {
		score := similarity(needle, normHay[start:start+window])
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
	}

	// Tail window so the end of the neighborhood is never skipped.
	if tail := hi - window; tail > lo && bestStart != tail {
		if score := similarity(needle, normHay[tail:hi]); score > bestScore {
			bestScore = score
			bestStart = tail
		}
	}

	if bestStart < 0 || bestScore < p.cfg.WindowAccept {
		return Result{}, false, nil
	}

	normEnd := min(bestStart+len(needle), len(normHay))
	start, end := rawSpan(req.haystack, offsets, bestStart, normEnd)

	tier := TierMedium
	if bestScore >= p.cfg.WindowHigh {
		tier = TierHigh
	}

	return Result{
		Start:  start,
		End:    end,
		Tier:   tier,
		Method: MethodWindow,
		Score:  bestScore,
	}, true, nil
}
