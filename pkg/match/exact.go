package match

import "context"

// exactPhase verifies the reference verbatim. When stale offsets are known
// it checks whether the text still sits exactly there; without offsets it
// falls back to a whole-document search. A reference that moved without
// changing is deliberately left for the normalized phase, which reports the
// same exact tier with relocated offsets.
type exactPhase struct{}

func (p *exactPhase) name() string { return MethodExact }

func (p *exactPhase) attempt(_ context.Context, req *request) (Result, bool, error) {
	ref := req.ref
	if ref.Text == "" {
		return Result{}, false, nil
	}

	if ref.OriginalStart >= 0 && ref.OriginalEnd > ref.OriginalStart {
		if ref.OriginalEnd <= len(req.haystack) &&
			req.haystack[ref.OriginalStart:ref.OriginalEnd] == ref.Text {
			return Result{
				Start:  ref.OriginalStart,
				End:    ref.OriginalEnd,
				Tier:   TierExact,
				Method: MethodExact,
				Score:  1.0,
			}, true, nil
		}
		return Result{}, false, nil
	}

	pos := nearest(occurrences(req.haystack, ref.Text), ref.ApproxOffset)
	if pos < 0 {
		return Result{}, false, nil
	}

	return Result{
		Start:  pos,
		End:    pos + len(ref.Text),
		Tier:   TierExact,
		Method: MethodExact,
		Score:  1.0,
	}, true, nil
}

// normalizedPhase searches for the whitespace-normalized reference inside
// the whitespace-normalized haystack and maps the hit back to raw offsets.
// A byte-identical reference that merely shifted resolves here with exact
// confidence.
type normalizedPhase struct{}

func (p *normalizedPhase) name() string { return MethodNormalized }

func (p *normalizedPhase) attempt(_ context.Context, req *request) (Result, bool, error) {
	needle := normalizeText(req.ref.Text)
	if needle == "" {
		return Result{}, false, nil
	}

	normHay, offsets := req.normalized()
	pos := nearest(occurrences(normHay, needle), req.ref.ApproxOffset)
	if pos < 0 {
		return Result{}, false, nil
	}

	start, end := rawSpan(req.haystack, offsets, pos, pos+len(needle))
	return Result{
		Start:  start,
		End:    end,
		Tier:   TierExact,
		Method: MethodNormalized,
		Score:  1.0,
	}, true, nil
}
