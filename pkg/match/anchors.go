package match

import (
	"context"
	"sort"
	"strings"
)

const (
	anchorMaxWords    = 8
	anchorEdgeWords   = 5
	anchorMinLen      = 12
	anchorMinResolved = 2
)

// anchorPhase triangulates the span from short distinctive phrases pulled
// out of the reference: first, middle, and last sentence, or the leading and
// trailing words when the reference does not split into sentences. The span
// is accepted when at least two anchors land in the haystack in ascending
// order and is bounded by the outermost anchors.
type anchorPhase struct{}

func (p *anchorPhase) name() string { return MethodAnchors }

func (p *anchorPhase) attempt(_ context.Context, req *request) (Result, bool, error) {
	anchors := extractAnchors(req.ref.Text)
	if len(anchors) < anchorMinResolved {
		return Result{}, false, nil
	}

	normHay, offsets := req.normalized()

	type hit struct{ normStart, normEnd int }
	var hits []hit
	for _, a := range anchors {
		pos := nearest(occurrences(normHay, a), req.ref.ApproxOffset)
		if pos < 0 {
			continue
		}
		hits = append(hits, hit{normStart: pos, normEnd: pos + len(a)})
	}

	if len(hits) < anchorMinResolved {
		return Result{}, false, nil
	}

	ascending := sort.SliceIsSorted(hits, func(i, j int) bool {
		return hits[i].normStart < hits[j].normStart
	})
	if !ascending {
		return Result{}, false, nil
	}

	start, _ := rawSpan(req.haystack, offsets, hits[0].normStart, hits[0].normEnd)
	_, end := rawSpan(req.haystack, offsets, hits[len(hits)-1].normStart, hits[len(hits)-1].normEnd)
	if end <= start {
		return Result{}, false, nil
	}

	score := 0.85
	if len(hits) == len(anchors) {
		score = 0.90
	}

	return Result{
		Start:  start,
		End:    end,
		Tier:   TierHigh,
		Method: MethodAnchors,
		Score:  score,
	}, true, nil
}

// extractAnchors picks 2-3 short normalized phrases from the reference.
func extractAnchors(text string) []string {
	sentences := splitSentences(normalizeText(text))

	var candidates []string
	switch {
	case len(sentences) >= 3:
		candidates = []string{
			sentences[0],
			sentences[len(sentences)/2],
			sentences[len(sentences)-1],
		}
	case len(sentences) == 2:
		candidates = sentences
	default:
		words := strings.Fields(normalizeText(text))
		if len(words) < anchorEdgeWords*2 {
			return nil
		}
		candidates = []string{
			strings.Join(words[:anchorEdgeWords], " "),
			strings.Join(words[len(words)-anchorEdgeWords:], " "),
		}
	}

	var anchors []string
	for _, c := range candidates {
		c = trimToWords(c, anchorMaxWords)
		if len(c) >= anchorMinLen {
			anchors = append(anchors, c)
		}
	}
	if len(anchors) < anchorMinResolved {
		return nil
	}
	return anchors
}

// splitSentences breaks text on terminal punctuation followed by a space.
// Fragments shorter than anchorMinLen are merged forward rather than
// producing useless anchors like "Dr." or "No.".
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] != ' ' {
				continue
			}
			s := strings.TrimSpace(text[start : i+1])
			if len(s) >= anchorMinLen {
				sentences = append(sentences, s)
				start = i + 2
			}
		}
	}

	if tail := strings.TrimSpace(text[start:]); len(tail) >= anchorMinLen {
		sentences = append(sentences, tail)
	}

	return sentences
}

func trimToWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
