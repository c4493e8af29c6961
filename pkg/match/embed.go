package match

import (
	"context"
	"fmt"

	"github.com/hupe1980/vecgo/metric"
)

// embedPhase embeds the reference and a set of fixed-size half-overlapping
// haystack windows, then selects the window with the highest cosine
// similarity. It only runs when an embedder was injected. The scan is
// bounded to the approximate neighborhood when one is known; full-document
// scans only happen for references with no position estimate at all.
type embedPhase struct {
	cfg      Config
	embedder Embedder
}

func (p *embedPhase) name() string { return MethodEmbedding }

func (p *embedPhase) attempt(ctx context.Context, req *request) (Result, bool, error) {
	if req.ref.Text == "" || len(req.haystack) == 0 {
		return Result{}, false, nil
	}

	refVec, err := p.embedder.Embed(ctx, req.ref.Text)
	if err != nil {
		return Result{}, false, fmt.Errorf("embed reference: %w", err)
	}

	window := p.cfg.EmbedWindowBytes
	if window > len(req.haystack) {
		window = len(req.haystack)
	}
	stride := max(1, window/2)

	lo, hi := 0, len(req.haystack)
	if req.ref.ApproxOffset >= 0 {
		lo = clamp(req.ref.ApproxOffset-p.cfg.SearchRadius, 0, len(req.haystack))
		hi = clamp(req.ref.ApproxOffset+p.cfg.SearchRadius+window, 0, len(req.haystack))
	}

	bestScore := float32(-1)
	bestStart := -1
	for start := lo; start < hi; start += stride {
		end := min(start+window, hi)
		if end-start < window/4 {
			break
		}

		vec, err := p.embedder.Embed(ctx, req.haystack[start:end])
		if err != nil {
			return Result{}, false, fmt.Errorf("embed window at %d: %w", start, err)
		}

		score, err := metric.CosineSimilarity(refVec, vec)
		if err != nil {
			return Result{}, false, fmt.Errorf("cosine similarity: %w", err)
		}

		if score > bestScore {
			bestScore = score
			bestStart = start
		}

		if end == hi {
			break
		}
	}

	score := float64(bestScore)
	if bestStart < 0 || score < p.cfg.EmbedAccept {
		return Result{}, false, nil
	}

	tier := TierMedium
	if score >= p.cfg.EmbedHigh {
		tier = TierHigh
	}

	return Result{
		Start:  bestStart,
		End:    min(bestStart+window, len(req.haystack)),
		Tier:   tier,
		Method: MethodEmbedding,
		Score:  score,
	}, true, nil
}
