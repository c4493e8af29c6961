package match

import (
	"context"
	"fmt"
)

// Semantic answers land inside the review band regardless of the model's
// own confidence label: a reasoning result is never auto-accepted.
var semanticScores = map[string]float64{
	"high":   0.84,
	"medium": 0.80,
	"low":    0.76,
}

// semanticPhase delegates to an injected span finder, handing it a bounded
// window of the haystack centered on the best available position estimate
// rather than the full document.
type semanticPhase struct {
	cfg    Config
	finder SpanFinder
}

func (p *semanticPhase) name() string { return MethodSemantic }

func (p *semanticPhase) attempt(ctx context.Context, req *request) (Result, bool, error) {
	if req.ref.Text == "" || len(req.haystack) == 0 {
		return Result{}, false, nil
	}

	center := len(req.haystack) / 2
	switch {
	case req.ref.ApproxOffset >= 0:
		center = clamp(req.ref.ApproxOffset, 0, len(req.haystack))
	case req.ref.OriginalStart >= 0:
		center = clamp(req.ref.OriginalStart, 0, len(req.haystack))
	}

	half := p.cfg.SemanticWindowBytes / 2
	lo := clamp(center-half, 0, len(req.haystack))
	hi := clamp(center+half, 0, len(req.haystack))
	if hi <= lo {
		return Result{}, false, nil
	}

	span, err := p.finder.FindSpan(ctx, req.ref.Text, req.haystack[lo:hi])
	if err != nil {
		return Result{}, false, fmt.Errorf("find span: %w", err)
	}
	if !span.Found || span.End <= span.Start {
		return Result{}, false, nil
	}

	start := clamp(lo+span.Start, 0, len(req.haystack))
	end := clamp(lo+span.End, start, len(req.haystack))
	if end <= start {
		return Result{}, false, nil
	}

	score, ok := semanticScores[span.Confidence]
	if !ok {
		score = semanticScores["medium"]
	}

	return Result{
		Start:  start,
		End:    end,
		Tier:   TierMedium,
		Method: MethodSemantic,
		Score:  score,
	}, true, nil
}
