// Package semantic implements the span-finder collaborator: a language
// model is asked to locate a reference passage inside a bounded window of
// document text and answer with a structured offset range. It backs the
// matcher's semantic phase and is always optional.
package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/stillharbor/anchorage/pkg/formatting"
	"github.com/stillharbor/anchorage/pkg/match"
	"github.com/stillharbor/anchorage/pkg/retry"
)

const promptTemplate = `You locate a reference passage inside a window of document text.
The passage may have been lightly reworded; find the span that corresponds to it.

Reference passage:
---
%s
---

Window text:
---
%s
---

Answer with JSON only:
{"found": bool, "start_offset": int, "end_offset": int, "confidence": "high"|"medium"|"low"}

Offsets are byte positions into the window text. If the passage does not
appear in the window, answer {"found": false, "start_offset": 0, "end_offset": 0, "confidence": "low"}.`

// Finder asks a chat model for span locations. Each call constructs a fresh
// agent from the stored configuration, matching how classification agents
// are built per inference elsewhere in the stack.
type Finder struct {
	cfg    *gaconfig.AgentConfig
	retry  retry.Policy
	logger *slog.Logger
}

// NewFinder creates a span finder from an agent configuration.
func NewFinder(cfg *gaconfig.AgentConfig, policy retry.Policy, logger *slog.Logger) *Finder {
	return &Finder{
		cfg:    cfg,
		retry:  policy,
		logger: logger.With("system", "semantic"),
	}
}

// FindSpan implements match.SpanFinder. Offsets in the returned span are
// relative to window. Model answers that fail to parse or carry an inverted
// range are reported as not found rather than failing the match.
func (f *Finder) FindSpan(ctx context.Context, reference, window string) (match.Span, error) {
	prompt := fmt.Sprintf(promptTemplate, reference, window)

	var content string
	err := f.retry.Do(ctx, func(ctx context.Context) error {
		a, err := agent.New(f.cfg)
		if err != nil {
			return retry.NoRetry(fmt.Errorf("create agent: %w", err))
		}

		resp, err := a.Chat(ctx, prompt)
		if err != nil {
			return fmt.Errorf("chat inference: %w", err)
		}

		content = resp.Content()
		return nil
	})
	if err != nil {
		return match.Span{}, err
	}

	span, err := formatting.Parse[match.Span](content)
	if err != nil {
		f.logger.Warn("unparseable span answer", "error", err)
		return match.Span{Found: false}, nil
	}

	if span.Found && (span.End <= span.Start || span.Start < 0 || span.End > len(window)) {
		f.logger.Warn("span answer out of bounds",
			"start", span.Start,
			"end", span.End,
			"window_len", len(window),
		)
		return match.Span{Found: false}, nil
	}

	return span, nil
}
