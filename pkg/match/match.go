// Package match implements best-effort position matching: given reference
// text captured against an old version of a document and the document's new
// body, it finds where that reference now lives. Matching escalates through
// an ordered list of phases, cheapest and most certain first, and the final
// interpolation phase cannot fail, so Locate always returns exactly one
// result. Callers read the confidence tier and score to decide whether a
// result is trustworthy.
package match

import (
	"context"
	"log/slog"
)

// Tier describes how a position was recovered, from certain to guessed.
type Tier string

const (
	TierExact     Tier = "exact"
	TierHigh      Tier = "high"
	TierMedium    Tier = "medium"
	TierSynthetic Tier = "synthetic"
)

// Rank orders tiers for comparison: exact > high > medium > synthetic.
func (t Tier) Rank() int {
	switch t {
	case TierExact:
		return 3
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}

// Method tags identifying which phase produced a result.
const (
	MethodExact         = "exact"
	MethodNormalized    = "normalized"
	MethodAnchors       = "anchors"
	MethodWindow        = "window"
	MethodEmbedding     = "embedding"
	MethodSemantic      = "semantic"
	MethodInterpolation = "interpolation"
)

// Result is the outcome of a single Locate call. Start and End are byte
// offsets into the haystack. Score is the phase's own similarity measure in
// [0,1]; exact matches score 1.0 and synthetic positions score well below
// any review threshold.
type Result struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Tier   Tier    `json:"tier"`
	Method string  `json:"method"`
	Score  float64 `json:"score"`
}

// Reference describes the span being relocated. OriginalStart/OriginalEnd
// are the stale offsets from the prior document body (-1 when unknown).
// ApproxOffset is the caller's estimate of where the span now sits, used to
// bound similarity searches (-1 when unknown). Index is the reference's
// sequence position among its sibling items, consumed by interpolation.
type Reference struct {
	Text          string
	ContextBefore string
	ContextAfter  string
	OriginalStart int
	OriginalEnd   int
	ApproxOffset  int
	Index         int
}

// Neighbor is a sibling item that already resolved against the new body.
type Neighbor struct {
	Index int
	Start int
	End   int
}

// Hints carries resolved neighbors for the interpolation phase.
type Hints struct {
	Preceding *Neighbor
	Following *Neighbor
}

// Embedder produces a fixed-dimension vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Span is the structured answer of a semantic span finder. Offsets are
// relative to the window the finder was given.
type Span struct {
	Found      bool   `json:"found"`
	Start      int    `json:"start_offset"`
	End        int    `json:"end_offset"`
	Confidence string `json:"confidence"`
}

// SpanFinder locates a reference inside a bounded window of text using
// semantic reasoning. It is the most expensive phase and runs last before
// interpolation.
type SpanFinder interface {
	FindSpan(ctx context.Context, reference, window string) (Span, error)
}

// Config holds the tunable thresholds and window sizes for the matcher.
type Config struct {
	// WindowAccept is the minimum sliding-window similarity to accept;
	// WindowHigh promotes the result from medium to high.
	WindowAccept float64 `toml:"window_accept"`
	WindowHigh   float64 `toml:"window_high"`

	// EmbedAccept is the minimum cosine similarity to accept an embedding
	// window; EmbedHigh promotes the result from medium to high.
	EmbedAccept float64 `toml:"embed_accept"`
	EmbedHigh   float64 `toml:"embed_high"`

	// WindowScale sizes the sliding window relative to the reference.
	WindowScale float64 `toml:"window_scale"`

	// SearchRadius bounds similarity searches around ApproxOffset, in bytes.
	SearchRadius int `toml:"search_radius"`

	// EmbedWindowBytes is the fixed embedding window size; windows overlap
	// by half.
	EmbedWindowBytes int `toml:"embed_window_bytes"`

	// SemanticWindowBytes bounds the text handed to the span finder.
	SemanticWindowBytes int `toml:"semantic_window_bytes"`
}

// DefaultConfig returns the standard matcher thresholds.
func DefaultConfig() Config {
	return Config{
		WindowAccept:        0.80,
		WindowHigh:          0.90,
		EmbedAccept:         0.85,
		EmbedHigh:           0.95,
		WindowScale:         1.2,
		SearchRadius:        4096,
		EmbedWindowBytes:    512,
		SemanticWindowBytes: 4096,
	}
}

// request bundles a single Locate invocation's inputs with lazily shared
// derived state so phases do not re-normalize the haystack.
type request struct {
	ref      Reference
	haystack string
	hints    Hints

	normHaystack string
	normMap      []int
}

func (r *request) normalized() (string, []int) {
	if r.normMap == nil {
		r.normHaystack, r.normMap = normalize(r.haystack)
	}
	return r.normHaystack, r.normMap
}

// phase is one strategy in the escalation chain. ok=false means the phase
// could not produce a trustworthy result and the next phase should run.
type phase interface {
	name() string
	attempt(ctx context.Context, req *request) (Result, bool, error)
}

// Matcher locates reference spans in new document bodies. The zero value is
// not usable; construct with New.
type Matcher struct {
	cfg    Config
	logger *slog.Logger
	phases []phase
}

// New creates a Matcher. embedder and finder may be nil, in which case the
// embedding and semantic phases are skipped rather than failed.
func New(cfg Config, embedder Embedder, finder SpanFinder, logger *slog.Logger) *Matcher {
	m := &Matcher{
		cfg:    cfg,
		logger: logger.With("system", "match"),
	}

	m.phases = []phase{
		&exactPhase{},
		&normalizedPhase{},
		&anchorPhase{},
		&windowPhase{cfg: cfg},
	}
	if embedder != nil {
		m.phases = append(m.phases, &embedPhase{cfg: cfg, embedder: embedder})
	}
	if finder != nil {
		m.phases = append(m.phases, &semanticPhase{cfg: cfg, finder: finder})
	}
	m.phases = append(m.phases, &interpolatePhase{})

	return m
}

// Locate runs the phase chain and returns the first successful result. It
// never fails: phase errors are logged and treated as misses, and the final
// interpolation phase always produces a synthetic position.
func (m *Matcher) Locate(ctx context.Context, ref Reference, haystack string, hints Hints) Result {
	req := &request{ref: ref, haystack: haystack, hints: hints}

	for _, p := range m.phases {
		result, ok, err := p.attempt(ctx, req)
		if err != nil {
			m.logger.Warn("match phase failed",
				"phase", p.name(),
				"error", err,
			)
			continue
		}
		if ok {
			return result
		}
	}

	// Unreachable: interpolation never misses. Kept as a hard fallback so
	// the contract survives a misconfigured phase list.
	return (&interpolatePhase{}).locate(req)
}
