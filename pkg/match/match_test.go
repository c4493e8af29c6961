package match_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stillharbor/anchorage/pkg/match"
)

func testMatcher(embedder match.Embedder, finder match.SpanFinder) *match.Matcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return match.New(match.DefaultConfig(), embedder, finder, logger)
}

func TestLocateUnchangedDocument(t *testing.T) {
	body := "The quick brown fox jumps over the lazy dog. It was a bright cold day in April."
	m := testMatcher(nil, nil)

	ref := match.Reference{
		Text:          "quick brown fox",
		OriginalStart: 4,
		OriginalEnd:   19,
		ApproxOffset:  4,
	}

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Tier != match.TierExact {
		t.Errorf("tier = %s, want exact", result.Tier)
	}
	if result.Method != match.MethodExact {
		t.Errorf("method = %s, want exact", result.Method)
	}
	if result.Start != 4 || result.End != 19 {
		t.Errorf("span = [%d,%d), want [4,19)", result.Start, result.End)
	}
	if result.Score != 1.0 {
		t.Errorf("score = %f, want 1.0", result.Score)
	}
}

func TestLocateShiftedByInsertion(t *testing.T) {
	prefix := strings.Repeat("Inserted paragraph text flows here. ", 6)
	span := "annotated sentence lives here"
	body := prefix + "Some surrounding prose with the " + span + " and a closing clause."

	m := testMatcher(nil, nil)

	ref := match.Reference{
		Text:          span,
		OriginalStart: 32,
		OriginalEnd:   32 + len(span),
		ApproxOffset:  32,
	}

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Tier != match.TierExact {
		t.Fatalf("tier = %s, want exact", result.Tier)
	}
	wantStart := strings.Index(body, span)
	if result.Start != wantStart || result.End != wantStart+len(span) {
		t.Errorf("span = [%d,%d), want [%d,%d)",
			result.Start, result.End, wantStart, wantStart+len(span))
	}
	if got := body[result.Start:result.End]; got != span {
		t.Errorf("recovered text = %q, want %q", got, span)
	}
}

func TestLocateReformattedWhitespace(t *testing.T) {
	span := "a span that survives reflow"
	body := "Opening words here.\n\n  a  span\tthat\n survives   reflow, then more."

	m := testMatcher(nil, nil)

	ref := match.Reference{
		Text:          span,
		OriginalStart: -1,
		OriginalEnd:   -1,
		ApproxOffset:  -1,
	}

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Tier != match.TierExact {
		t.Fatalf("tier = %s (method %s), want exact", result.Tier, result.Method)
	}
	if result.Method != match.MethodNormalized {
		t.Errorf("method = %s, want normalized", result.Method)
	}

	recovered := body[result.Start:result.End]
	if !strings.HasPrefix(recovered, "a  span") || !strings.HasSuffix(recovered, "reflow") {
		t.Errorf("recovered text = %q", recovered)
	}
}

func TestLocateDeletedTextFallsToSynthetic(t *testing.T) {
	body := "Completely different content that shares nothing with the original passage of any kind."

	m := testMatcher(nil, nil)

	ref := match.Reference{
		Text:          "zygomorphic quixotic jabberwocky perambulation",
		OriginalStart: 500,
		OriginalEnd:   546,
		ApproxOffset:  -1,
	}

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Tier != match.TierSynthetic {
		t.Fatalf("tier = %s, want synthetic", result.Tier)
	}
	if result.Method != match.MethodInterpolation {
		t.Errorf("method = %s, want interpolation", result.Method)
	}
	if result.Start < 0 || result.End > len(body) || result.End < result.Start {
		t.Errorf("span [%d,%d) out of bounds for body of %d bytes",
			result.Start, result.End, len(body))
	}
}

func TestLocateNeverFails(t *testing.T) {
	m := testMatcher(nil, nil)

	tests := []struct {
		name     string
		ref      match.Reference
		haystack string
	}{
		{"empty haystack", match.Reference{Text: "anything", OriginalStart: -1, OriginalEnd: -1, ApproxOffset: -1}, ""},
		{"empty reference", match.Reference{OriginalStart: -1, OriginalEnd: -1, ApproxOffset: -1}, "some document body"},
		{"both empty", match.Reference{OriginalStart: -1, OriginalEnd: -1, ApproxOffset: -1}, ""},
		{"stale offsets past end", match.Reference{Text: "missing", OriginalStart: 9000, OriginalEnd: 9007, ApproxOffset: -1}, "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.Locate(context.Background(), tt.ref, tt.haystack, match.Hints{})
			if result.Start < 0 || result.End > len(tt.haystack) || result.End < result.Start {
				t.Errorf("span [%d,%d) out of bounds for %d-byte haystack",
					result.Start, result.End, len(tt.haystack))
			}
		})
	}
}

func TestLocateAnchorsRecoverEditedSpan(t *testing.T) {
	// Middle sentence edited; first and last survive so triangulation
	// still bounds the span.
	original := "The opening sentence survives entirely intact. The middle portion was heavily rewritten by an editor. The closing sentence survives entirely intact."
	body := "Preamble text sits in front now. The opening sentence survives entirely intact. Something new replaced what was here before. The closing sentence survives entirely intact. Trailing text."

	m := testMatcher(nil, nil)

	ref := match.Reference{
		Text:          original,
		OriginalStart: 0,
		OriginalEnd:   len(original),
		ApproxOffset:  0,
	}

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Tier == match.TierSynthetic {
		t.Fatalf("tier = synthetic (method %s), want a real recovery", result.Method)
	}

	recovered := body[result.Start:result.End]
	if !strings.Contains(recovered, "opening sentence survives") {
		t.Errorf("recovered span %q missing opening anchor", recovered)
	}
	if !strings.Contains(recovered, "closing sentence survives") {
		t.Errorf("recovered span %q missing closing anchor", recovered)
	}
}

func TestLocateInterpolationBetweenNeighbors(t *testing.T) {
	body := strings.Repeat("x", 1000)
	m := testMatcher(nil, nil)

	ref := match.Reference{
		Text:          "vanished annotation span",
		OriginalStart: -1,
		OriginalEnd:   -1,
		ApproxOffset:  -1,
		Index:         2,
	}

	hints := match.Hints{
		Preceding: &match.Neighbor{Index: 1, Start: 100, End: 200},
		Following: &match.Neighbor{Index: 3, Start: 600, End: 700},
	}

	result := m.Locate(context.Background(), ref, body, hints)

	if result.Tier != match.TierSynthetic {
		t.Fatalf("tier = %s, want synthetic", result.Tier)
	}
	if result.Start < 200 || result.End > 600 {
		t.Errorf("span [%d,%d) outside neighbor gap [200,600)", result.Start, result.End)
	}
}

func TestLocateInterpolationOrderPreserved(t *testing.T) {
	body := strings.Repeat("y", 1000)
	m := testMatcher(nil, nil)

	pred := &match.Neighbor{Index: 0, Start: 100, End: 150}
	succ := &match.Neighbor{Index: 4, Start: 800, End: 850}

	var prevStart int
	for i := 1; i < 4; i++ {
		ref := match.Reference{
			Text:          "gone",
			OriginalStart: -1,
			OriginalEnd:   -1,
			ApproxOffset:  -1,
			Index:         i,
		}
		result := m.Locate(context.Background(), ref, body, match.Hints{Preceding: pred, Following: succ})

		if result.Start < prevStart {
			t.Errorf("index %d start %d regressed below %d", i, result.Start, prevStart)
		}
		prevStart = result.Start
	}
}

type stubEmbedder struct {
	fn func(text string) ([]float32, error)
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return s.fn(text)
}

func TestLocateEmbedderErrorsAreContained(t *testing.T) {
	embedder := &stubEmbedder{
		fn: func(string) ([]float32, error) {
			return nil, errors.New("backend down")
		},
	}

	m := testMatcher(embedder, nil)

	ref := match.Reference{
		Text:          "this text exists nowhere in the body at all",
		OriginalStart: -1,
		OriginalEnd:   -1,
		ApproxOffset:  -1,
	}
	body := "entirely unrelated content stands in for the document"

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Tier != match.TierSynthetic {
		t.Errorf("tier = %s, want synthetic when the embedder fails", result.Tier)
	}
}

type stubFinder struct {
	span match.Span
	err  error
}

func (s *stubFinder) FindSpan(_ context.Context, _, _ string) (match.Span, error) {
	return s.span, s.err
}

func TestLocateSemanticPhase(t *testing.T) {
	body := "The treaty was signed in the spring. Delegates celebrated the accord with a banquet that evening."

	finder := &stubFinder{
		span: match.Span{Found: true, Start: 37, End: 73, Confidence: "high"},
	}

	m := testMatcher(nil, finder)

	ref := match.Reference{
		Text:          "representatives marked the agreement with festivities",
		OriginalStart: -1,
		OriginalEnd:   -1,
		ApproxOffset:  -1,
	}

	result := m.Locate(context.Background(), ref, body, match.Hints{})

	if result.Method != match.MethodSemantic {
		t.Fatalf("method = %s, want semantic", result.Method)
	}
	if result.Start != 37 || result.End != 73 {
		t.Errorf("span = [%d,%d), want [37,73)", result.Start, result.End)
	}
}
