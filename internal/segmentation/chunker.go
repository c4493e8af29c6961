package segmentation

import (
	"context"
	"strings"
)

const (
	// DefaultTargetBytes aims chunks at roughly paragraph scale.
	DefaultTargetBytes = 1200
	// DefaultMaxBytes forces a sentence-boundary split past this size.
	DefaultMaxBytes = 2000
)

// Chunker is a paragraph-first segmenter: paragraphs are accumulated up to
// the target size, and an oversized paragraph is split at sentence
// boundaries. Offsets always index the original text, so chunk content is
// reproducible as a slice of the body.
type Chunker struct {
	targetBytes int
	maxBytes    int
}

// NewChunker creates a Chunker; zero values select the defaults.
func NewChunker(targetBytes, maxBytes int) *Chunker {
	if targetBytes <= 0 {
		targetBytes = DefaultTargetBytes
	}
	if maxBytes < targetBytes {
		maxBytes = max(DefaultMaxBytes, targetBytes)
	}
	return &Chunker{targetBytes: targetBytes, maxBytes: maxBytes}
}

type span struct{ start, end int }

func (c *Chunker) Segment(_ context.Context, text string) ([]Chunk, error) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, nil
	}

	var pieces []span
	for _, p := range paragraphs {
		if p.end-p.start > c.maxBytes {
			pieces = append(pieces, splitSentences(text, p, c.maxBytes)...)
		} else {
			pieces = append(pieces, p)
		}
	}

	var chunks []Chunk
	current := pieces[0]

	flush := func(s span) {
		chunks = append(chunks, Chunk{
			Content: text[s.start:s.end],
			Start:   s.start,
			End:     s.end,
			Index:   len(chunks),
		})
	}

	for _, p := range pieces[1:] {
		if p.end-current.start <= c.targetBytes {
			current.end = p.end
			continue
		}
		flush(current)
		current = p
	}
	flush(current)

	return chunks, nil
}

// splitParagraphs returns the non-blank spans between blank-line runs.
func splitParagraphs(text string) []span {
	var spans []span
	offset := 0

	for _, block := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			start := offset + strings.Index(block, trimmed)
			spans = append(spans, span{start: start, end: start + len(trimmed)})
		}
		offset += len(block) + 2
	}

	return spans
}

// splitSentences cuts an oversized span at sentence ends, falling back to a
// hard byte split for a sentence that alone exceeds the limit.
func splitSentences(text string, s span, limit int) []span {
	var out []span
	start := s.start

	for start < s.end {
		if s.end-start <= limit {
			out = append(out, span{start: start, end: s.end})
			break
		}

		cut := -1
		for i := start + limit; i > start; i-- {
			ch := text[i-1]
			if (ch == '.' || ch == '!' || ch == '?') && (i == s.end || text[i] == ' ' || text[i] == '\n') {
				cut = i
				break
			}
		}
		if cut <= start {
			cut = start + limit
		}

		out = append(out, span{start: start, end: cut})

		for cut < s.end && (text[cut] == ' ' || text[cut] == '\n') {
			cut++
		}
		start = cut
	}

	return out
}
