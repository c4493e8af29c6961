package segmentation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stillharbor/anchorage/internal/segmentation"
)

func TestSegmentOffsetsReproduceContent(t *testing.T) {
	text := "First paragraph with some words.\n\nSecond paragraph with more words.\n\nThird paragraph closes it out."
	c := segmentation.NewChunker(0, 0)

	chunks, err := c.Segment(context.Background(), text)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}

	for i, ch := range chunks {
		if ch.Content != text[ch.Start:ch.End] {
			t.Errorf("chunk %d content does not match text[%d:%d]", i, ch.Start, ch.End)
		}
		if ch.Index != i {
			t.Errorf("chunk %d index = %d", i, ch.Index)
		}
	}
}

func TestSegmentOrderedNonOverlapping(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("A paragraph of reasonable length that contributes to the body of the document under test.\n\n")
	}

	c := segmentation.NewChunker(0, 0)
	chunks, err := c.Segment(context.Background(), sb.String())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("chunk count = %d, want several", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start < chunks[i-1].End {
			t.Errorf("chunk %d starts at %d before previous end %d",
				i, chunks[i].Start, chunks[i-1].End)
		}
	}
}

func TestSegmentAccumulatesToTarget(t *testing.T) {
	text := "Tiny one.\n\nTiny two.\n\nTiny three.\n\nTiny four."
	c := segmentation.NewChunker(200, 400)

	chunks, err := c.Segment(context.Background(), text)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("chunk count = %d, want 1 (small paragraphs merge)", len(chunks))
	}
}

func TestSegmentSplitsOversizedParagraph(t *testing.T) {
	sentence := "This sentence repeats to inflate a single paragraph well past the maximum size limit. "
	text := strings.TrimSpace(strings.Repeat(sentence, 40))

	c := segmentation.NewChunker(1200, 2000)
	chunks, err := c.Segment(context.Background(), text)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("chunk count = %d, want a split", len(chunks))
	}

	for i, ch := range chunks {
		if ch.End-ch.Start > 2000 {
			t.Errorf("chunk %d size %d exceeds max", i, ch.End-ch.Start)
		}
		if ch.Content != text[ch.Start:ch.End] {
			t.Errorf("chunk %d offsets do not reproduce content", i)
		}
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	c := segmentation.NewChunker(0, 0)

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\n  \n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := c.Segment(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Segment() error = %v", err)
			}
			if len(chunks) != 0 {
				t.Errorf("chunks = %d, want 0", len(chunks))
			}
		})
	}
}
