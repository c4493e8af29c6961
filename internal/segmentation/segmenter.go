// Package segmentation produces a document's segments: contiguous spans of
// the body that embeddings, annotations, and connections anchor to. One
// segmentation run produces one generation.
package segmentation

import "context"

// Chunk is a single produced segment. Start and End are byte offsets into
// the text handed to Segment; Content equals text[Start:End].
type Chunk struct {
	Content string
	Start   int
	End     int
	Index   int
}

// Segmenter turns a document body into an ordered list of chunks. Invoked
// once per reprocessing run.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]Chunk, error)
}
