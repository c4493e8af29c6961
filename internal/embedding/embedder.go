// Package embedding provides the embedding collaborator: an HTTP client for
// an Ollama-compatible embeddings endpoint, an LRU cache layered over any
// embedder, and a deterministic token-hash embedder for tests.
package embedding

import (
	"context"
	"errors"
)

// Domain errors for embedding operations.
var (
	ErrEmptyText      = errors.New("cannot embed empty text")
	ErrDimensionDrift = errors.New("embedding dimension does not match configuration")
)

// Embedder produces fixed-dimension vectors for text. Identical text must
// yield near-identical vectors; the dimension is a configuration constant
// shared by all stored segment embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
