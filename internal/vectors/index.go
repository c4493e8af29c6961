// Package vectors wraps the in-process vector index used for
// nearest-neighbor search over a generation's segment embeddings.
package vectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hupe1980/vecgo"
)

// ErrEmptyIndex is returned when searching an index with no vectors.
var ErrEmptyIndex = errors.New("vector index is empty")

// Hit is one nearest-neighbor result.
type Hit struct {
	SegmentID  uuid.UUID
	Similarity float64
}

// Index is a flat cosine index over segment embeddings. Generations are
// small enough that exact search beats maintaining an ANN graph per run.
type Index struct {
	db    *vecgo.Vecgo[uuid.UUID]
	count int
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dimension int) (*Index, error) {
	db, err := vecgo.Flat[uuid.UUID](dimension).Cosine().Build()
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	return &Index{db: db}, nil
}

// Add inserts a segment's embedding.
func (ix *Index) Add(ctx context.Context, segmentID uuid.UUID, vec []float32) error {
	_, err := ix.db.Insert(ctx, vecgo.VectorWithData[uuid.UUID]{
		Vector: vec,
		Data:   segmentID,
	})
	if err != nil {
		return fmt.Errorf("insert vector for segment %s: %w", segmentID, err)
	}
	ix.count++
	return nil
}

// Len reports the number of indexed vectors.
func (ix *Index) Len() int {
	return ix.count
}

// Search returns the topK nearest segments by cosine similarity, best
// first. The index stores cosine distance; similarity is 1 - distance.
func (ix *Index) Search(ctx context.Context, vec []float32, topK int) ([]Hit, error) {
	if ix.count == 0 {
		return nil, ErrEmptyIndex
	}
	if topK > ix.count {
		topK = ix.count
	}

	results, err := ix.db.Search(vec).KNN(topK).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			SegmentID:  r.Data,
			Similarity: 1.0 - float64(r.Distance),
		})
	}
	return hits, nil
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	return ix.db.Close()
}
