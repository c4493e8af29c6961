package segments

import (
	"context"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/pagination"
)

// System defines the public contract for segment and generation operations.
// Activate and Restore are the two halves of the transactional generation
// swap: Activate retires the current generation and promotes the pending
// one, Restore undoes a failed run by re-pointing the document at the
// previous generation and discarding the failed one.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Segment], error)

	Find(ctx context.Context, id uuid.UUID) (*Segment, error)
	ByGeneration(ctx context.Context, generationID uuid.UUID) ([]Segment, error)
	ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Segment, error)

	CreateGeneration(ctx context.Context, documentID uuid.UUID, textBody string) (*Generation, error)
	FindGeneration(ctx context.Context, id uuid.UUID) (*Generation, error)
	ActiveGeneration(ctx context.Context, documentID uuid.UUID) (*Generation, error)
	ListGenerations(ctx context.Context, documentID uuid.UUID) ([]Generation, error)

	InsertSegments(ctx context.Context, generationID uuid.UUID, inputs []SegmentInput) ([]Segment, error)
	SetEmbedding(ctx context.Context, segmentID uuid.UUID, vec []float32) error

	Activate(ctx context.Context, documentID, generationID uuid.UUID) (previous *uuid.UUID, err error)
	Restore(ctx context.Context, documentID uuid.UUID, previous *uuid.UUID, failed uuid.UUID) error
	DeleteGeneration(ctx context.Context, generationID uuid.UUID) error
}
