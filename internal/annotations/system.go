package annotations

import (
	"context"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/pagination"
)

// System defines the public contract for annotation domain operations.
// ApplyRecovery is the write half of the recovery engine: it persists one
// re-anchoring outcome, including the rebuilt segment overlap set.
// AcceptAllReview and DiscardAllReview operate over needs_review rows
// only and report how many they touched.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Annotation], error)

	Find(ctx context.Context, id uuid.UUID) (*Annotation, error)
	ByDocument(ctx context.Context, documentID uuid.UUID) ([]Annotation, error)
	Create(ctx context.Context, cmd CreateCommand) (*Annotation, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Annotation, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ApplyRecovery(ctx context.Context, rec Recovery) error
	SegmentIDs(ctx context.Context, annotationID uuid.UUID) ([]uuid.UUID, error)

	AcceptReview(ctx context.Context, id uuid.UUID) (*Annotation, error)
	RejectReview(ctx context.Context, id uuid.UUID) (*Annotation, error)
	AcceptAllReview(ctx context.Context, documentID uuid.UUID) (int, error)
	DiscardAllReview(ctx context.Context, documentID uuid.UUID) (int, error)
}
