package connections

import (
	"context"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/pagination"
)

// System defines the public contract for connection domain operations.
// Supersede is the write half of recovery remapping: it inserts the
// successor edge and marks the original superseded in one transaction.
// PurgeUnvalidated removes machine detections stranded on a deleted
// generation's segments; validated history is never purged.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Connection], error)

	Find(ctx context.Context, id uuid.UUID) (*Connection, error)
	ValidatedByDocument(ctx context.Context, documentID uuid.UUID) ([]Connection, error)
	Create(ctx context.Context, cmd CreateCommand) (*Connection, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Validate(ctx context.Context, id uuid.UUID) (*Connection, error)
	AcceptReview(ctx context.Context, id uuid.UUID) (*Connection, error)
	RejectReview(ctx context.Context, id uuid.UUID) (*Connection, error)

	Supersede(ctx context.Context, originalID uuid.UUID, succ Successor) (*Connection, error)
	MarkLost(ctx context.Context, id uuid.UUID, sourceSim, targetSim *float64) error
	PurgeUnvalidated(ctx context.Context, generationID uuid.UUID) (int, error)
}
