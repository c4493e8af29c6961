package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/pagination"
)

// System defines the public contract for document domain operations.
// BeginReprocess and EndReprocess flip the per-document exclusivity lock:
// BeginReprocess succeeds for at most one caller at a time.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	BeginReprocess(ctx context.Context, id uuid.UUID) error
	EndReprocess(ctx context.Context, id uuid.UUID) error
}
