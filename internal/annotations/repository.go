package annotations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/pagination"
	"github.com/stillharbor/anchorage/pkg/query"
	"github.com/stillharbor/anchorage/pkg/repository"
)

const annotationColumns = `id, document_id, start_offset, end_offset, captured_text,
	context_before, context_after, segment_index, color, note, status,
	confidence, method, recovered_at, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an annotation repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "annotations"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Annotation], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "CapturedText", "Note")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count annotations: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAnnotation)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Annotation, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAnnotation)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) ByDocument(ctx context.Context, documentID uuid.UUID) ([]Annotation, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM annotations
		WHERE document_id = $1
		ORDER BY start_offset`, annotationColumns)

	items, err := repository.QueryMany(ctx, r.db, q, []any{documentID}, scanAnnotation)
	if err != nil {
		return nil, fmt.Errorf("query document annotations: %w", err)
	}
	return items, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Annotation, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO annotations(id, document_id, start_offset, end_offset, captured_text,
			context_before, context_after, segment_index, color, note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, annotationColumns)

	args := []any{
		uuid.New(), cmd.DocumentID, cmd.StartOffset, cmd.EndOffset, cmd.CapturedText,
		cmd.ContextBefore, cmd.ContextAfter, cmd.SegmentIndex, cmd.Color, cmd.Note,
		StatusActive,
	}

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAnnotation)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("annotation created", "id", a.ID, "document_id", a.DocumentID)
	return &a, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Annotation, error) {
	q := fmt.Sprintf(`
		UPDATE annotations
		SET color = COALESCE($1, color),
			note = COALESCE($2, note),
			updated_at = now()
		WHERE id = $3
		RETURNING %s`, annotationColumns)

	a, err := repository.QueryOne(ctx, r.db, q, []any{cmd.Color, cmd.Note, id}, scanAnnotation)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM annotations WHERE id = $1",
		id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("annotation deleted", "id", id)
	return nil
}

// ApplyRecovery persists one re-anchoring outcome. Lost outcomes keep the
// stored offsets for audit; resolved and needs_review outcomes move them.
// The segment overlap set is rebuilt in the same transaction.
func (r *repo) ApplyRecovery(ctx context.Context, rec Recovery) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var (
			stmt string
			args []any
		)

		if rec.Status == StatusLost {
			stmt = `
				UPDATE annotations
				SET status = $1, confidence = $2, method = $3,
					recovered_at = now(), updated_at = now()
				WHERE id = $4`
			args = []any{rec.Status, rec.Confidence, rec.Method, rec.AnnotationID}
		} else {
			stmt = `
				UPDATE annotations
				SET status = $1, start_offset = $2, end_offset = $3,
					segment_index = $4, confidence = $5, method = $6,
					recovered_at = now(), updated_at = now()
				WHERE id = $7`
			args = []any{
				rec.Status, rec.StartOffset, rec.EndOffset,
				rec.SegmentIndex, rec.Confidence, rec.Method, rec.AnnotationID,
			}
		}

		if err := repository.ExecExpectOne(ctx, tx, stmt, args...); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM annotation_segments WHERE annotation_id = $1",
			rec.AnnotationID,
		); err != nil {
			return struct{}{}, fmt.Errorf("clear segment links: %w", err)
		}

		for _, segID := range rec.SegmentIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO annotation_segments(annotation_id, segment_id) VALUES ($1, $2)",
				rec.AnnotationID, segID,
			); err != nil {
				return struct{}{}, fmt.Errorf("link segment %s: %w", segID, err)
			}
		}

		return struct{}{}, nil
	})

	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) SegmentIDs(ctx context.Context, annotationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT segment_id FROM annotation_segments WHERE annotation_id = $1",
		annotationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segment links: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repo) AcceptReview(ctx context.Context, id uuid.UUID) (*Annotation, error) {
	return r.resolveReview(ctx, id, StatusActive)
}

func (r *repo) RejectReview(ctx context.Context, id uuid.UUID) (*Annotation, error) {
	return r.resolveReview(ctx, id, StatusLost)
}

func (r *repo) resolveReview(ctx context.Context, id uuid.UUID, to string) (*Annotation, error) {
	q := fmt.Sprintf(`
		UPDATE annotations
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING %s`, annotationColumns)

	a, err := repository.QueryOne(ctx, r.db, q, []any{to, id, StatusNeedsReview}, scanAnnotation)
	if err != nil {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrNotReviewable
	}

	r.logger.Info("annotation review resolved", "id", id, "status", to)
	return &a, nil
}

func (r *repo) AcceptAllReview(ctx context.Context, documentID uuid.UUID) (int, error) {
	return r.resolveAllReview(ctx, documentID, StatusActive)
}

func (r *repo) DiscardAllReview(ctx context.Context, documentID uuid.UUID) (int, error) {
	return r.resolveAllReview(ctx, documentID, StatusLost)
}

func (r *repo) resolveAllReview(ctx context.Context, documentID uuid.UUID, to string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE annotations
		SET status = $1, updated_at = now()
		WHERE document_id = $2 AND status = $3`,
		to, documentID, StatusNeedsReview,
	)
	if err != nil {
		return 0, fmt.Errorf("resolve review batch: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	r.logger.Info("annotation review batch resolved",
		"document_id", documentID,
		"status", to,
		"count", rows,
	)
	return int(rows), nil
}

func validateCreate(cmd CreateCommand) error {
	if strings.TrimSpace(cmd.CapturedText) == "" {
		return fmt.Errorf("%w: empty captured text", ErrInvalidInput)
	}
	if cmd.StartOffset < 0 || cmd.EndOffset <= cmd.StartOffset {
		return fmt.Errorf("%w: offsets [%d,%d)", ErrInvalidInput, cmd.StartOffset, cmd.EndOffset)
	}
	return nil
}
