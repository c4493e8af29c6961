package connections

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/pagination"
	"github.com/stillharbor/anchorage/pkg/query"
	"github.com/stillharbor/anchorage/pkg/repository"
)

const connectionColumns = `id, source_segment_id, target_segment_id, source_document_id,
	target_document_id, kind, strength, validated, status, origin_id,
	source_similarity, target_similarity, detected_by, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a connection repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "connections"),
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
) (*pagination.PageResult[Connection], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Kind", "DetectedBy")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count connections: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanConnection)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Connection, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanConnection)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

// ValidatedByDocument returns the active validated edges touching a
// document on either side. This is the recovery engine's input set:
// unvalidated detections are regenerated externally, not remapped.
func (r *repo) ValidatedByDocument(ctx context.Context, documentID uuid.UUID) ([]Connection, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM connections
		WHERE (source_document_id = $1 OR target_document_id = $1)
			AND validated = true
			AND status = $2
		ORDER BY created_at`, connectionColumns)

	items, err := repository.QueryMany(ctx, r.db, q, []any{documentID, StatusActive}, scanConnection)
	if err != nil {
		return nil, fmt.Errorf("query validated connections: %w", err)
	}
	return items, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Connection, error) {
	if cmd.Kind == "" {
		return nil, fmt.Errorf("%w: empty kind", ErrInvalidInput)
	}
	if cmd.SourceSegmentID == cmd.TargetSegmentID {
		return nil, fmt.Errorf("%w: self-referential edge", ErrInvalidInput)
	}

	q := fmt.Sprintf(`
		INSERT INTO connections(id, source_segment_id, target_segment_id, source_document_id,
			target_document_id, kind, strength, validated, status, detected_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
		RETURNING %s`, connectionColumns)

	args := []any{
		uuid.New(), cmd.SourceSegmentID, cmd.TargetSegmentID,
		cmd.SourceDocumentID, cmd.TargetDocumentID,
		cmd.Kind, cmd.Strength, StatusActive, cmd.DetectedBy,
	}

	c, err := repository.QueryOne(ctx, r.db, q, args, scanConnection)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("connection created", "id", c.ID, "kind", c.Kind)
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM connections WHERE id = $1",
		id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("connection deleted", "id", id)
	return nil
}

// Validate confirms a machine-detected edge.
func (r *repo) Validate(ctx context.Context, id uuid.UUID) (*Connection, error) {
	q := fmt.Sprintf(`
		UPDATE connections
		SET validated = true, updated_at = now()
		WHERE id = $1
		RETURNING %s`, connectionColumns)

	c, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanConnection)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("connection validated", "id", id)
	return &c, nil
}

// AcceptReview confirms a needs-review successor: it becomes active and
// validated.
func (r *repo) AcceptReview(ctx context.Context, id uuid.UUID) (*Connection, error) {
	q := fmt.Sprintf(`
		UPDATE connections
		SET status = $1, validated = true, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING %s`, connectionColumns)

	c, err := repository.QueryOne(ctx, r.db, q, []any{StatusActive, id, StatusNeedsReview}, scanConnection)
	if err != nil {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrNotReviewable
	}

	r.logger.Info("connection review accepted", "id", id)
	return &c, nil
}

// RejectReview discards a needs-review successor and marks its origin lost.
func (r *repo) RejectReview(ctx context.Context, id uuid.UUID) (*Connection, error) {
	c, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusNeedsReview {
		return nil, ErrNotReviewable
	}

	rejected, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Connection, error) {
		q := fmt.Sprintf(`
			UPDATE connections
			SET status = $1, updated_at = now()
			WHERE id = $2
			RETURNING %s`, connectionColumns)

		out, err := repository.QueryOne(ctx, tx, q, []any{StatusLost, id}, scanConnection)
		if err != nil {
			return Connection{}, err
		}

		if c.OriginID != nil {
			if err := repository.ExecExpectOne(
				ctx, tx,
				"UPDATE connections SET status = $1, updated_at = now() WHERE id = $2",
				StatusLost, *c.OriginID,
			); err != nil {
				return Connection{}, fmt.Errorf("mark origin lost: %w", err)
			}
		}

		return out, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("connection review rejected", "id", id)
	return &rejected, nil
}

// Supersede inserts a remapped successor edge and marks the original
// superseded in one transaction. The successor carries the original's
// kind, strength, and detector, plus remapping provenance.
func (r *repo) Supersede(ctx context.Context, originalID uuid.UUID, succ Successor) (*Connection, error) {
	orig, err := r.Find(ctx, originalID)
	if err != nil {
		return nil, err
	}

	status := StatusActive
	if !succ.Validated {
		status = StatusNeedsReview
	}

	insert := fmt.Sprintf(`
		INSERT INTO connections(id, source_segment_id, target_segment_id, source_document_id,
			target_document_id, kind, strength, validated, status, origin_id,
			source_similarity, target_similarity, detected_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING %s`, connectionColumns)

	args := []any{
		uuid.New(), succ.SourceSegmentID, succ.TargetSegmentID,
		orig.SourceDocumentID, orig.TargetDocumentID,
		orig.Kind, orig.Strength, succ.Validated, status, originalID,
		succ.SourceSimilarity, succ.TargetSimilarity, orig.DetectedBy,
	}

	successor, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Connection, error) {
		out, err := repository.QueryOne(ctx, tx, insert, args, scanConnection)
		if err != nil {
			return Connection{}, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE connections SET status = $1, updated_at = now() WHERE id = $2",
			StatusSuperseded, originalID,
		); err != nil {
			return Connection{}, fmt.Errorf("mark original superseded: %w", err)
		}

		return out, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("connection superseded",
		"original_id", originalID,
		"successor_id", successor.ID,
		"status", status,
	)
	return &successor, nil
}

// MarkLost records that a connection could not be remapped. The edge and
// its measured similarities are retained for audit.
func (r *repo) MarkLost(ctx context.Context, id uuid.UUID, sourceSim, targetSim *float64) error {
	err := repository.ExecExpectOne(
		ctx, r.db, `
		UPDATE connections
		SET status = $1, source_similarity = $2, target_similarity = $3, updated_at = now()
		WHERE id = $4`,
		StatusLost, sourceSim, targetSim, id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("connection lost", "id", id)
	return nil
}

// PurgeUnvalidated deletes unvalidated detections referencing segments of
// the given generation. Called from reprocessing cleanup once the old
// generation is gone.
func (r *repo) PurgeUnvalidated(ctx context.Context, generationID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM connections
		WHERE validated = false
			AND (source_segment_id IN (SELECT id FROM segments WHERE generation_id = $1)
				OR target_segment_id IN (SELECT id FROM segments WHERE generation_id = $1))`,
		generationID,
	)
	if err != nil {
		return 0, fmt.Errorf("purge unvalidated connections: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if rows > 0 {
		r.logger.Info("unvalidated connections purged",
			"generation_id", generationID,
			"count", rows,
		)
	}
	return int(rows), nil
}
