package reprocess

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/repository"
)

const runColumns = `id, document_id, stage, percent, message, error,
	annotations_resolved, annotations_review, annotations_lost,
	connections_resolved, connections_review, connections_lost,
	started_at, finished_at`

// runStore persists reprocess run records.
type runStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func newRunStore(db *sql.DB, logger *slog.Logger) *runStore {
	return &runStore{db: db, logger: logger}
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.Stage,
		&r.Percent,
		&r.Message,
		&r.Error,
		&r.AnnotationsResolved,
		&r.AnnotationsReview,
		&r.AnnotationsLost,
		&r.ConnectionsResolved,
		&r.ConnectionsReview,
		&r.ConnectionsLost,
		&r.StartedAt,
		&r.FinishedAt,
	)
	return r, err
}

func (s *runStore) create(ctx context.Context, documentID uuid.UUID) (*Run, error) {
	q := fmt.Sprintf(`
		INSERT INTO reprocess_runs(id, document_id, stage, percent, message)
		VALUES ($1, $2, $3, 0, 'queued')
		RETURNING %s`, runColumns)

	r, err := repository.QueryOne(ctx, s.db, q, []any{uuid.New(), documentID, StagePending}, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *runStore) find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q := fmt.Sprintf("SELECT %s FROM reprocess_runs WHERE id = $1", runColumns)

	r, err := repository.QueryOne(ctx, s.db, q, []any{id}, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *runStore) listByDocument(ctx context.Context, documentID uuid.UUID) ([]Run, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM reprocess_runs
		WHERE document_id = $1
		ORDER BY started_at DESC`, runColumns)

	runs, err := repository.QueryMany(ctx, s.db, q, []any{documentID}, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query reprocess runs: %w", err)
	}
	return runs, nil
}

// progress records a stage transition. Failures to write progress are
// logged, not propagated: a run must not fail because its status row
// could not be updated.
func (s *runStore) progress(ctx context.Context, id uuid.UUID, stage string, percent int, message string) {
	err := repository.ExecExpectOne(
		ctx, s.db, `
		UPDATE reprocess_runs
		SET stage = $1, percent = $2, message = $3
		WHERE id = $4`,
		stage, percent, message, id,
	)
	if err != nil {
		s.logger.Warn("run progress update failed",
			"run_id", id,
			"stage", stage,
			"error", err,
		)
	}
}

func (s *runStore) recordCounts(ctx context.Context, id uuid.UUID, c Counts) {
	err := repository.ExecExpectOne(
		ctx, s.db, `
		UPDATE reprocess_runs
		SET annotations_resolved = $1, annotations_review = $2, annotations_lost = $3,
			connections_resolved = $4, connections_review = $5, connections_lost = $6
		WHERE id = $7`,
		c.AnnotationsResolved, c.AnnotationsReview, c.AnnotationsLost,
		c.ConnectionsResolved, c.ConnectionsReview, c.ConnectionsLost,
		id,
	)
	if err != nil {
		s.logger.Warn("run counts update failed", "run_id", id, "error", err)
	}
}

func (s *runStore) finish(ctx context.Context, id uuid.UUID, stage string, runErr error) {
	var msg *string
	if runErr != nil {
		text := runErr.Error()
		msg = &text
	}

	err := repository.ExecExpectOne(
		ctx, s.db, `
		UPDATE reprocess_runs
		SET stage = $1, error = $2, finished_at = now(),
			percent = CASE WHEN $1 = $3 THEN 100 ELSE percent END
		WHERE id = $4`,
		stage, msg, StageCompleted, id,
	)
	if err != nil {
		s.logger.Warn("run finish update failed", "run_id", id, "error", err)
	}
}
