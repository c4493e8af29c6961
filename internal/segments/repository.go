package segments

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

const generationColumns = "id, document_id, status, text_body, segment_count, created_at, activated_at"

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a segment repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "segments"),
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
) (*pagination.PageResult[Segment], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Content")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count segments: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	segs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSegment)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}

	result := pagination.NewPageResult(segs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Segment, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSegment)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) ByGeneration(ctx context.Context, generationID uuid.UUID) ([]Segment, error) {
	q := `
		SELECT id, generation_id, document_id, sequence_index, start_offset, end_offset, content, embedding, created_at
		FROM segments
		WHERE generation_id = $1
		ORDER BY sequence_index`

	segs, err := repository.QueryMany(ctx, r.db, q, []any{generationID}, scanSegment)
	if err != nil {
		return nil, fmt.Errorf("query generation segments: %w", err)
	}
	return segs, nil
}

func (r *repo) ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Segment, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Segment{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	q := fmt.Sprintf(`
		SELECT id, generation_id, document_id, sequence_index, start_offset, end_offset, content, embedding, created_at
		FROM segments
		WHERE id IN (%s)`,
		strings.Join(placeholders, ", "),
	)

	segs, err := repository.QueryMany(ctx, r.db, q, args, scanSegment)
	if err != nil {
		return nil, fmt.Errorf("query segments by id: %w", err)
	}

	byID := make(map[uuid.UUID]Segment, len(segs))
	for _, s := range segs {
		byID[s.ID] = s
	}
	return byID, nil
}

func (r *repo) CreateGeneration(ctx context.Context, documentID uuid.UUID, textBody string) (*Generation, error) {
	q := fmt.Sprintf(`
		INSERT INTO generations(id, document_id, status, text_body, segment_count)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING %s`, generationColumns)

	g, err := repository.QueryOne(
		ctx, r.db, q,
		[]any{uuid.New(), documentID, GenerationPending, textBody},
		scanGeneration,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrGenerationNotFound, ErrDuplicate)
	}

	r.logger.Info("generation created", "id", g.ID, "document_id", documentID)
	return &g, nil
}

func (r *repo) FindGeneration(ctx context.Context, id uuid.UUID) (*Generation, error) {
	q := fmt.Sprintf("SELECT %s FROM generations WHERE id = $1", generationColumns)

	g, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanGeneration)
	if err != nil {
		return nil, repository.MapError(err, ErrGenerationNotFound, ErrDuplicate)
	}
	return &g, nil
}

func (r *repo) ActiveGeneration(ctx context.Context, documentID uuid.UUID) (*Generation, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM generations
		WHERE document_id = $1 AND status = $2`, generationColumns)

	g, err := repository.QueryOne(ctx, r.db, q, []any{documentID, GenerationActive}, scanGeneration)
	if err != nil {
		return nil, repository.MapError(err, ErrNoActiveGeneration, ErrDuplicate)
	}
	return &g, nil
}

func (r *repo) ListGenerations(ctx context.Context, documentID uuid.UUID) ([]Generation, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM generations
		WHERE document_id = $1
		ORDER BY created_at DESC`, generationColumns)

	gens, err := repository.QueryMany(ctx, r.db, q, []any{documentID}, scanGeneration)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	return gens, nil
}

func (r *repo) InsertSegments(ctx context.Context, generationID uuid.UUID, inputs []SegmentInput) ([]Segment, error) {
	gen, err := r.FindGeneration(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if gen.Status != GenerationPending {
		return nil, ErrNotPending
	}

	for _, in := range inputs {
		if in.StartOffset < 0 || in.EndOffset < in.StartOffset {
			return nil, fmt.Errorf("%w: offsets [%d,%d)", ErrInvalidSegment, in.StartOffset, in.EndOffset)
		}
	}

	insert := `
		INSERT INTO segments(id, generation_id, document_id, sequence_index, start_offset, end_offset, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, generation_id, document_id, sequence_index, start_offset, end_offset, content, embedding, created_at`

	segs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Segment, error) {
		out := make([]Segment, 0, len(inputs))
		for _, in := range inputs {
			args := []any{
				uuid.New(), generationID, gen.DocumentID,
				in.SequenceIndex, in.StartOffset, in.EndOffset, in.Content,
			}
			s, err := repository.QueryOne(ctx, tx, insert, args, scanSegment)
			if err != nil {
				return nil, fmt.Errorf("insert segment %d: %w", in.SequenceIndex, err)
			}
			out = append(out, s)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE generations SET segment_count = $1 WHERE id = $2",
			len(out), generationID,
		); err != nil {
			return nil, fmt.Errorf("update segment count: %w", err)
		}

		return out, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrGenerationNotFound, ErrDuplicate)
	}

	r.logger.Info("segments inserted",
		"generation_id", generationID,
		"count", len(segs),
	)
	return segs, nil
}

func (r *repo) SetEmbedding(ctx context.Context, segmentID uuid.UUID, vec []float32) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE segments SET embedding = $1 WHERE id = $2",
		encodeEmbedding(vec), segmentID,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

// Activate promotes a pending generation and retires the previous active
// one in a single transaction. It returns the previous active generation
// id so a later rollback can restore it.
func (r *repo) Activate(ctx context.Context, documentID, generationID uuid.UUID) (*uuid.UUID, error) {
	gen, err := r.FindGeneration(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if gen.DocumentID != documentID {
		return nil, ErrGenerationNotFound
	}
	if gen.Status != GenerationPending {
		return nil, ErrNotPending
	}

	previous, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*uuid.UUID, error) {
		var prev *uuid.UUID
		err := tx.QueryRowContext(ctx,
			"SELECT active_generation_id FROM documents WHERE id = $1 FOR UPDATE",
			documentID,
		).Scan(&prev)
		if err != nil {
			return nil, fmt.Errorf("lock document: %w", err)
		}

		if prev != nil {
			if err := repository.ExecExpectOne(
				ctx, tx,
				"UPDATE generations SET status = $1 WHERE id = $2",
				GenerationRetired, *prev,
			); err != nil {
				return nil, fmt.Errorf("retire generation %s: %w", *prev, err)
			}
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE generations SET status = $1, activated_at = now() WHERE id = $2",
			GenerationActive, generationID,
		); err != nil {
			return nil, fmt.Errorf("activate generation %s: %w", generationID, err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET active_generation_id = $1, updated_at = now() WHERE id = $2",
			generationID, documentID,
		); err != nil {
			return nil, fmt.Errorf("point document at generation: %w", err)
		}

		return prev, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrGenerationNotFound, ErrDuplicate)
	}

	r.logger.Info("generation activated",
		"document_id", documentID,
		"generation_id", generationID,
	)
	return previous, nil
}

// Restore undoes a failed run: the previous generation becomes active
// again (when there was one), the document pointer is restored, and the
// failed generation and its segments are discarded.
func (r *repo) Restore(ctx context.Context, documentID uuid.UUID, previous *uuid.UUID, failed uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if previous != nil {
			if err := repository.ExecExpectOne(
				ctx, tx,
				"UPDATE generations SET status = $1 WHERE id = $2",
				GenerationActive, *previous,
			); err != nil {
				return struct{}{}, fmt.Errorf("restore generation %s: %w", *previous, err)
			}
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET active_generation_id = $1, updated_at = now() WHERE id = $2",
			previous, documentID,
		); err != nil {
			return struct{}{}, fmt.Errorf("restore document pointer: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM segments WHERE generation_id = $1",
			failed,
		); err != nil {
			return struct{}{}, fmt.Errorf("delete failed segments: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE generations SET status = $1 WHERE id = $2",
			GenerationDiscarded, failed,
		); err != nil {
			return struct{}{}, fmt.Errorf("discard generation %s: %w", failed, err)
		}

		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrGenerationNotFound, ErrDuplicate)
	}

	r.logger.Info("generation restored",
		"document_id", documentID,
		"failed_generation_id", failed,
	)
	return nil
}

// DeleteGeneration removes a retired generation and its segments.
// Called from reprocessing cleanup after the swap succeeded.
func (r *repo) DeleteGeneration(ctx context.Context, generationID uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM segments WHERE generation_id = $1",
			generationID,
		); err != nil {
			return struct{}{}, fmt.Errorf("delete segments: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM generations WHERE id = $1",
			generationID,
		); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrGenerationNotFound, ErrDuplicate)
	}

	r.logger.Info("generation deleted", "generation_id", generationID)
	return nil
}
