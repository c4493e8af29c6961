package reprocess

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// System defines the public contract for reprocessing operations.
// Trigger acquires the document's exclusivity lock, records a run, and
// executes it in the background; the returned Run is in the pending
// stage and can be polled by id.
type System interface {
	Handler() *Handler

	Trigger(ctx context.Context, documentID uuid.UUID) (*Run, error)
	Find(ctx context.Context, id uuid.UUID) (*Run, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Run, error)
}

type service struct {
	rt      *Runtime
	store   *runStore
	baseCtx context.Context
}

// New creates the reprocessing system. baseCtx bounds background runs:
// when the server shuts down, in-flight runs are cancelled and take the
// rollback path.
func New(baseCtx context.Context, db *sql.DB, rt *Runtime) System {
	logger := rt.Logger.With("system", "reprocess")
	rt.Logger = logger

	return &service{
		rt:      rt,
		store:   newRunStore(db, logger),
		baseCtx: baseCtx,
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.rt.Logger)
}

func (s *service) Trigger(ctx context.Context, documentID uuid.UUID) (*Run, error) {
	if _, err := s.rt.Documents.Find(ctx, documentID); err != nil {
		return nil, err
	}

	if err := s.rt.Documents.BeginReprocess(ctx, documentID); err != nil {
		return nil, err
	}

	run, err := s.store.create(ctx, documentID)
	if err != nil {
		if unlockErr := s.rt.Documents.EndReprocess(ctx, documentID); unlockErr != nil {
			s.rt.Logger.Error("reprocess unlock failed", "document_id", documentID, "error", unlockErr)
		}
		return nil, err
	}

	s.rt.Logger.Info("reprocess run triggered",
		"run_id", run.ID,
		"document_id", documentID,
	)

	go s.run(run)

	return run, nil
}

func (s *service) run(run *Run) {
	defer func() {
		unlockCtx := context.WithoutCancel(s.baseCtx)
		if err := s.rt.Documents.EndReprocess(unlockCtx, run.DocumentID); err != nil {
			s.rt.Logger.Error("reprocess unlock failed",
				"document_id", run.DocumentID,
				"error", err,
			)
		}
	}()

	o := &orchestrator{rt: s.rt, store: s.store}
	o.execute(s.baseCtx, run)
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	return s.store.find(ctx, id)
}

func (s *service) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Run, error) {
	return s.store.listByDocument(ctx, documentID)
}
