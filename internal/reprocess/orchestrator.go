package reprocess

import (
	"context"
	"errors"
	"fmt"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
	"github.com/google/uuid"
)

// orchestrator drives one reprocessing run through the linear state
// graph: extract, segment, embed, recover annotations, recover
// connections, activate, cleanup. Any node error or cancellation before
// activation rolls the document back to its previous generation.
type orchestrator struct {
	rt    *Runtime
	store *runStore
}

func (o *orchestrator) buildGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("anchorage-reprocess")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := []struct {
		name string
		node state.StateNode
	}{
		{"extract", o.extractNode()},
		{"segment", o.segmentNode()},
		{"embed", o.embedNode()},
		{"recover-annotations", o.recoverAnnotationsNode()},
		{"recover-connections", o.recoverConnectionsNode()},
		{"activate", o.activateNode()},
		{"cleanup", o.cleanupNode()},
	}

	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	for i := 0; i < len(nodes)-1; i++ {
		if err := graph.AddEdge(nodes[i].name, nodes[i+1].name, nil); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint(nodes[0].name); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint(nodes[len(nodes)-1].name); err != nil {
		return nil, err
	}

	return graph, nil
}

// execute runs the graph for one run record and settles the terminal
// state. The reprocess lock is held by the caller.
func (o *orchestrator) execute(ctx context.Context, run *Run) {
	rs := &runState{run: run}
	defer func() {
		if rs.index != nil {
			rs.index.Close()
		}
	}()

	err := o.runGraph(ctx, rs)
	if err == nil {
		o.store.recordCounts(context.WithoutCancel(ctx), run.ID, rs.counts)
		o.store.finish(context.WithoutCancel(ctx), run.ID, StageCompleted, nil)
		o.rt.Logger.Info("reprocess run completed",
			"run_id", run.ID,
			"document_id", run.DocumentID,
		)
		return
	}

	o.settleFailure(context.WithoutCancel(ctx), rs, err)
}

func (o *orchestrator) runGraph(ctx context.Context, rs *runState) error {
	graph, err := o.buildGraph()
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	s := state.New(nil)
	s = s.Set(keyRunState, rs)

	if _, err := graph.Execute(ctx, s); err != nil {
		return err
	}
	return nil
}

// settleFailure rolls back when possible and records the terminal failed
// state. Rollback restores the previous generation pointer and discards
// the partially-built generation; once activation has committed there is
// nothing to restore, so the error is recorded as-is. A rollback failure
// is never swallowed.
func (o *orchestrator) settleFailure(ctx context.Context, rs *runState, runErr error) {
	run := rs.run
	o.rt.Logger.Error("reprocess run failed",
		"run_id", run.ID,
		"document_id", run.DocumentID,
		"error", runErr,
	)

	if rs.generation != nil && !rs.activated {
		o.store.progress(ctx, run.ID, StageRollingBack, 0, "rolling back")

		var currentActive *uuid.UUID
		if rs.doc != nil {
			currentActive = rs.doc.ActiveGenerationID
		}

		if rbErr := o.rt.Segments.Restore(ctx, run.DocumentID, currentActive, rs.generation.ID); rbErr != nil {
			joined := errors.Join(runErr, fmt.Errorf("%w: %w", ErrRollbackFailed, rbErr))
			o.rt.Logger.Error("reprocess rollback failed",
				"run_id", run.ID,
				"document_id", run.DocumentID,
				"error", rbErr,
			)
			o.store.finish(ctx, run.ID, StageFailed, joined)
			return
		}
	}

	o.store.recordCounts(ctx, run.ID, rs.counts)
	o.store.finish(ctx, run.ID, StageFailed, runErr)
}
