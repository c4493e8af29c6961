package reprocess_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/internal/documents"
	"github.com/stillharbor/anchorage/internal/reprocess"
)

type mockSystem struct {
	triggerFn func(ctx context.Context, documentID uuid.UUID) (*reprocess.Run, error)
	findFn    func(ctx context.Context, id uuid.UUID) (*reprocess.Run, error)
	listFn    func(ctx context.Context, documentID uuid.UUID) ([]reprocess.Run, error)
}

func (m *mockSystem) Handler() *reprocess.Handler { return nil }

func (m *mockSystem) Trigger(ctx context.Context, documentID uuid.UUID) (*reprocess.Run, error) {
	return m.triggerFn(ctx, documentID)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*reprocess.Run, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]reprocess.Run, error) {
	return m.listFn(ctx, documentID)
}

func newTestHandler(sys *mockSystem) *reprocess.Handler {
	return reprocess.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupMux(h *reprocess.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleRun() reprocess.Run {
	return reprocess.Run{
		ID:         uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		DocumentID: uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Stage:      reprocess.StagePending,
		Message:    "queued",
		StartedAt:  time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", reprocess.ErrNotFound, http.StatusNotFound},
		{"invalid input", reprocess.ErrInvalidInput, http.StatusBadRequest},
		{"document locked", documents.ErrReprocessing, http.StatusConflict},
		{"document missing", documents.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("find run: %w", reprocess.ErrNotFound), http.StatusNotFound},
		{"wrapped conflict", fmt.Errorf("trigger: %w", documents.ErrReprocessing), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reprocess.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestHandlerTrigger(t *testing.T) {
	run := sampleRun()

	t.Run("accepted", func(t *testing.T) {
		var captured uuid.UUID
		sys := &mockSystem{
			triggerFn: func(_ context.Context, documentID uuid.UUID) (*reprocess.Run, error) {
				captured = documentID
				return &run, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest(http.MethodPost, "/reprocess/documents/"+run.DocumentID.String(), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
		}
		if captured != run.DocumentID {
			t.Errorf("triggered document = %s, want %s", captured, run.DocumentID)
		}

		var got reprocess.Run
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Stage != reprocess.StagePending {
			t.Errorf("stage = %q, want %q", got.Stage, reprocess.StagePending)
		}
	})

	t.Run("invalid uuid", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		req := httptest.NewRequest(http.MethodPost, "/reprocess/documents/not-a-uuid", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("run already in flight", func(t *testing.T) {
		sys := &mockSystem{
			triggerFn: func(_ context.Context, _ uuid.UUID) (*reprocess.Run, error) {
				return nil, documents.ErrReprocessing
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest(http.MethodPost, "/reprocess/documents/"+run.DocumentID.String(), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("document missing", func(t *testing.T) {
		sys := &mockSystem{
			triggerFn: func(_ context.Context, _ uuid.UUID) (*reprocess.Run, error) {
				return nil, documents.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest(http.MethodPost, "/reprocess/documents/"+run.DocumentID.String(), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	run := sampleRun()

	t.Run("found", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, id uuid.UUID) (*reprocess.Run, error) {
				if id != run.ID {
					t.Errorf("find id = %s, want %s", id, run.ID)
				}
				return &run, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest(http.MethodGet, "/reprocess/runs/"+run.ID.String(), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var got reprocess.Run
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.ID != run.ID {
			t.Errorf("id = %s, want %s", got.ID, run.ID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, _ uuid.UUID) (*reprocess.Run, error) {
				return nil, reprocess.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest(http.MethodGet, "/reprocess/runs/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("invalid uuid", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		req := httptest.NewRequest(http.MethodGet, "/reprocess/runs/nope", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandlerListByDocument(t *testing.T) {
	run := sampleRun()
	finished := run
	finished.ID = uuid.New()
	finished.Stage = reprocess.StageCompleted
	finished.Percent = 100

	sys := &mockSystem{
		listFn: func(_ context.Context, documentID uuid.UUID) ([]reprocess.Run, error) {
			if documentID != run.DocumentID {
				t.Errorf("list document = %s, want %s", documentID, run.DocumentID)
			}
			return []reprocess.Run{finished, run}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	req := httptest.NewRequest(http.MethodGet, "/reprocess/documents/"+run.DocumentID.String(), nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []reprocess.Run
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("runs = %d, want 2", len(got))
	}
	if got[0].Stage != reprocess.StageCompleted {
		t.Errorf("first stage = %q, want %q", got[0].Stage, reprocess.StageCompleted)
	}
}

func TestHandlerRoutes(t *testing.T) {
	group := newTestHandler(&mockSystem{}).Routes()

	if group.Prefix != "/reprocess" {
		t.Errorf("prefix = %q, want %q", group.Prefix, "/reprocess")
	}

	want := []struct {
		method  string
		pattern string
	}{
		{"POST", "/documents/{id}"},
		{"GET", "/documents/{id}"},
		{"GET", "/runs/{id}"},
	}

	if len(group.Routes) != len(want) {
		t.Fatalf("routes = %d, want %d", len(group.Routes), len(want))
	}
	for i, w := range want {
		if group.Routes[i].Method != w.method || group.Routes[i].Pattern != w.pattern {
			t.Errorf("route %d = %s %s, want %s %s",
				i, group.Routes[i].Method, group.Routes[i].Pattern, w.method, w.pattern)
		}
	}
}
