package reprocess

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/handlers"
	"github.com/stillharbor/anchorage/pkg/routes"
)

// Handler provides HTTP endpoints for triggering and observing
// reprocessing runs.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "reprocess"),
	}
}

// Routes returns the route group definition for reprocessing endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reprocess",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/documents/{id}", Handler: h.Trigger},
			{Method: "GET", Pattern: "/documents/{id}", Handler: h.ListByDocument},
			{Method: "GET", Pattern: "/runs/{id}", Handler: h.Find},
		},
	}
}

// Trigger starts a background reprocessing run for a document. Responds
// 202 with the pending run record; 409 when a run is already in flight.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	run, err := h.sys.Trigger(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, run)
}

// Find returns one run's progress and outcome by run id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	run, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, run)
}

// ListByDocument returns a document's runs, newest first.
func (h *Handler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	runs, err := h.sys.ListByDocument(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, runs)
}
