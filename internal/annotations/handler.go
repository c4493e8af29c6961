package annotations

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/handlers"
	"github.com/stillharbor/anchorage/pkg/pagination"
	"github.com/stillharbor/anchorage/pkg/routes"
)

// Handler provides HTTP endpoints for annotation operations, including
// the review workflow over recovered items.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "annotations"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for annotation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/annotations",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "PATCH", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/{id}/review/accept", Handler: h.AcceptReview},
			{Method: "POST", Pattern: "/{id}/review/reject", Handler: h.RejectReview},
			{Method: "POST", Pattern: "/review/accept-all", Handler: h.AcceptAllReview},
			{Method: "POST", Pattern: "/review/discard-all", Handler: h.DiscardAllReview},
			{Method: "GET", Pattern: "/lost", Handler: h.ListLost},
		},
	}
}

// List returns a paginated list of annotations with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// ListLost returns the audit listing of lost annotations for a document.
// Lost items keep their original captured text and offsets.
func (h *Handler) ListLost(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	lost := StatusLost
	filters.Status = &lost

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single annotation by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching annotations.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Create records a new annotation from a JSON body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, a)
}

// Update changes an annotation's user-editable fields (color, note).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Delete removes an annotation by its UUID path parameter.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AcceptReview confirms a speculative recovery, returning the annotation to active.
func (h *Handler) AcceptReview(w http.ResponseWriter, r *http.Request) {
	h.resolveReview(w, r, h.sys.AcceptReview)
}

// RejectReview discards a speculative recovery, marking the annotation lost.
func (h *Handler) RejectReview(w http.ResponseWriter, r *http.Request) {
	h.resolveReview(w, r, h.sys.RejectReview)
}

func (h *Handler) resolveReview(
	w http.ResponseWriter,
	r *http.Request,
	resolve func(ctx context.Context, id uuid.UUID) (*Annotation, error),
) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := resolve(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// AcceptAllReview accepts every needs-review annotation for a document.
func (h *Handler) AcceptAllReview(w http.ResponseWriter, r *http.Request) {
	h.resolveAllReview(w, r, h.sys.AcceptAllReview)
}

// DiscardAllReview discards every needs-review annotation for a document.
func (h *Handler) DiscardAllReview(w http.ResponseWriter, r *http.Request) {
	h.resolveAllReview(w, r, h.sys.DiscardAllReview)
}

func (h *Handler) resolveAllReview(
	w http.ResponseWriter,
	r *http.Request,
	resolve func(ctx context.Context, documentID uuid.UUID) (int, error),
) {
	documentID, err := uuid.Parse(r.URL.Query().Get("document_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	count, err := resolve(r.Context(), documentID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"updated": count})
}
