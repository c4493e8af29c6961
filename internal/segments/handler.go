package segments

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/handlers"
	"github.com/stillharbor/anchorage/pkg/pagination"
	"github.com/stillharbor/anchorage/pkg/routes"
)

// Handler provides HTTP endpoints for segment and generation reads.
// Writes go through the reprocessing orchestrator, not this handler.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "segments"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for segment endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/segments",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
		Children: []routes.Group{
			{
				Prefix: "/generations",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{id}", Handler: h.FindGeneration},
				},
			},
		},
	}
}

// List returns a paginated list of segments filtered by generation or document.
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

// Find returns a single segment by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidSegment)
		return
	}

	seg, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, seg)
}

// FindGeneration returns a single generation by its UUID path parameter.
func (h *Handler) FindGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidSegment)
		return
	}

	gen, err := h.sys.FindGeneration(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, gen)
}
