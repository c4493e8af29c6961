package api

import (
	"net/http"

	"github.com/stillharbor/anchorage/internal/config"
	"github.com/stillharbor/anchorage/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	storage := newStorageHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.API.MaxStorageListSize,
	)

	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Segments.Handler().Routes(),
		domain.Annotations.Handler().Routes(),
		domain.Connections.Handler().Routes(),
		domain.Reprocess.Handler().Routes(),
		storage.routes(),
	)
}
