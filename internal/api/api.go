// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"net/http"

	"github.com/stillharbor/anchorage/internal/config"
	"github.com/stillharbor/anchorage/internal/infrastructure"
	"github.com/stillharbor/anchorage/pkg/middleware"
	"github.com/stillharbor/anchorage/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// ctx bounds background reprocessing runs; pass the lifecycle context so
// in-flight runs take the rollback path on shutdown.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(ctx, cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
