// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, collaborator
// clients) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/stillharbor/anchorage/internal/config"
	"github.com/stillharbor/anchorage/internal/embedding"
	"github.com/stillharbor/anchorage/internal/semantic"
	"github.com/stillharbor/anchorage/pkg/database"
	"github.com/stillharbor/anchorage/pkg/lifecycle"
	"github.com/stillharbor/anchorage/pkg/match"
	"github.com/stillharbor/anchorage/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, and the embedding and semantic
// collaborators recovery depends on. Finder is nil when the semantic
// agent is disabled; the position matcher skips that phase.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Embedder  embedding.Embedder
	Finder    match.SpanFinder
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	client := embedding.NewClient(&cfg.Embedding, cfg.Recovery.Retry, logger)
	embedder := embedding.NewCached(client, cfg.Embedding.CacheSize)

	var finder match.SpanFinder
	if cfg.Agent.Enabled {
		finder = semantic.NewFinder(cfg.Agent.Agent(), cfg.Recovery.Retry, logger)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Embedder:  embedder,
		Finder:    finder,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
