package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deusflow/feedpress/internal/config"
	"github.com/deusflow/feedpress/internal/storage"
)

// OpenStore returns the state backend selected by STATE_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StateBackend {
	case config.BackendFile:
		return storage.NewFileStore(cfg.StateFile), nil
	case config.BackendBolt:
		return storage.OpenBoltStore(cfg.StateFile)
	case config.BackendPostgres:
		return storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// openStoreOrFallback never fails: when the configured backend cannot be
// opened the run dedups against an in-memory store. Nothing recorded in that
// run reaches the configured backend, so the next run may publish those links
// again.
func openStoreOrFallback(ctx context.Context, cfg *config.Config, log *slog.Logger) storage.Store {
	store, err := OpenStore(ctx, cfg)
	if err == nil {
		log.Info("state backend ready", "backend", cfg.StateBackend)
		return store
	}

	log.Error("state backend unavailable, published links will NOT be persisted this run",
		"backend", cfg.StateBackend, "error", err)
	return storage.NewMemoryStore()
}
