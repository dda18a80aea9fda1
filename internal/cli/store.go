package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/buyerscan/buyerscan/internal/core/config"
	"github.com/buyerscan/buyerscan/internal/infra/storage"
	filestore "github.com/buyerscan/buyerscan/internal/infra/storage/file"
	"github.com/buyerscan/buyerscan/internal/infra/storage/memory"
	"github.com/buyerscan/buyerscan/internal/infra/storage/postgres"
	redisstore "github.com/buyerscan/buyerscan/internal/infra/storage/redis"
)

// buildStore constructs the configured checkpoint backend. The returned
// cleanup releases any held connections.
func buildStore(
	ctx context.Context,
	cfg *config.AppConfig,
) (storage.CheckpointStore, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Storage.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Info("Using PostgreSQL storage")
		return postgres.NewCheckpointRepo(db), func() { _ = db.Close() }, nil

	case "redis":
		store, err := redisstore.NewStore(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Using Redis storage")
		return store, func() { _ = store.Close() }, nil

	case "memory":
		slog.Info("Using Memory storage")
		return memory.NewStore(), func() {}, nil

	default:
		slog.Info("Using File storage", "path", cfg.Storage.File.Path)
		return filestore.NewStore(cfg.Storage.File.Path), func() {}, nil
	}
}
