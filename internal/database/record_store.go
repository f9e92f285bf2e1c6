package database

import (
	"context"
	"fmt"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// OpenRecordBackend connects the backend selected by STORE_DRIVER. The
// returned close func releases whatever connection the backend owns; the
// shared Redis client is owned by the caller.
func OpenRecordBackend(ctx context.Context, cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (store.Backend, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("Using in-memory record store, data is lost on restart")
		return store.NewMemoryBackend(), noop, nil

	case "file":
		b, err := store.NewFileBackend(cfg.StoreFileDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.StoreFileDir).Msg("File record store ready")
		return b, noop, nil

	case "redis":
		return store.NewRedisBackend(rdb), noop, nil

	case "postgres":
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresBackend(pool), pool.Close, nil

	case "mongo":
		client, db, err := NewMongoDatabase(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return store.NewMongoBackend(db), func() { _ = client.Disconnect(context.Background()) }, nil

	case "sqlite":
		b, err := store.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("SQLite record store ready")
		return b, func() { _ = b.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
