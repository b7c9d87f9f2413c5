package store

import (
	"context"
	"fmt"

	"stratolift/internal/cache"
	"stratolift/internal/config"
	"stratolift/internal/database"
)

// Open builds the backend selected by cfg.Store.Backend, sealed when a
// secret is configured. The returned close func releases connections.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, func() error, error) {
	var (
		backend Store
		closeFn = func() error { return nil }
	)

	switch cfg.Store.Backend {
	case "memory":
		backend = NewMemoryStore()
	case "file":
		fs, err := NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		backend = fs
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		backend = NewRedisStore(client, cfg.Store.KeyPrefix)
		closeFn = client.Close
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		ps, err := NewPostgresStore(pool, cfg.Postgres.Table)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		backend = ps
		closeFn = func() error {
			pool.Close()
			return nil
		}
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.Secret == "" {
		return backend, closeFn, nil
	}
	sealed, err := NewSealed(backend, cfg.Store.Secret)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return sealed, closeFn, nil
}
