package insight

import (
	"context"
	"fmt"

	"github.com/labelwise/insightd/internal/store"
)

// OpenStore connects the storage backend selected in the config. The
// postgres backend runs migrations on connect.
func OpenStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return store.NewMemory(), nil

	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Storage.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pg, nil

	case "redis":
		r := cfg.Storage.Redis
		rs, err := store.NewRedis(ctx, r.Addr, r.Password, r.DB)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return rs, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
