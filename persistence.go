package hrdesk

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hrdesk/persist"
)

// openKV builds the storage backend selected by cfg. The returned closer
// releases its connections.
func openKV(ctx context.Context, cfg PersistenceConfig, logger *slog.Logger) (persist.KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case BackendMemory:
		return persist.NewMemory(), noop, nil

	case BackendFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := persist.DefaultDir()
			if err != nil {
				return nil, nil, err
			}
			dir = d
		}
		kv, err := persist.NewFile(dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil

	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		kv, err := persist.NewRedis(rdb, cfg.RedisPrefix, cfg.RedisTTL)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return kv, rdb.Close, nil

	case BackendSQLite:
		kv, err := persist.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil

	case BackendPostgres:
		owner := cfg.Owner
		if owner == "" {
			owner = currentUser()
		}
		kv, err := persist.OpenPostgres(ctx, cfg.PostgresDSN, cfg.PostgresTable, owner)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() error { kv.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown persistence backend %q", ErrInvalidConfig, cfg.Backend)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}
