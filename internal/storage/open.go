package storage

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a state backend.
type Options struct {
	Backend  string
	Path     string
	RedisURL string
}

// Open creates the store named by opts.Backend, migrating it when needed.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to migrate state database: %w", err)
		}
		return s, nil
	case BackendRedis:
		return NewRedisStore(ctx, RedisConfig{URL: opts.RedisURL})
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend: %s", opts.Backend)
	}
}
