package core

import (
	"context"
	"fmt"

	"idcard/internal/infra/persistence/memory"
	"idcard/internal/infra/persistence/postgres"
	redisstore "idcard/internal/infra/persistence/redis"
	"idcard/internal/infra/persistence/sqlite"
	"idcard/pkg/domain"
)

// StorageDriver identifies a concrete member store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis hashes
)

// StorageOptions selects and parameterizes a backend.
type StorageOptions struct {
	Driver         StorageDriver
	SQLitePath     string
	PostgresDSN    string
	RedisURL       string
	RedisNamespace string
}

// OpenMemberStore opens the backend named by opts.Driver, defaulting to sqlite.
func OpenMemberStore(ctx context.Context, opts StorageOptions) (domain.MemberStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		s, err := sqlite.NewStore(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis storage requires a url")
		}
		s, err := redisstore.NewStore(ctx, opts.RedisURL, opts.RedisNamespace)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
