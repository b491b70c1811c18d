package core

import (
	"context"
	"firmcore/internal/config"
	"firmcore/internal/infra/persistence/memory"
	"firmcore/internal/infra/persistence/postgres"
	"firmcore/internal/infra/persistence/sqlite"
	"firmcore/pkg/domain"
	"fmt"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver = config.StorageDriver

const (
	StorageMemory   = config.StorageMemory   // in-memory only (tests / ephemeral)
	StorageSQLite   = config.StorageSQLite   // embedded sqlite file
	StoragePostgres = config.StoragePostgres // PostgreSQL server
)

// OpenPersistentStore selects a backend from the storage configuration.
// An empty driver means sqlite.
func OpenPersistentStore(ctx context.Context, cfg config.Storage) (domain.PersistentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
