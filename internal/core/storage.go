package core

import (
	"fmt"

	"vendcore/internal/infra/persistence/memory"
	"vendcore/internal/infra/persistence/sqlite"
	"vendcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory StorageDriver = "memory" // in-memory only (tests / ephemeral)
	StorageSQLite StorageDriver = "sqlite" // embedded sqlite file
)

// StorageOptions selects and configures a storage backend.
type StorageOptions struct {
	Driver StorageDriver
	// SQLitePath is the database file location when Driver is sqlite.
	// Defaults to ./vendcore.db.
	SQLitePath string
}

// OpenPersistentStore constructs the backend selected by opts. SQLite is the
// single production backend; memory serves tests and ephemeral runs.
func OpenPersistentStore(opts StorageOptions, engine *domain.RulesEngine) (PersistentStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(opts.SQLitePath, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
