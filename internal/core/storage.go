package core

import (
	"fmt"
	"os"

	"drawcore/internal/infra/persistence/memory"
	"drawcore/pkg/document"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	// DocumentRecord aliases the persisted document record type.
	DocumentRecord = document.Record
	// DocumentInfo aliases the persisted document listing type.
	DocumentInfo = document.Info
	// PersistentStore aliases the storage backend interface.
	PersistentStore = document.PersistentStore
)

// ErrNotFound is returned when a document id has no persisted record.
var ErrNotFound = document.ErrNotFound

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	DRAWCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	DRAWCORE_SQLITE_PATH: path to sqlite file (default ./drawcore.db)
//	DRAWCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore() (PersistentStore, error) {
	driver := os.Getenv("DRAWCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return NewSQLiteStore(os.Getenv("DRAWCORE_SQLITE_PATH"))
	case StoragePostgres:
		return NewPostgresStore(os.Getenv("DRAWCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
