// Package document defines the storage contracts shared by the service
// layer and the persistence backends. Snapshots are opaque byte payloads
// produced by the engine codec; stores never inspect their contents.
package document

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id has no persisted record.
var ErrNotFound = errors.New("document not found")

// Record is a persisted document snapshot together with its bookkeeping
// columns. Generation mirrors the engine generation at save time so callers
// can detect stale writes without decoding the snapshot.
type Record struct {
	ID         string
	Generation uint32
	Snapshot   []byte
	UpdatedAt  time.Time
}

// Info describes a persisted document without its snapshot payload.
type Info struct {
	ID         string    `json:"id"`
	Generation uint32    `json:"generation"`
	SizeBytes  int64     `json:"size_bytes"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PersistentStore is the interface every storage backend implements.
// Save is an upsert keyed by Record.ID. Load returns ErrNotFound when the
// id is unknown. Delete reports whether a record was removed. List returns
// infos ordered by id ascending.
type PersistentStore interface {
	SaveDocument(ctx context.Context, rec Record) error
	LoadDocument(ctx context.Context, id string) (Record, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
	ListDocuments(ctx context.Context) ([]Info, error)
	Close() error
}
