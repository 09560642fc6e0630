// Package postgres implements a PostgreSQL-backed document store for
// multi-node deployments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"drawcore/pkg/document"
)

var _ document.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/drawcore?sslmode=disable"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	generation BIGINT NOT NULL,
	snapshot BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// Store persists one row per document in a documents table.
type Store struct {
	db *sql.DB
}

// NewStore connects to Postgres using the provided DSN (falls back to a
// local default) and ensures the documents table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveDocument(ctx context.Context, rec document.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(id, generation, snapshot, updated_at) VALUES($1,$2,$3,$4)
		 ON CONFLICT(id) DO UPDATE SET generation=excluded.generation, snapshot=excluded.snapshot, updated_at=excluded.updated_at`,
		rec.ID, int64(rec.Generation), rec.Snapshot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) LoadDocument(ctx context.Context, id string) (document.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT generation, snapshot, updated_at FROM documents WHERE id = $1`, id)
	var (
		rec document.Record
		gen int64
	)
	rec.ID = id
	if err := row.Scan(&gen, &rec.Snapshot, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return document.Record{}, document.ErrNotFound
		}
		return document.Record{}, fmt.Errorf("select document %s: %w", id, err)
	}
	rec.Generation = uint32(gen)
	return rec, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]document.Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, generation, LENGTH(snapshot), updated_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var infos []document.Info
	for rows.Next() {
		var (
			info document.Info
			gen  int64
		)
		if err := rows.Scan(&info.ID, &gen, &info.SizeBytes, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		info.Generation = uint32(gen)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
