// Package sqlite implements an embedded document store backed by a single
// SQLite file. This is the default backend for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"drawcore/pkg/document"
)

var _ document.PersistentStore = (*Store)(nil)

const defaultPath = "drawcore.db"

const schemaDDL = `CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	generation INTEGER NOT NULL,
	snapshot BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store persists one row per document in a documents table. Snapshots are
// stored verbatim as BLOBs.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite file at path and ensures
// the documents table exists. An empty path selects the default file in the
// working directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) SaveDocument(ctx context.Context, rec document.Record) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(id, generation, snapshot, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET generation=excluded.generation, snapshot=excluded.snapshot, updated_at=excluded.updated_at`,
		rec.ID, rec.Generation, rec.Snapshot, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) LoadDocument(ctx context.Context, id string) (document.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT generation, snapshot, updated_at FROM documents WHERE id = ?`, id)
	var (
		rec     = document.Record{ID: id}
		updated string
	)
	if err := row.Scan(&rec.Generation, &rec.Snapshot, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return document.Record{}, document.ErrNotFound
		}
		return document.Record{}, fmt.Errorf("select document %s: %w", id, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
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
			info    document.Info
			updated string
		)
		if err := rows.Scan(&info.ID, &info.Generation, &info.SizeBytes, &updated); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			info.UpdatedAt = t
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
