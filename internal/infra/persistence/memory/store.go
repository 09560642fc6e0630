// Package memory implements an in-process document store used by tests and
// ephemeral deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"drawcore/pkg/document"
)

var _ document.PersistentStore = (*Store)(nil)

// Store keeps document records in a map guarded by a mutex. Snapshots are
// copied on the way in and out so callers cannot alias internal state.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document.Record
	now  func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]document.Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) SaveDocument(_ context.Context, rec document.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	rec.UpdatedAt = s.now()
	s.docs[rec.ID] = rec
	return nil
}

func (s *Store) LoadDocument(_ context.Context, id string) (document.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[id]
	if !ok {
		return document.Record{}, document.ErrNotFound
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	return rec, nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

func (s *Store) ListDocuments(_ context.Context) ([]document.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]document.Info, 0, len(s.docs))
	for _, rec := range s.docs {
		infos = append(infos, document.Info{
			ID:         rec.ID,
			Generation: rec.Generation,
			SizeBytes:  int64(len(rec.Snapshot)),
			UpdatedAt:  rec.UpdatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
