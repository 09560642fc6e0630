package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"drawcore/pkg/document"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "docs", "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	snapshot := []byte{0x45, 0x53, 0x4E, 0x50, 0x01, 0x00, 0x00, 0x00}
	if err := store.SaveDocument(ctx, document.Record{ID: "doc-a", Generation: 3, Snapshot: snapshot}); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec, err := store.LoadDocument(ctx, "doc-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Generation != 3 {
		t.Fatalf("generation = %d, want 3", rec.Generation)
	}
	if len(rec.Snapshot) != len(snapshot) {
		t.Fatalf("snapshot length = %d, want %d", len(rec.Snapshot), len(snapshot))
	}
	for i := range snapshot {
		if rec.Snapshot[i] != snapshot[i] {
			t.Fatalf("snapshot byte %d = %#x, want %#x", i, rec.Snapshot[i], snapshot[i])
		}
	}
	if rec.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be set")
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SaveDocument(ctx, document.Record{ID: "doc", Generation: 1, Snapshot: []byte{1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveDocument(ctx, document.Record{ID: "doc", Generation: 5, Snapshot: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	rec, err := store.LoadDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Generation != 5 || len(rec.Snapshot) != 3 {
		t.Fatalf("expected replaced record, got generation=%d len=%d", rec.Generation, len(rec.Snapshot))
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.LoadDocument(context.Background(), "absent"); !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if ok, err := store.DeleteDocument(ctx, "absent"); err != nil || ok {
		t.Fatalf("delete absent: ok=%v err=%v", ok, err)
	}
	_ = store.SaveDocument(ctx, document.Record{ID: "doc", Snapshot: []byte{9}})
	if ok, err := store.DeleteDocument(ctx, "doc"); err != nil || !ok {
		t.Fatalf("delete present: ok=%v err=%v", ok, err)
	}
	if _, err := store.LoadDocument(ctx, "doc"); !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListDocumentsOrdered(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := store.SaveDocument(ctx, document.Record{ID: id, Generation: 1, Snapshot: []byte(id)}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	infos, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(infos) != len(want) {
		t.Fatalf("expected %d infos, got %d", len(want), len(infos))
	}
	for i, info := range infos {
		if info.ID != want[i] {
			t.Fatalf("info %d = %s, want %s", i, info.ID, want[i])
		}
	}
}

func TestReopenPreservesRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persisted.db")
	first, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.SaveDocument(ctx, document.Record{ID: "doc", Generation: 9, Snapshot: []byte{4, 5}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	rec, err := second.LoadDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if rec.Generation != 9 || len(rec.Snapshot) != 2 {
		t.Fatalf("unexpected record after reopen: %+v", rec)
	}
}
