package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"drawcore/internal/blob/core"
)

func TestPutRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("a")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("b")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte{1, 2, 3}), core.PutOptions{Metadata: map[string]string{"a": "b"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	data[0] = 0xFF
	info.Metadata["a"] = "mutated"

	again, rc2, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	data2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if data2[0] != 1 || again.Metadata["a"] != "b" {
		t.Fatalf("internal state was aliased: %v %v", data2, again.Metadata)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"x/1", "x/2", "y/1"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "x/")
	if err != nil || len(infos) != 2 {
		t.Fatalf("list: %v %v", infos, err)
	}
	if infos[0].Key != "x/1" || infos[1].Key != "x/2" {
		t.Fatalf("unexpected order %+v", infos)
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
