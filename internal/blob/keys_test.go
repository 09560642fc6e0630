package blob

import (
	"errors"
	"testing"
)

func TestArchiveKeyRoundTrip(t *testing.T) {
	key := ArchiveKey("doc-7", "0192f1aa")
	if key != "snapshots/doc-7/0192f1aa.esnp" {
		t.Fatalf("key = %s", key)
	}
	doc, archive, err := ParseArchiveKey(key)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc != "doc-7" || archive != "0192f1aa" {
		t.Fatalf("parse = (%s, %s)", doc, archive)
	}
}

func TestArchivePrefixCoversKeys(t *testing.T) {
	prefix := ArchivePrefix("doc")
	key := ArchiveKey("doc", "a1")
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		t.Fatalf("prefix %s does not cover key %s", prefix, key)
	}
}

func TestParseArchiveKeyRejectsMalformedKeys(t *testing.T) {
	bad := []string{
		"",
		"doc/a1.esnp",
		"snapshots/a1.esnp",
		"snapshots/doc/a1",
		"snapshots/doc/.esnp",
		"snapshots//a1.esnp",
		"snapshots/doc/sub/a1.esnp",
		"snapshots/../a1.esnp",
		"snapshots/doc/...esnp",
		"backups/doc/a1.esnp",
	}
	for _, key := range bad {
		if _, _, err := ParseArchiveKey(key); !errors.Is(err, ErrBadArchiveKey) {
			t.Fatalf("ParseArchiveKey(%q) = %v, want ErrBadArchiveKey", key, err)
		}
	}
}
