package blob

import (
	"errors"
	"fmt"
	"strings"
)

// Archived snapshots live under snapshots/<document-id>/<archive-id>.esnp.
// The scheme is spelled out only here; the service layer builds and checks
// keys through these helpers.

const (
	archiveRoot = "snapshots"
	archiveExt  = ".esnp"
)

// ErrBadArchiveKey reports a key outside the archive key scheme.
var ErrBadArchiveKey = errors.New("blob: malformed archive key")

// ArchiveKey builds the storage key for one archived snapshot.
func ArchiveKey(docID, archiveID string) string {
	return archiveRoot + "/" + docID + "/" + archiveID + archiveExt
}

// ArchivePrefix is the listing prefix covering every archive of a document.
func ArchivePrefix(docID string) string {
	return archiveRoot + "/" + docID + "/"
}

// ParseArchiveKey splits an archive key into document and archive ids.
// Keys with the wrong root, wrong extension, empty segments, or extra path
// separators are rejected with ErrBadArchiveKey.
func ParseArchiveKey(key string) (docID, archiveID string, err error) {
	rest, ok := strings.CutPrefix(key, archiveRoot+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadArchiveKey, key)
	}
	doc, file, ok := strings.Cut(rest, "/")
	if !ok || doc == "" || strings.Contains(file, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrBadArchiveKey, key)
	}
	name, ok := strings.CutSuffix(file, archiveExt)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadArchiveKey, key)
	}
	if doc == "." || doc == ".." || name == "." || name == ".." {
		return "", "", fmt.Errorf("%w: %q", ErrBadArchiveKey, key)
	}
	return doc, name, nil
}
