package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drawcore/internal/engine"
	"drawcore/internal/protocol"
)

func writeSampleSnapshot(t *testing.T) string {
	t.Helper()
	eng := engine.New()
	buf := protocol.NewBuilder().
		AppendRect(1, protocol.RectPayload{X: 10, Y: 10, W: 20, H: 10, FillA: 1}).
		AppendRect(2, protocol.RectPayload{X: 50, Y: 50, W: 5, H: 5, FillA: 1}).
		Finish()
	if res := eng.ApplyCommands(buf); res.Code != protocol.Ok {
		t.Fatalf("apply failed: %v", res.Code)
	}
	path := filepath.Join(t.TempDir(), "sample.esnp")
	if err := os.WriteFile(path, eng.SaveSnapshot(), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestCliReportsValidSnapshot(t *testing.T) {
	path := writeSampleSnapshot(t)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "valid ESNP v1") {
		t.Fatalf("missing header line: %q", out)
	}
	if !strings.Contains(out, "2 rect") {
		t.Fatalf("missing rect census: %q", out)
	}
	if !strings.Contains(out, "digest: ") {
		t.Fatalf("missing digest line: %q", out)
	}
}

func TestCliQuietSuppressesReport(t *testing.T) {
	path := writeSampleSnapshot(t)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-q", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %q", stdout.String())
	}
}

func TestCliRejectsCorruptFile(t *testing.T) {
	path := writeSampleSnapshot(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Flip a payload byte past the section table so a checksum fails.
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	var stdout, stderr bytes.Buffer
	if code := cli([]string{path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), path) {
		t.Fatalf("stderr should name the file: %q", stderr.String())
	}
}

func TestCliRejectsMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{filepath.Join(t.TempDir(), "ghost.esnp")}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
}

func TestCliUsageWithoutArgument(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "usage:") {
		t.Fatalf("missing usage line: %q", stderr.String())
	}
}
