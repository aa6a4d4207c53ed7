package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteIfChangedTracked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "references.md")

	wrote, err := WriteIfChangedTracked(path, []byte("a\n"))
	if err != nil || !wrote {
		t.Fatalf("expected first write, got wrote=%t err=%v", wrote, err)
	}
	wrote, err = WriteIfChangedTracked(path, []byte("a\n"))
	if err != nil || wrote {
		t.Fatalf("expected identical content to be skipped, got wrote=%t err=%v", wrote, err)
	}
	wrote, err = WriteIfChangedTracked(path, []byte("b\n"))
	if err != nil || !wrote {
		t.Fatalf("expected changed content to be written, got wrote=%t err=%v", wrote, err)
	}
}

func TestWriteIfMissingKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".citetraceignore")
	if err := WriteIfMissing(path, []byte("first\n"), 0644); err != nil {
		t.Fatalf("WriteIfMissing failed: %v", err)
	}
	if err := WriteIfMissing(path, []byte("second\n"), 0644); err != nil {
		t.Fatalf("second WriteIfMissing failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "first\n" {
		t.Fatalf("expected existing content kept, got %q", data)
	}
}

func TestHashFilesSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	roast := filepath.Join(dir, "roast.go")
	if err := os.WriteFile(roast, []byte("package kitchen\n"), 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	hashes, err := HashFiles([]string{roast, filepath.Join(dir, "gone.go")})
	if err != nil {
		t.Fatalf("HashFiles failed: %v", err)
	}
	if len(hashes) != 1 || len(hashes[roast]) != 16 {
		t.Fatalf("unexpected hashes %#v", hashes)
	}

	if err := os.WriteFile(roast, []byte("package oven\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite: %v", err)
	}
	again, err := HashFiles([]string{roast})
	if err != nil {
		t.Fatalf("HashFiles failed: %v", err)
	}
	if again[roast] == hashes[roast] {
		t.Fatalf("expected hash to change with content")
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"b", "a", "b", "c", "a"})
	if len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("unexpected dedupe result %v", got)
	}
}

func TestEnsureTrailingNewline(t *testing.T) {
	if EnsureTrailingNewline("x") != "x\n" || EnsureTrailingNewline("x\n") != "x\n" || EnsureTrailingNewline("") != "" {
		t.Fatalf("unexpected trailing newline handling")
	}
}
