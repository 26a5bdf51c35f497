package binaryfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsBinaryTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if IsBinary(path) {
		t.Fatal("expected a plain text file to not be binary")
	}
}

func TestIsBinaryNulByte(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte{0x50, 0x4b, 0x00, 0x03}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !IsBinary(path) {
		t.Fatal("expected a NUL-containing file to be detected as binary")
	}
}

func TestIsBinaryMissingFile(t *testing.T) {
	if !IsBinary("/does/not/exist") {
		t.Fatal("expected a missing file to be conservatively treated as binary")
	}
}
