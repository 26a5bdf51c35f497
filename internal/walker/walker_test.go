package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestWalkFindsNestedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a")
	writeFile(t, filepath.Join(root, "sub", "b.go"), "package b")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")

	shouldSkip := func(path string) bool {
		return filepath.Base(path) == ".git"
	}

	files, err := Walk(root, shouldSkip, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	sort.Strings(got)

	want := []string{"a.go", "sub/b.go"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestWalkStillYieldsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a")
	writeFile(t, filepath.Join(root, "a.bin"), "ignored")

	isBinary := func(path string) bool {
		return filepath.Ext(path) == ".bin"
	}

	files, err := Walk(root, nil, isBinary)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected both files yielded (binary just flagged), got %+v", files)
	}
	byName := map[string]File{}
	for _, f := range files {
		byName[filepath.Base(f.Path)] = f
	}
	if byName["a.go"].IsBinary {
		t.Fatalf("a.go should not be flagged binary: %+v", byName["a.go"])
	}
	if !byName["a.bin"].IsBinary {
		t.Fatalf("a.bin should be flagged binary: %+v", byName["a.bin"])
	}
}
