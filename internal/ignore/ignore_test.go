package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinSkipSet(t *testing.T) {
	m := New(nil, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.ShouldSkip("/repo/.git") {
		t.Fatal("expected .git to be skipped")
	}
	if !m.ShouldSkip("/repo/.svn") {
		t.Fatal("expected .svn to be skipped")
	}
	if m.ShouldSkip("/repo/main.go") {
		t.Fatal("did not expect main.go to be skipped")
	}
}

func TestGitignorePatternsLoaded(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\nbuild/\n"), 0644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}

	m := New([]string{dir}, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.ShouldSkip(filepath.Join(dir, "app.log")) {
		t.Fatal("expected *.log to be skipped")
	}
	if m.ShouldSkip(filepath.Join(dir, "app.go")) {
		t.Fatal("did not expect app.go to be skipped")
	}
}

func TestConfigExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	m := New([]string{dir}, []string{"*.tmp"})
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.ShouldSkip(filepath.Join(dir, "scratch.tmp")) {
		t.Fatal("expected config exclude pattern to apply")
	}
}

func TestNegationPattern(t *testing.T) {
	dir := t.TempDir()
	content := "*.log\n!keep.log\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}
	m := New([]string{dir}, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.ShouldSkip(filepath.Join(dir, "keep.log")) {
		t.Fatal("expected negation pattern to un-skip keep.log")
	}
	if !m.ShouldSkip(filepath.Join(dir, "other.log")) {
		t.Fatal("expected other.log to still be skipped")
	}
}
