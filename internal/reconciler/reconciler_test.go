package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/imyousuf/everdex/internal/schema"
	"github.com/imyousuf/everdex/internal/store"
)

func newTestReconciler(t *testing.T) (*Reconciler, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, nil, nil), s
}

func TestUpdateAddsNewFiles(t *testing.T) {
	r, s := newTestReconciler(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := r.Update(context.Background(), root)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Added != 1 || result.Updated != 0 || result.Deleted != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	searcher := s.NewSearcher()
	defer searcher.Close()
	hits, err := searcher.Search(store.EmptyQuery(), 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 { // the file plus its root marker
		t.Fatalf("expected 2 stored documents, got %d: %+v", len(hits), hits)
	}
}

func TestUpdateSkipsUnchangedFiles(t *testing.T) {
	r, _ := newTestReconciler(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := r.Update(context.Background(), root); err != nil {
		t.Fatalf("Update #1: %v", err)
	}
	result, err := r.Update(context.Background(), root)
	if err != nil {
		t.Fatalf("Update #2: %v", err)
	}
	if result.Added != 0 || result.Updated != 0 {
		t.Fatalf("expected no changes on second pass, got %+v", result)
	}
}

func TestUpdateReindexesChangedFiles(t *testing.T) {
	r, _ := newTestReconciler(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.Update(context.Background(), root); err != nil {
		t.Fatalf("Update #1: %v", err)
	}

	future := time.Now().Add(2 * time.Hour)
	if err := os.WriteFile(path, []byte("package a\n// changed"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	result, err := r.Update(context.Background(), root)
	if err != nil {
		t.Fatalf("Update #2: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", result)
	}
}

func TestTouchThenUpdateReindexesFilesNewerThanTouchTime(t *testing.T) {
	// The round-trip law: touch(R, T) then update(R) re-indexes every
	// file with mtime > T, even when that file's own stored mtime
	// already exactly matches its on-disk mtime (so the plain
	// m(f) > m_stored(f) comparison alone would see no change at all).
	r, s := newTestReconciler(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.Update(context.Background(), root); err != nil {
		t.Fatalf("Update #1: %v", err)
	}

	// Simulate touch(R, T) where T predates the file's own mtime: the
	// root marker is the only thing rewritten, no per-file document
	// changes.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	touchTime := info.ModTime().Add(-time.Hour)
	txn := s.Begin()
	marker := schema.Document{Path: root, Tag: schema.TagIndexedPath, ModifiedTime: touchTime}
	if err := txn.AddDocument(&marker); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := txn.End(true); err != nil {
		t.Fatalf("End: %v", err)
	}

	result, err := r.Update(context.Background(), root)
	if err != nil {
		t.Fatalf("Update #2: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected the file (mtime > touch time) to be re-indexed even though its stored mtime was already current, got %+v", result)
	}
}

func TestUpdateStillIndexesBinaryFilesWithEmptyContent(t *testing.T) {
	r, s := newTestReconciler(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.bin"), []byte{0x50, 0x4b, 0x00, 0x03}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	isBinary := func(path string) bool { return filepath.Ext(path) == ".bin" }
	r.isBinary = isBinary

	result, err := r.Update(context.Background(), root)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Added != 1 {
		t.Fatalf("expected the binary file to be indexed as a document, got %+v", result)
	}

	searcher := s.NewSearcher()
	defer searcher.Close()
	doc, ok, err := searcher.GetByPath(filepath.Join(root, "a.bin"))
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if !ok {
		t.Fatal("expected the binary file's document to exist")
	}
	if doc.Content != "" {
		t.Fatalf("expected empty content for a binary file, got %q", doc.Content)
	}
}

func TestUpdateDeletesMissingFiles(t *testing.T) {
	r, s := newTestReconciler(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.Update(context.Background(), root); err != nil {
		t.Fatalf("Update #1: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	result, err := r.Update(context.Background(), root)
	if err != nil {
		t.Fatalf("Update #2: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deletion, got %+v", result)
	}

	searcher := s.NewSearcher()
	defer searcher.Close()
	hits, err := searcher.Search(store.TermQuery(schema.FieldTag, schema.TagIndexedPath), 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected the root marker to survive, got %+v", hits)
	}
}

func TestUpdateRejectsFileRoot(t *testing.T) {
	r, _ := newTestReconciler(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notadir")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := r.Update(context.Background(), path)
	if err != ErrRootIsFile {
		t.Fatalf("expected ErrRootIsFile, got %v", err)
	}
}

func TestUnregisterRemovesEverythingUnderRoot(t *testing.T) {
	r, s := newTestReconciler(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.Update(context.Background(), root); err != nil {
		t.Fatalf("Update: %v", err)
	}

	n, err := r.Unregister(context.Background(), root)
	if err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 documents removed, got %d", n)
	}

	searcher := s.NewSearcher()
	defer searcher.Close()
	hits, err := searcher.Search(store.EmptyQuery(), 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected an empty store, got %+v", hits)
	}
}
