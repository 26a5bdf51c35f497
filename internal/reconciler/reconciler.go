// Package reconciler brings one registered root's index up to date with
// the files currently on disk: new files are added, changed files are
// re-indexed, and files that no longer exist are removed, by comparing
// mtimes against a stored file-time map and then running a
// delete-missing pass. Resolves the clear_non_exist/exist_files contract
// as the later (exist_files, delete_count) variant explicitly rather than
// leaving it ambiguous.
package reconciler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/imyousuf/everdex/internal/schema"
	"github.com/imyousuf/everdex/internal/store"
	"github.com/imyousuf/everdex/internal/walker"
)

// ErrRootIsFile is returned when a caller tries to register a root whose
// path is a regular file rather than a directory. Resolves the spec's
// open question about a root/real-file path collision: rather than let a
// root marker displace a same-path file document (or vice versa), the
// registration is rejected outright before any store write happens.
var ErrRootIsFile = fmt.Errorf("reconciler: root path is a regular file, not a directory")

// ShouldSkip and IsBinary are the same narrow collaborator contracts the
// walker depends on; the reconciler never imports internal/ignore or
// internal/binaryfile directly.
type ShouldSkip = walker.ShouldSkip
type IsBinary = walker.IsBinary

// Reconciler incrementally updates one store's documents against the
// filesystem.
type Reconciler struct {
	store      *store.Store
	shouldSkip ShouldSkip
	isBinary   IsBinary
	now        func() time.Time
}

// New creates a Reconciler writing into s.
func New(s *store.Store, shouldSkip ShouldSkip, isBinary IsBinary) *Reconciler {
	return &Reconciler{store: s, shouldSkip: shouldSkip, isBinary: isBinary, now: time.Now}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Added   int
	Updated int
	Deleted int
}

// Update reconciles root: walks the filesystem, adds new files, re-indexes
// changed ones (comparing on-disk mtime against the stored mtime —
// exist_files's role in the original tool), and removes store documents
// for files that no longer exist (clear_non_exist's later
// (exist_files, delete_count) contract). Order within the single
// Begin..End window: deletes, then adds/updates, then the root marker
// refresh, per the concurrency model's design note.
func (r *Reconciler) Update(ctx context.Context, root string) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("reconciler: stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return Result{}, ErrRootIsFile
	}

	files, err := walker.Walk(root, r.shouldSkip, r.isBinary)
	if err != nil {
		return Result{}, fmt.Errorf("reconciler: walk %s: %w", root, err)
	}
	onDisk := make(map[string]walker.File, len(files))
	for _, f := range files {
		onDisk[f.Path] = f
	}

	txn := r.store.Begin()
	committed := false
	defer func() { txn.End(committed) }()

	searcher := r.store.NewSearcher()
	existing, err := existingDocs(searcher, root)
	if err != nil {
		searcher.Close()
		return Result{}, err
	}
	rootMarker, hasMarker, err := searcher.GetByPath(root)
	searcher.Close()
	if err != nil {
		return Result{}, err
	}
	// T_R: the timestamp of the last successful full reconcile of this
	// root. Missing marker is treated as -infinity, per the spec's
	// reconciliation table.
	tRoot := time.Time{}
	if hasMarker {
		tRoot = rootMarker.ModifiedTime
	}

	var result Result

	// Deletes first: anything previously stored under this root that is
	// no longer present on disk.
	for path := range existing {
		if _, ok := onDisk[path]; ok {
			continue
		}
		if err := txn.DeleteByPath(path); err != nil {
			return Result{}, fmt.Errorf("reconciler: delete %s: %w", path, err)
		}
		result.Deleted++
	}

	// Adds and updates: a file is re-indexed only if it's new, or its
	// on-disk mtime is strictly newer than the stored one or than T_R.
	for _, f := range files {
		prevMod, seen := existing[f.Path]
		fileMod := time.Unix(0, f.ModTime)
		if seen && !fileMod.After(prevMod) && !fileMod.After(tRoot) {
			continue
		}

		// Binary files are still indexed as documents (so path queries
		// and listing still find them) but with empty content, per the
		// document model's "content is empty when the file is binary or
		// unreadable" rule — their bytes are never read at all.
		var content string
		if !f.IsBinary {
			raw, err := os.ReadFile(f.Path)
			if err != nil {
				continue // file vanished or became unreadable between walk and read; skip
			}
			content = string(raw)
		}

		doc := schema.Document{
			Path:         f.Path,
			PathContent:  f.Path,
			Content:      content,
			ModifiedTime: time.Unix(0, f.ModTime),
		}
		if !seen {
			doc.CreateTime = doc.ModifiedTime
			result.Added++
		} else {
			result.Updated++
		}
		if err := txn.AddDocument(&doc); err != nil {
			return Result{}, fmt.Errorf("reconciler: add %s: %w", f.Path, err)
		}
	}

	// Root-marker refresh, last.
	marker := schema.Document{
		Path:         root,
		Tag:          schema.TagIndexedPath,
		ModifiedTime: r.now(),
	}
	if err := txn.AddDocument(&marker); err != nil {
		return Result{}, fmt.Errorf("reconciler: refresh root marker: %w", err)
	}

	committed = true
	return result, nil
}

// existingDocs returns every non-marker document currently stored whose
// path falls under root, keyed by path with its stored ModifiedTime —
// exactly the exist_files map the original tool's clear_non_exist and
// indexing_func consult to decide whether to skip a file.
func existingDocs(searcher *store.Searcher, root string) (map[string]time.Time, error) {
	hits, err := searcher.Search(store.EmptyQuery(), 0)
	if err != nil {
		return nil, fmt.Errorf("reconciler: list existing documents: %w", err)
	}
	out := make(map[string]time.Time)
	for _, h := range hits {
		if h.Document.IsRootMarker() {
			continue
		}
		if !underRoot(h.Path, root) {
			continue
		}
		out[h.Path] = h.Document.ModifiedTime
	}
	return out, nil
}

func underRoot(path, root string) bool {
	if path == root {
		return true
	}
	if len(path) <= len(root) {
		return false
	}
	return path[:len(root)] == root && (path[len(root)] == '/' || path[len(root)] == os.PathSeparator)
}

// Unregister removes every document stored under root, including its
// marker, in a single transaction.
func (r *Reconciler) Unregister(ctx context.Context, root string) (int, error) {
	txn := r.store.Begin()
	committed := false
	defer func() { txn.End(committed) }()

	n, err := txn.DeleteByPathPrefix(root)
	if err != nil {
		return 0, fmt.Errorf("reconciler: unregister %s: %w", root, err)
	}
	committed = true
	return n, nil
}
