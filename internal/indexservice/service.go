// Package indexservice owns the single store writer: one worker goroutine
// drains a FIFO task queue and is the only caller ever allowed to hold a
// store.Txn. Submit methods (Index, Update, Remove, Touch) enqueue work and
// block until the worker has finished it, returning the task's error; there
// is no fire-and-forget submit. Query,
// ListRoots, and RefreshCache bypass the queue entirely since reads never
// contend with the writer (searches open their own badger snapshot).
//
// The task shape mirrors the original tool's Indexer: a 5-tuple of
// (path, full_indexing, remove, touch, update) pushed onto a
// multiprocessing.Queue and drained by indexing_func. Here it's a tagged Go
// struct instead of a tuple, and the worker is a goroutine instead of a
// process, but the queue-plus-single-consumer shape — and the
// begin_index/end_index transaction boundary around each batch — comes
// straight from it. The goroutine-plus-channel mechanics and defer-based
// cleanup on every exit path follow the same start/stop shape.
package indexservice

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/imyousuf/everdex/internal/queryengine"
	"github.com/imyousuf/everdex/internal/reconciler"
	"github.com/imyousuf/everdex/internal/schema"
	"github.com/imyousuf/everdex/internal/store"
)

// Op identifies what a Task asks the worker to do.
type Op int

const (
	OpIndex Op = iota // full reconcile of a root (add/update/delete)
	OpUpdate
	OpRemove
	OpTouch
)

// Task is one unit of writer work.
type Task struct {
	Op   Op
	Path string // root path for Index/Update/Remove; nil-equivalent ("") for Touch-all
	Time time.Time
	done chan error // set by the submitter if it wants to wait for completion
}

// Logger is the package's plain func(format, args...) logging idiom.
type Logger func(format string, args ...any)

func defaultLogger() Logger {
	return func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// Service is the single-writer indexing service.
type Service struct {
	store      *store.Store
	reconciler *reconciler.Reconciler
	engine     *queryengine.Engine
	log        Logger
	inline     bool
	tasks      chan Task
	roots      map[string]struct{}
	rootsMu    sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

const queueBuffer = 256

// Options configures a new Service.
type Options struct {
	Store      *store.Store
	Reconciler *reconciler.Reconciler
	Engine     *queryengine.Engine
	Logger     Logger
	// Inline runs every Submit call synchronously with no worker goroutine,
	// for CLI one-shot invocations and tests.
	Inline bool
}

// New creates a Service. Call Start to launch the worker unless Inline is
// set, in which case Start is a no-op.
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = defaultLogger()
	}
	s := &Service{
		store:      opts.Store,
		reconciler: opts.Reconciler,
		engine:     opts.Engine,
		log:        log,
		inline:     opts.Inline,
		tasks:      make(chan Task, queueBuffer),
		roots:      make(map[string]struct{}),
	}
	s.loadRoots()
	return s
}

// loadRoots populates the in-memory root set from persisted marker
// documents, so ListRoots survives a process restart.
func (s *Service) loadRoots() {
	searcher := s.store.NewSearcher()
	defer searcher.Close()
	docs, err := searcher.Documents(schema.TagIndexedPath)
	if err != nil {
		return
	}
	s.rootsMu.Lock()
	defer s.rootsMu.Unlock()
	for _, d := range docs {
		s.roots[d.Path] = struct{}{}
	}
}

// Start launches the worker goroutine. No-op in inline mode.
func (s *Service) Start(ctx context.Context) {
	if s.inline {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the worker and waits for it to drain its current task
// boundary — never mid-transaction, since a Txn's Begin..End window always
// completes before the worker loop checks ctx again.
func (s *Service) Stop() {
	if s.inline || s.cancel == nil {
		return
	}
	s.cancel()
	close(s.tasks)
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-s.tasks:
			if !ok {
				return
			}
			s.execute(ctx, task)
		}
	}
}

// submit enqueues a task, blocking while the queue is full. In inline mode
// it executes synchronously instead. A blocking send — rather than an
// overflow side-buffer nothing ever redelivers — is what keeps a bounded
// channel's backpressure sound: the caller's goroutine doesn't return from
// submit until its task has an actual place in line, so two tasks from the
// same submitter can never be reordered by one of them silently stalling.
func (s *Service) submit(ctx context.Context, t Task) error {
	if s.inline {
		return s.execute(ctx, t)
	}
	select {
	case s.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) execute(ctx context.Context, t Task) error {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("indexservice: task panicked: %v", r)
			s.log("indexservice: recovered from panic running task %+v: %v", t, r)
		}
		if t.done != nil {
			t.done <- err
		}
	}()

	switch t.Op {
	case OpIndex, OpUpdate:
		s.rootsMu.Lock()
		s.roots[t.Path] = struct{}{}
		s.rootsMu.Unlock()
		_, err = s.reconciler.Update(ctx, t.Path)
	case OpRemove:
		s.rootsMu.Lock()
		delete(s.roots, t.Path)
		s.rootsMu.Unlock()
		_, err = s.reconciler.Unregister(ctx, t.Path)
	case OpTouch:
		err = s.touch(ctx, t.Path, t.Time)
	default:
		err = fmt.Errorf("indexservice: unknown op %d", t.Op)
	}

	if err != nil {
		s.log("indexservice: task %+v failed: %v", t, err)
	}
	return err
}

// touch applies a new modified-time stamp without re-reading content: if
// path is empty, every registered root is touched, matching the original
// tool's touch(path=None, mtime) "apply to every registered root" contract.
func (s *Service) touch(ctx context.Context, path string, t time.Time) error {
	targets := []string{path}
	if path == "" {
		s.rootsMu.Lock()
		targets = targets[:0]
		for r := range s.roots {
			targets = append(targets, r)
		}
		s.rootsMu.Unlock()
	}
	for _, root := range targets {
		searcher := s.store.NewSearcher()
		hits, err := searcher.Search(store.TermQuery(schema.FieldTag, schema.TagIndexedPath), 0)
		searcher.Close()
		if err != nil {
			return err
		}
		for _, h := range hits {
			if h.Path != root {
				continue
			}
			doc := h.Document
			doc.ModifiedTime = t
			txn := s.store.Begin()
			err := txn.AddDocument(&doc)
			if cerr := txn.End(err == nil); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Index registers (or re-reconciles) root, waiting for completion.
func (s *Service) Index(ctx context.Context, root string) error {
	return s.submitAndWait(ctx, Task{Op: OpIndex, Path: root})
}

// Update re-reconciles an already-registered root.
func (s *Service) Update(ctx context.Context, root string) error {
	return s.submitAndWait(ctx, Task{Op: OpUpdate, Path: root})
}

// Remove unregisters root, deleting every document stored under it.
func (s *Service) Remove(ctx context.Context, root string) error {
	return s.submitAndWait(ctx, Task{Op: OpRemove, Path: root})
}

// Touch restamps a root's (or, if root is nil, every root's) marker
// document without a filesystem re-scan.
func (s *Service) Touch(ctx context.Context, root *string, t time.Time) error {
	path := ""
	if root != nil {
		path = *root
	}
	return s.submitAndWait(ctx, Task{Op: OpTouch, Path: path, Time: t})
}

func (s *Service) submitAndWait(ctx context.Context, t Task) error {
	if s.inline {
		return s.execute(ctx, t)
	}
	t.done = make(chan error, 1)
	if err := s.submit(ctx, t); err != nil {
		return err
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query bypasses the write queue entirely: reads never contend with the
// single writer, since each call opens its own badger read snapshot.
func (s *Service) Query(ctx context.Context, opts queryengine.Options) (*queryengine.Handle, error) {
	return s.engine.Query(ctx, opts)
}

// ListRoots returns the set of currently registered root paths.
func (s *Service) ListRoots() []string {
	s.rootsMu.Lock()
	defer s.rootsMu.Unlock()
	out := make([]string, 0, len(s.roots))
	for r := range s.roots {
		out = append(out, r)
	}
	return out
}

// RefreshCache calls the query engine's Refresh. The engine keeps no cached
// searcher (every Query opens a fresh snapshot), so results are unaffected.
func (s *Service) RefreshCache() {
	s.engine.Refresh()
}

// RootMarkers returns every root-marker document currently stored,
// bypassing Query's NOT tag:'indexed_path' filter so the list command can
// report each root's last reconciliation time.
func (s *Service) RootMarkers() ([]schema.Document, error) {
	searcher := s.store.NewSearcher()
	defer searcher.Close()
	return searcher.Documents(schema.TagIndexedPath)
}
