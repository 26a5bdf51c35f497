// Package store implements the BadgerDB-backed document store: a primary
// record per path plus n-gram postings lists, reusing the teacher graph
// store's key-prefix-as-secondary-index technique but applied to text
// postings instead of graph nodes and edges.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/everdex/internal/schema"
)

// SchemaVersion is written to a VERSION file alongside the badger
// directory. Badger itself can't report an application-level schema
// version, unlike the teacher's embedded graph store where every node is
// self-describing JSON; our postings-key layout is not detectable from the
// KV store alone, so we pin it explicitly.
const SchemaVersion = 1

const versionFileName = "VERSION"

// ErrSchemaVersionMismatch is returned by Open when an existing index
// directory's VERSION file doesn't match the current SchemaVersion: the
// postings-key layout may have changed underneath it and re-indexing from
// scratch is the only safe recovery.
var ErrSchemaVersionMismatch = fmt.Errorf("store: index directory was written by an incompatible schema version")

// checkOrWriteVersion reconciles dbPath's VERSION file with SchemaVersion:
// a fresh directory gets one written; an existing mismatch is reported
// rather than silently read with the wrong key layout.
func checkOrWriteVersion(dbPath string) error {
	versionPath := filepath.Join(dbPath, versionFileName)
	data, err := os.ReadFile(versionPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("store: read %s: %w", versionPath, err)
		}
		return os.WriteFile(versionPath, []byte(strconv.Itoa(SchemaVersion)), 0644)
	}
	stored, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("store: parse %s: %w", versionPath, err)
	}
	if stored != SchemaVersion {
		return ErrSchemaVersionMismatch
	}
	return nil
}

// Store is a BadgerDB-backed document store. Only one write Txn may be open
// at a time; writeMu enforces that window, which is the single-writer
// invariant the indexing service depends on.
type Store struct {
	db      *badger.DB
	writeMu sync.Mutex
}

// Open opens (or creates) a badger-backed store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dbPath, err)
	}
	if err := checkOrWriteVersion(dbPath); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying badger handles.
func (s *Store) Close() error {
	return s.db.Close()
}

// analyzedFields maps a schema field name to the tokenizer used to derive
// its postings. content and path_content use the shared n-gram analyzer;
// tag is treated as a single-token field so root-marker lookup is a plain
// exact-match prefix scan, per the store's design.
func analyzedFields(d *schema.Document) map[string][]string {
	out := map[string][]string{
		schema.FieldContent:     dedup(schema.NGrams(d.Content)),
		schema.FieldPathContent: dedup(schema.NGrams(d.PathContent)),
	}
	if d.Tag != "" {
		out[schema.FieldTag] = []string{d.Tag}
	}
	return out
}

func dedup(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Txn is a single write transaction. Begin()..End() must not overlap with
// any other Txn; Store.writeMu is held for the whole window.
type Txn struct {
	store *Store
	txn   *badger.Txn
	ended bool
}

// Begin opens the (only) write transaction. The caller must call End
// exactly once, even on error paths, or the store deadlocks.
func (s *Store) Begin() *Txn {
	s.writeMu.Lock()
	return &Txn{store: s, txn: s.db.NewTransaction(true)}
}

// End commits the transaction when committed is true, otherwise discards
// it. Either way the write lock is released and no partial state is ever
// visible to readers — a crash mid-Begin..End leaves the prior committed
// state intact since badger never sees an uncommitted txn's writes.
func (t *Txn) End(committed bool) error {
	defer func() {
		t.txn.Discard()
		t.store.writeMu.Unlock()
		t.ended = true
	}()
	if !committed {
		return nil
	}
	return t.txn.Commit()
}

// AddDocument upserts d by path: any postings derived from a prior document
// at the same path are removed first, then d's own postings are written.
// This mirrors UpdateNode's "recompute old index keys from the old record,
// delete them, then write the new ones" shape in the teacher's store.
func (t *Txn) AddDocument(d *schema.Document) error {
	if err := t.deleteExisting(d.Path); err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", d.Path, err)
	}
	if err := t.txn.Set(docKey(d.Path), data); err != nil {
		return err
	}
	for field, tokens := range analyzedFields(d) {
		for _, tok := range tokens {
			if err := t.txn.Set(postingKey(field, tok, d.Path), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteByPath removes the document at path and all of its postings. It is
// a no-op (not an error) if no document exists at path.
func (t *Txn) DeleteByPath(path string) error {
	return t.deleteExisting(path)
}

func (t *Txn) deleteExisting(path string) error {
	item, err := t.txn.Get(docKey(path))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get document %s: %w", path, err)
	}
	var old schema.Document
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &old)
	}); err != nil {
		return fmt.Errorf("unmarshal document %s: %w", path, err)
	}
	for field, tokens := range analyzedFields(&old) {
		for _, tok := range tokens {
			if err := t.txn.Delete(postingKey(field, tok, path)); err != nil {
				return err
			}
		}
	}
	return t.txn.Delete(docKey(path))
}

// DeleteByPathPrefix removes the document at root itself (its marker, if
// any) plus every document whose path is nested under root (root + "/" +
// anything). Scanning on root+"/" rather than a bare string prefix avoids
// sweeping up an unrelated sibling like "/a/bc.go" when root is "/a/b".
func (t *Txn) DeleteByPathPrefix(root string) (int, error) {
	var paths []string

	nestedPrefix := docKey(root + "/")
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = nestedPrefix
	it := t.txn.NewIterator(opts)
	for it.Seek(nestedPrefix); it.ValidForPrefix(nestedPrefix); it.Next() {
		key := string(it.Item().KeyCopy(nil))
		paths = append(paths, key[len(prefixDoc):])
	}
	it.Close()

	if _, err := t.txn.Get(docKey(root)); err == nil {
		paths = append(paths, root)
	} else if err != badger.ErrKeyNotFound {
		return 0, fmt.Errorf("get document %s: %w", root, err)
	}

	for _, p := range paths {
		if err := t.deleteExisting(p); err != nil {
			return 0, err
		}
	}
	return len(paths), nil
}
