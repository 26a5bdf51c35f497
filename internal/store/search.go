package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/everdex/internal/schema"
)

// Hit is one matched document.
type Hit struct {
	Path     string
	Document schema.Document
}

// Searcher is a read-only snapshot over the store. Badger's MVCC View
// transaction already gives the closable read-only snapshot searches need;
// no separate bookkeeping is layered on top of it.
type Searcher struct {
	db  *badger.DB
	txn *badger.Txn
}

// NewSearcher opens a fresh read snapshot. Callers must Close it.
func (s *Store) NewSearcher() *Searcher {
	return &Searcher{db: s.db, txn: s.db.NewTransaction(false)}
}

// Close discards the read snapshot.
func (s *Searcher) Close() {
	s.txn.Discard()
}

// Search evaluates q and returns up to limit matching documents ordered by
// path. limit <= 0 means unlimited.
func (s *Searcher) Search(q *Query, limit int) ([]Hit, error) {
	paths, err := s.eval(q)
	if err != nil {
		return nil, err
	}
	sorted := sortedKeys(paths)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return s.loadHits(sorted)
}

// SearchPage evaluates q and returns the page-th (0-based) slice of
// pageSize matching documents ordered by path, plus the total match count.
func (s *Searcher) SearchPage(q *Query, page, pageSize int) ([]Hit, int, error) {
	paths, err := s.eval(q)
	if err != nil {
		return nil, 0, err
	}
	sorted := sortedKeys(paths)
	total := len(sorted)
	start := page * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	hits, err := s.loadHits(sorted[start:end])
	return hits, total, err
}

// Documents returns every document carrying the given tag (e.g. root
// markers, Tag == schema.TagIndexedPath).
func (s *Searcher) Documents(tag string) ([]Document, error) {
	paths, err := s.eval(TermQuery(schema.FieldTag, tag))
	if err != nil {
		return nil, err
	}
	hits, err := s.loadHits(sortedKeys(paths))
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return docs, nil
}

// GetByPath returns the document at path, if any (including root markers).
func (s *Searcher) GetByPath(path string) (Document, bool, error) {
	item, err := s.txn.Get(docKey(path))
	if err == badger.ErrKeyNotFound {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("get document %s: %w", path, err)
	}
	var d schema.Document
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &d)
	}); err != nil {
		return Document{}, false, fmt.Errorf("unmarshal document %s: %w", path, err)
	}
	return d, true, nil
}

// Document is a re-exported alias so callers needn't import schema solely
// to spell the return type of Documents.
type Document = schema.Document

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Searcher) loadHits(paths []string) ([]Hit, error) {
	hits := make([]Hit, 0, len(paths))
	for _, p := range paths {
		item, err := s.txn.Get(docKey(p))
		if err == badger.ErrKeyNotFound {
			continue // stale posting entry; skip
		}
		if err != nil {
			return nil, fmt.Errorf("get document %s: %w", p, err)
		}
		var d schema.Document
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		}); err != nil {
			return nil, fmt.Errorf("unmarshal document %s: %w", p, err)
		}
		hits = append(hits, Hit{Path: p, Document: d})
	}
	return hits, nil
}

// eval walks q and returns the set of matching paths. Not and Empty need
// the full document universe, rescanned from the document keys each time
// one of them is evaluated.
func (s *Searcher) eval(q *Query) (map[string]struct{}, error) {
	switch q.Op {
	case OpTerm:
		return s.scanPosting(postingPrefix(q.Field, q.Term)), nil
	case OpRange:
		set := make(map[string]struct{})
		for c := q.Lo; c <= q.Hi; c++ {
			for p := range s.scanPosting(postingPrefix(q.Field, string(c))) {
				set[p] = struct{}{}
			}
		}
		return set, nil
	case OpAnd:
		var acc map[string]struct{}
		for _, sub := range q.Sub {
			set, err := s.eval(sub)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = set
				continue
			}
			acc = intersect(acc, set)
		}
		if acc == nil {
			acc = make(map[string]struct{})
		}
		return acc, nil
	case OpOr:
		acc := make(map[string]struct{})
		for _, sub := range q.Sub {
			set, err := s.eval(sub)
			if err != nil {
				return nil, err
			}
			for p := range set {
				acc[p] = struct{}{}
			}
		}
		return acc, nil
	case OpNot:
		universe, err := s.universe()
		if err != nil {
			return nil, err
		}
		sub, err := s.eval(q.Sub[0])
		if err != nil {
			return nil, err
		}
		out := make(map[string]struct{}, len(universe))
		for p := range universe {
			if _, excluded := sub[p]; !excluded {
				out[p] = struct{}{}
			}
		}
		return out, nil
	case OpEmpty:
		return s.universe()
	default:
		return nil, fmt.Errorf("store: unknown query op %d", q.Op)
	}
}

func (s *Searcher) scanPosting(prefix []byte) map[string]struct{} {
	set := make(map[string]struct{})
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := s.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		if path := pathFromKey(key, prefix); path != "" {
			set[path] = struct{}{}
		}
	}
	return set
}

func pathFromKey(key string, prefix []byte) string {
	if len(key) <= len(prefix) {
		return ""
	}
	return key[len(prefix):]
}

func (s *Searcher) universe() (map[string]struct{}, error) {
	set := make(map[string]struct{})
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	prefix := []byte(prefixDoc)
	it := s.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		set[key[len(prefixDoc):]] = struct{}{}
	}
	return set, nil
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	out := make(map[string]struct{}, len(small))
	for p := range small {
		if _, ok := big[p]; ok {
			out[p] = struct{}{}
		}
	}
	return out
}
