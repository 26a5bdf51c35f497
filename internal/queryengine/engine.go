// Package queryengine combines a path regex and/or content regex into a
// single postings query, executes it, verifies every candidate against the
// raw pattern, and extracts per-line match spans. Grounded on the original
// tool's Whoosh-backed query()/query_result.py: same NOT tag:'indexed_path'
// base filter, same content-drives/path-post-verifies rule. A sub-query that
// lowers to nothing becomes an unconstrained scan whose candidates the raw
// pattern then verifies.
package queryengine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/imyousuf/everdex/internal/rawmatch"
	"github.com/imyousuf/everdex/internal/regexquery"
	"github.com/imyousuf/everdex/internal/schema"
	"github.com/imyousuf/everdex/internal/store"
)

// ErrInvalidQuery is returned when a query supplies neither a path regex
// nor a content regex — spec's InvalidQuery error kind, surfaced
// synchronously to the caller rather than warned-and-defaulted.
var ErrInvalidQuery = errors.New("queryengine: at least one of path or content must be given")

// Logger is a plain func(format, args...) field, never a structured logging
// library. New discards warnings when no Logger is given.
type Logger func(format string, args ...any)

// Engine runs queries against a store.
type Engine struct {
	store *store.Store
	log   Logger
}

// New creates an Engine over s. If log is nil, warnings are discarded.
func New(s *store.Store, log Logger) *Engine {
	if log == nil {
		log = func(string, ...any) {}
	}
	return &Engine{store: s, log: log}
}

// Options describes one query request, mirroring the CLI's query flags.
type Options struct {
	PathRegex    string
	ContentRegex string
	IgnoreCase   bool
	// RawPattern, when true, treats both PathRegex and ContentRegex as
	// literal text: every regex metacharacter in them is escaped before
	// compiling.
	RawPattern bool
}

// Handle is a live result set: the matched documents plus enough state to
// page through them or extract per-line spans, mirroring the original
// tool's QueryResult/Hit objects before they're projected into whatever
// the caller needs.
type Handle struct {
	engine         *Engine
	searcher       *store.Searcher
	hits           []store.Hit
	contentMatcher *rawmatch.Matcher
	pathMatcher    *rawmatch.Matcher
}

// Close releases the underlying store snapshot. Callers must call it.
func (h *Handle) Close() {
	h.searcher.Close()
}

// Query builds and executes a query. Construction order: compile the
// content sub-query (if any), compile the path sub-query (if any), decide
// which one drives the index search (content wins when both are given),
// AND in the NOT tag:'indexed_path' base filter, then post-verify every
// candidate against both raw patterns before it's considered a real hit —
// path is always post-verified, even when it also drove the search, since
// the postings query is only ever a sound over-approximation.
func (e *Engine) Query(ctx context.Context, opts Options) (*Handle, error) {
	if opts.PathRegex == "" && opts.ContentRegex == "" {
		return nil, ErrInvalidQuery
	}

	var contentQuery, pathQuery *store.Query
	var contentMatcher, pathMatcher *rawmatch.Matcher

	if opts.RawPattern {
		// Treat both patterns as literal text rather than regex syntax,
		// the same as the original tool falling back to a raw string
		// search when it has no field query to build.
		opts.ContentRegex = regexp.QuoteMeta(opts.ContentRegex)
		opts.PathRegex = regexp.QuoteMeta(opts.PathRegex)
	}

	if opts.ContentRegex != "" {
		q, err := regexquery.Compile(opts.ContentRegex, schema.FieldContent, opts.IgnoreCase)
		if err != nil {
			e.log("queryengine: content pattern %q has no postings lowering (%v); falling back to an unconstrained scan verified by the raw pattern", opts.ContentRegex, err)
		}
		contentQuery = q
		m, err := rawmatch.Compile(opts.ContentRegex, rawmatch.Options{IgnoreCase: opts.IgnoreCase})
		if err != nil {
			return nil, fmt.Errorf("queryengine: raw content pattern: %w", err)
		}
		contentMatcher = m
	}

	if opts.PathRegex != "" {
		q, err := regexquery.Compile(opts.PathRegex, schema.FieldPathContent, opts.IgnoreCase)
		if err != nil {
			e.log("queryengine: path pattern %q has no postings lowering (%v); falling back to an unconstrained scan verified by the raw pattern", opts.PathRegex, err)
		}
		pathQuery = q
		m, err := rawmatch.Compile(opts.PathRegex, rawmatch.Options{IgnoreCase: opts.IgnoreCase})
		if err != nil {
			return nil, fmt.Errorf("queryengine: raw path pattern: %w", err)
		}
		pathMatcher = m
	}

	var driving *store.Query
	switch {
	case contentQuery != nil:
		driving = contentQuery
	case pathQuery != nil:
		driving = pathQuery
	default:
		driving = store.EmptyQuery()
	}

	final := store.And(driving, store.NotQuery(store.TermQuery(schema.FieldTag, schema.TagIndexedPath)))

	searcher := e.store.NewSearcher()
	candidates, err := searcher.Search(final, 0)
	if err != nil {
		searcher.Close()
		return nil, fmt.Errorf("queryengine: search: %w", err)
	}

	hits := make([]store.Hit, 0, len(candidates))
	for _, c := range candidates {
		if contentMatcher != nil {
			text, err := readFileText(c.Path)
			if err != nil {
				// Deleted or unreadable since the index was last updated:
				// not a real hit, and not a query-ending error either.
				continue
			}
			ok, err := contentMatcher.MatchString(text)
			if err != nil {
				searcher.Close()
				return nil, fmt.Errorf("queryengine: verify content: %w", err)
			}
			if !ok {
				continue
			}
		}
		if pathMatcher != nil {
			ok, err := pathMatcher.MatchString(c.Path)
			if err != nil {
				searcher.Close()
				return nil, fmt.Errorf("queryengine: verify path: %w", err)
			}
			if !ok {
				continue
			}
		}
		hits = append(hits, c)
	}

	return &Handle{
		engine:         e,
		searcher:       searcher,
		hits:           hits,
		contentMatcher: contentMatcher,
		pathMatcher:    pathMatcher,
	}, nil
}

// All returns every verified hit.
func (h *Handle) All() []store.Hit {
	return h.hits
}

// Page returns the (0-based) page-th slice of pageSize hits, plus the
// total verified hit count.
func (h *Handle) Page(page, pageSize int) ([]store.Hit, int) {
	total := len(h.hits)
	start := page * pageSize
	if start >= total {
		return nil, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return h.hits[start:end], total
}

// Matches returns every per-line match span for hit's content against the
// content pattern, adapted from query_result.py's per-hit highlighting
// loop. Returns nil if the query had no content pattern. Reads the file at
// hit.Path fresh rather than the content captured at index time, per
// matches()'s contract: a file edited since the last index/update must be
// matched against what's on disk now, not a stale indexed snapshot.
func (h *Handle) Matches(ctx context.Context, hit store.Hit) ([]rawmatch.Span, error) {
	if h.contentMatcher == nil {
		return nil, nil
	}
	text, err := readFileText(hit.Path)
	if err != nil {
		return nil, fmt.Errorf("queryengine: read %s: %w", hit.Path, err)
	}
	return h.contentMatcher.FindSpans(text)
}

// readFileText reads path's current on-disk content for match
// verification, dropping invalid UTF-8 byte sequences the same way the
// original tool's errors='ignore' decode does rather than failing on them.
func readFileText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(raw), ""), nil
}

// Refresh is a no-op placeholder satisfying the original tool's
// refresh_cache contract: since every Query opens a fresh badger snapshot,
// there is no stale cached searcher to invalidate, but the indexing
// service and HTTP façade still call this so a future caching layer has a
// single place to hook into.
func (e *Engine) Refresh() {}
