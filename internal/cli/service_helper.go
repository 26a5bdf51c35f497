package cli

import (
	"fmt"
	"os"

	"github.com/imyousuf/everdex/internal/binaryfile"
	"github.com/imyousuf/everdex/internal/config"
	"github.com/imyousuf/everdex/internal/ignore"
	"github.com/imyousuf/everdex/internal/indexservice"
	"github.com/imyousuf/everdex/internal/queryengine"
	"github.com/imyousuf/everdex/internal/reconciler"
	"github.com/imyousuf/everdex/internal/store"
)

// openService resolves the index directory, opens the store, and wires an
// inline (synchronous) indexing service for a single CLI invocation. roots
// seeds the ignore matcher's .gitignore discovery; pass nil for commands
// that don't register new roots (query, list).
func openService(roots []string) (*indexservice.Service, *config.Config, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("getwd: %w", err)
	}
	indexDir, err := config.ResolveIndexDir(indexDirFlag, cwd)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve index dir: %w", err)
	}

	cfg, err := config.Load(indexDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(indexDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	matcher := ignore.New(roots, cfg.ExcludePatterns)
	if err := matcher.Load(); err != nil {
		s.Close()
		return nil, nil, nil, fmt.Errorf("load ignore rules: %w", err)
	}

	rec := reconciler.New(s, matcher.ShouldSkip, binaryfile.IsBinary)
	eng := queryengine.New(s, nil)
	svc := indexservice.New(indexservice.Options{Store: s, Reconciler: rec, Engine: eng, Inline: true})

	if err := config.RememberIndexDir(indexDir); err != nil {
		fmt.Fprintf(os.Stderr, "everdex: warning: remember index dir: %v\n", err)
	}

	return svc, cfg, func() { s.Close() }, nil
}
