// Package ignore decides which paths the walker and reconciler should
// skip: a built-in set of VCS/bookkeeping directory names plus
// gitignore-style patterns loaded from .gitignore files and explicit
// config excludes, trimmed down to the single predicate contract the
// rest of the repo depends on (ShouldSkip), with a built-in VCS skip set
// added on top.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// builtinSkip names are always skipped regardless of any .gitignore
// content, matching the directory walker's required built-in set.
var builtinSkip = map[string]struct{}{
	".git":       {},
	".svn":       {},
	"CVS":        {},
	".hg":        {},
	".gitignore": {},
}

type ignoreRule struct {
	pattern  string
	negation bool
	dirOnly  bool
	basePath string
}

// Matcher evaluates ShouldSkip against the built-in set plus loaded rules.
type Matcher struct {
	roots           []string
	excludePatterns []string
	rules           []ignoreRule
}

// New creates a Matcher for the given roots. excludePatterns are extra
// glob patterns from config, applied globally (no basePath restriction).
func New(roots []string, excludePatterns []string) *Matcher {
	return &Matcher{roots: roots, excludePatterns: excludePatterns}
}

// Load walks each root looking for .gitignore files and parses them,
// alongside the configured exclude patterns. Call once after New, and
// again to pick up .gitignore edits.
func (m *Matcher) Load() error {
	m.rules = nil

	for _, p := range m.excludePatterns {
		m.rules = append(m.rules, parsePattern(p, ""))
	}

	for _, root := range m.roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if _, skip := builtinSkip[info.Name()]; skip && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if info.Name() == ".gitignore" {
				rules, loadErr := loadGitIgnoreFile(path)
				if loadErr != nil {
					return nil
				}
				m.rules = append(m.rules, rules...)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ShouldSkip reports whether path should be excluded from indexing: either
// because its base name is in the built-in skip set, or because a loaded
// gitignore-style rule (possibly negated by a later `!pattern`) matches it.
func (m *Matcher) ShouldSkip(path string) bool {
	if _, skip := builtinSkip[filepath.Base(path)]; skip {
		return true
	}
	matched := false
	for _, rule := range m.rules {
		if matchPattern(rule.pattern, rule.basePath, path) {
			matched = !rule.negation
		}
	}
	return matched
}

func loadGitIgnoreFile(path string) ([]ignoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	basePath := filepath.Dir(path)
	var rules []ignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, parsePattern(line, basePath))
	}
	return rules, scanner.Err()
}

func parsePattern(pattern, basePath string) ignoreRule {
	rule := ignoreRule{basePath: basePath}
	if strings.HasPrefix(pattern, "!") {
		rule.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rule.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	rule.pattern = pattern
	return rule
}

func matchPattern(pattern, basePath, path string) bool {
	if strings.Contains(pattern, "/") {
		return matchRelativePattern(pattern, basePath, path)
	}

	if basePath != "" {
		relPath, err := filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(relPath, "..") {
			return false
		}
	}

	base := filepath.Base(path)
	if matched, _ := filepath.Match(pattern, base); matched {
		return true
	}
	for _, part := range splitPath(path) {
		if matched, _ := filepath.Match(pattern, part); matched {
			return true
		}
	}
	return false
}

func matchRelativePattern(pattern, basePath, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoubleStarPattern(pattern, basePath, path)
	}

	relPath := path
	if basePath != "" {
		var err error
		relPath, err = filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(relPath, "..") {
			return false
		}
	}
	matched, _ := filepath.Match(pattern, relPath)
	return matched
}

func matchDoubleStarPattern(pattern, basePath, path string) bool {
	relPath := path
	if basePath != "" {
		var err error
		relPath, err = filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(relPath, "..") {
			return false
		}
	}
	return matchParts(splitPath(pattern), splitPath(relPath))
}

func matchParts(patternParts, pathParts []string) bool {
	if len(patternParts) == 0 {
		return len(pathParts) == 0
	}
	if patternParts[0] == "**" {
		rest := patternParts[1:]
		for i := 0; i <= len(pathParts); i++ {
			if matchParts(rest, pathParts[i:]) {
				return true
			}
		}
		return false
	}
	if len(pathParts) == 0 {
		return false
	}
	matched, _ := filepath.Match(patternParts[0], pathParts[0])
	if !matched {
		return false
	}
	return matchParts(patternParts[1:], pathParts[1:])
}

func splitPath(path string) []string {
	path = filepath.ToSlash(path)
	parts := strings.Split(path, "/")
	var result []string
	for _, p := range parts {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
