// Package rawmatch verifies the raw regular expression a query was built
// from against real document text, and extracts per-line match spans.
// internal/regexquery only has to be a sound over-approximation; this
// package holds the actual ground truth, because it can express anything
// the original tool's grammar allows — including backreferences and
// lookaround assertions that RE2 (and therefore regexp/syntax and stdlib
// regexp) cannot parse at all.
//
// The line-walk-and-yield-match algorithm is transliterated directly from
// the original tool's regexp_match_info/generate_match_info.
package rawmatch

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Options controls how a pattern is compiled.
type Options struct {
	IgnoreCase bool
	Multiline  bool
}

// Matcher wraps a compiled regexp2.Regexp.
type Matcher struct {
	re *regexp2.Regexp
}

// Compile builds a Matcher for pattern. regexp2 supports the full PCRE-like
// feature set the raw verification step needs: backreferences, lookahead/
// lookbehind, and inline flags.
func Compile(pattern string, opts Options) (*Matcher, error) {
	options := regexp2.None
	if opts.IgnoreCase {
		options |= regexp2.IgnoreCase
	}
	if opts.Multiline {
		options |= regexp2.Multiline
	}
	re, err := regexp2.Compile(pattern, options)
	if err != nil {
		return nil, fmt.Errorf("rawmatch: compile %q: %w", pattern, err)
	}
	return &Matcher{re: re}, nil
}

// MatchString reports whether pattern matches anywhere in s.
func (m *Matcher) MatchString(s string) (bool, error) {
	match, err := m.re.FindStringMatch(s)
	if err != nil {
		return false, fmt.Errorf("rawmatch: match: %w", err)
	}
	return match != nil, nil
}

// Span is one match: the 0-based line it was found on, the 0-based column
// (in runes) the match starts at within that line, the match length (in
// runes), and the full line text — the same four-tuple
// generate_match_info yields.
type Span struct {
	Line   int
	Col    int
	Length int
	Text   string
}

// FindSpans walks content line by line and yields every match span,
// mirroring generate_match_info's per-line scan instead of matching across
// the whole blob at once — so a `^`/`$` anchor in the original pattern
// behaves the way a line-oriented grep user expects.
func (m *Matcher) FindSpans(content string) ([]Span, error) {
	var spans []Span
	lines := strings.Split(content, "\n")
	for lineNo, line := range lines {
		text := strings.TrimSuffix(line, "\r")
		match, err := m.re.FindStringMatch(text)
		for match != nil {
			if err != nil {
				return nil, fmt.Errorf("rawmatch: match line %d: %w", lineNo, err)
			}
			spans = append(spans, Span{
				Line:   lineNo,
				Col:    runeIndex(text, match.Index),
				Length: match.Length,
				Text:   text,
			})
			match, err = m.re.FindNextMatch(match)
		}
		if err != nil {
			return nil, fmt.Errorf("rawmatch: match line %d: %w", lineNo, err)
		}
	}
	return spans, nil
}

// runeIndex clamps idx, a rune offset as regexp2 reports it (FindStringMatch
// matches over the string's runes), to [0, number of runes in s]. It does
// no byte-to-rune conversion.
func runeIndex(s string, idx int) int {
	if idx <= 0 {
		return 0
	}
	runes := []rune(s)
	if idx >= len(runes) {
		return len(runes)
	}
	return idx
}
