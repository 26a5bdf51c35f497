package store

// Op identifies the kind of boolean postings-query node. This is the IR
// both internal/regexquery (compiling a regex) and internal/queryengine
// (assembling the final filtered query) build and hand to Searcher.Search.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpTerm
	OpRange
	OpEmpty
)

// Query is a boolean tree over field+token postings. Term/Range nodes
// reference Field directly (schema.FieldContent, schema.FieldPathContent,
// schema.FieldTag); And/Or carry their operands in Sub; Not carries exactly
// one operand in Sub[0]; Empty matches every document (an unconstrained
// scan — used both for "no constraint given" and as the regex compiler's
// fallback for sub-patterns it can't lower).
type Query struct {
	Op    Op
	Field string
	Term  string
	Lo    rune
	Hi    rune
	Sub   []*Query
}

// And returns a conjunction, collapsing a single operand to itself.
func And(subs ...*Query) *Query {
	subs = dropEmpty(subs)
	if len(subs) == 1 {
		return subs[0]
	}
	if len(subs) == 0 {
		return EmptyQuery()
	}
	return &Query{Op: OpAnd, Sub: subs}
}

// Or returns a disjunction, collapsing a single operand to itself.
func Or(subs ...*Query) *Query {
	if len(subs) == 1 {
		return subs[0]
	}
	if len(subs) == 0 {
		return EmptyQuery()
	}
	return &Query{Op: OpOr, Sub: subs}
}

// dropEmpty strips nil and unconstrained-scan operands from an And's
// operand list: "x AND (no constraint)" is just "x", the same simplification
// the original lowering performs by never emitting a term for an empty
// sub-pattern in the first place.
func dropEmpty(subs []*Query) []*Query {
	out := subs[:0:0]
	for _, s := range subs {
		if s == nil || s.IsEmpty() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NotQuery negates q.
func NotQuery(q *Query) *Query {
	return &Query{Op: OpNot, Sub: []*Query{q}}
}

// TermQuery matches documents whose field contains the exact token term.
func TermQuery(field, term string) *Query {
	return &Query{Op: OpTerm, Field: field, Term: term}
}

// RangeQuery matches documents whose field contains any single-rune token
// in [lo, hi], mirroring the original regexp-to-query lowering's handling
// of a parsed character-class RANGE opcode.
func RangeQuery(field string, lo, hi rune) *Query {
	return &Query{Op: OpRange, Field: field, Lo: lo, Hi: hi}
}

// EmptyQuery matches every document (an unconstrained scan).
func EmptyQuery() *Query {
	return &Query{Op: OpEmpty}
}

// IsEmpty reports whether q is the unconstrained-scan marker, letting
// callers detect "this sub-pattern compiled to nothing usable" per the
// compiler's own fallback rule.
func (q *Query) IsEmpty() bool {
	return q != nil && q.Op == OpEmpty
}
