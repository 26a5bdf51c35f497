package store

import "strings"

// Key prefixes for the BadgerDB key scheme: a prefix-as-secondary-index
// technique, applied here to n-gram postings rather than graph nodes and
// edges.
const (
	prefixDoc     = "d:"
	prefixPosting = "p:"
)

// docKey returns the primary key for the document at path.
func docKey(path string) []byte {
	return []byte(prefixDoc + path)
}

// postingKey returns the secondary-index key recording that ngram occurs
// in field for the document at path. A field+ngram's postings list is a
// prefix scan over postingPrefix(field, ngram), exactly like
// scanIndexPrefix in the teacher's store.
func postingKey(field, ngram, path string) []byte {
	return []byte(prefixPosting + field + ":" + ngram + ":" + path)
}

// postingPrefix returns the scan prefix for all documents whose field
// contains ngram.
func postingPrefix(field, ngram string) []byte {
	return []byte(prefixPosting + field + ":" + ngram + ":")
}

// pathFromPostingKey extracts the trailing path segment from a posting key,
// mirroring scanIndexPrefix's "ID is the segment after the final colon"
// convention — except our paths may themselves contain colons on some
// platforms, so we locate the path by stripping the known prefix instead of
// splitting on the last colon.
func pathFromPostingKey(key, field, ngram string) string {
	p := prefixPosting + field + ":" + ngram + ":"
	if !strings.HasPrefix(key, p) {
		return ""
	}
	return key[len(p):]
}
