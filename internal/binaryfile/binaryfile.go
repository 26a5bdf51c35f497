// Package binaryfile implements the IsBinary collaborator the walker and
// reconciler use to flag non-text files, whose documents are then indexed
// with empty content. Ported from the original tool's
// use of the binaryornot library: sniff the first several KB for a NUL
// byte, its core heuristic. No retrieval-pack repo imports a binary-
// sniffing library (the closest ecosystem equivalent,
// gabriel-vasile/mimetype, never appears anywhere in the pack), so this
// stays a small stdlib-only predicate rather than fabricate a dependency.
package binaryfile

import (
	"bytes"
	"io"
	"os"
)

// sniffSize mirrors binaryornot's default read chunk.
const sniffSize = 8000

// IsBinary reports whether the file at path looks like binary content. A
// file that can't be opened or read is conservatively treated as binary so
// callers never read its bytes into content rather than index garbage.
func IsBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := f.Read(buf)
	if n == 0 {
		// empty file (io.EOF): not binary; any other read error: binary
		return err != nil && err != io.EOF
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}
