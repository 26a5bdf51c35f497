// Package walker enumerates the files under a registered root,
// breadth-first by directory: directories at the same depth are yielded
// together instead of recursing into the first child before its siblings.
package walker

import (
	"os"
	"path/filepath"
)

// ShouldSkip decides whether a path (file or directory) should be excluded
// from the walk. internal/ignore.Matcher implements this.
type ShouldSkip func(path string) bool

// IsBinary decides whether a file's content should be excluded from
// indexing. internal/binaryfile.IsBinary implements this.
type IsBinary func(path string) bool

// File is one walked regular file. Binary files are still yielded — the
// document model records them with empty content, per schema.Document's
// "content is empty when the file is binary or unreadable" invariant —
// IsBinary just tells the reconciler not to read their bytes into content.
type File struct {
	Path     string
	ModTime  int64 // unix nanoseconds, for mtime comparisons in the reconciler
	IsBinary bool
}

// Walk enumerates every regular file under root, breadth-first by
// directory, including binary files (IsBinary only gates whether their
// content is read, never whether they are indexed at all). Symlinks are
// followed only when they resolve to a non-directory target (following a
// directory symlink risks an infinite walk). Hidden files are yielded
// unless a ShouldSkip rule excludes them.
func Walk(root string, shouldSkip ShouldSkip, isBinary IsBinary) ([]File, error) {
	var files []File
	queue := []string{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // inaccessible directory; skip rather than abort the whole walk
		}

		var subdirs []string
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if shouldSkip != nil && shouldSkip(path) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}

			if info.Mode()&os.ModeSymlink != 0 {
				resolved, err := os.Stat(path)
				if err != nil {
					continue // broken symlink
				}
				if resolved.IsDir() {
					continue // do not follow directory symlinks
				}
				files = append(files, fileEntry(path, resolved, isBinary))
				continue
			}

			if info.IsDir() {
				subdirs = append(subdirs, path)
				continue
			}

			files = append(files, fileEntry(path, info, isBinary))
		}

		queue = append(queue, subdirs...)
	}

	return files, nil
}

func fileEntry(path string, info os.FileInfo, isBinary IsBinary) File {
	return File{
		Path:     path,
		ModTime:  info.ModTime().UnixNano(),
		IsBinary: isBinary != nil && isBinary(path),
	}
}
