// Package fs walks directories for ingestable documents.
package fs

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"docqa/internal/port"
)

// DefaultIncludes matches the document types the loader understands.
var DefaultIncludes = []string{
	"**/*.txt", "**/*.md", "**/*.csv", "**/*.vtt", "**/*.srt",
}

// DefaultExcludes skips hidden and derived directories.
var DefaultExcludes = []string{
	"**/.*/**", "**/node_modules/**", "**/vendor/**",
}

// Walker lists files under a root matching include/exclude glob patterns.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	if len(excludes) == 0 {
		excludes = DefaultExcludes
	}
	return &Walker{includes: includes, excludes: excludes}
}

func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []port.FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if rel != "." && w.matchesAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.matchesAny(w.includes, rel) && !w.matchesAny(w.excludes, rel) {
			files = append(files, port.FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}
		return nil
	})

	return files, err
}

func (w *Walker) matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, filepath.ToSlash(path)); err == nil && ok {
			return true
		}
	}
	return false
}
