package runner

import (
	"github.com/harrison/accudoc/internal/fileutil"
)

// dependencyDir is never searched for documentation
const dependencyDir = "node_modules"

// DiscoverOptions narrows a documentation scan
type DiscoverOptions struct {
	// MaxDepth limits how deep the walk goes (0 = unlimited, 1 = root only)
	MaxDepth int
	// Sorted orders the files by path instead of walk order
	Sorted bool
}

// DiscoverDocuments returns the markdown files under root in depth-first
// walk order. Hidden directories and dependency directories are skipped.
// A root that does not exist yields no files.
func DiscoverDocuments(root string) ([]string, error) {
	return Discover(root, DiscoverOptions{})
}

// Discover is DiscoverDocuments with a depth limit and optional ordering
func Discover(root string, opts DiscoverOptions) ([]string, error) {
	result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
		Extensions:   []string{".md"},
		Recursive:    true,
		ExcludeDirs:  []string{dependencyDir},
		MaxDepth:     opts.MaxDepth,
		Sorted:       opts.Sorted,
		AllowMissing: true,
	})
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}
