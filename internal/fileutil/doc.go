// Package fileutil scans documentation trees.
//
// ScanDirectory walks a root with filepath.WalkDir and returns the files that
// pass its filters. Results come back in walk order (lexical within each
// directory, depth-first) unless Sorted is set, so the same tree always yields
// the same sequence.
//
// Filters:
//   - Extensions: case-insensitive, with or without the leading dot
//   - ExcludeDirs: directory names to skip; names starting with "." are always skipped
//   - Include / Exclude: slash-separated globs matched against the path relative
//     to the root, where "**" matches any number of directories
//   - MaxDepth: 0 is unlimited, 1 is the root only
//
// Usage:
//
//	result, err := fileutil.ScanDirectory("docs", fileutil.ScanOptions{
//	    Extensions:   []string{".md"},
//	    Recursive:    true,
//	    ExcludeDirs:  []string{"node_modules"},
//	    AllowMissing: true,
//	})
//
// Non-fatal errors (an unreadable subdirectory) are collected in
// ScanResult.Errors and the walk continues.
package fileutil
