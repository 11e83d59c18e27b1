package fileutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func createTree(t *testing.T, files []string) string {
	t.Helper()
	tmpDir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return tmpDir
}

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	rels := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("failed to relativize %s: %v", f, err)
		}
		rels[i] = filepath.ToSlash(rel)
	}
	return rels
}

func TestScanDirectory(t *testing.T) {
	// tmpDir/
	//   a.md
	//   b.txt
	//   Guide.MD
	//   api/
	//     intro.md
	//     deep/
	//       ref.md
	//   api-notes.md
	//   .hidden/
	//     secret.md
	//   node_modules/
	//     pkg/readme.md
	//   drafts/
	//     wip.md
	root := createTree(t, []string{
		"a.md",
		"b.txt",
		"Guide.MD",
		"api/intro.md",
		"api/deep/ref.md",
		"api-notes.md",
		".hidden/secret.md",
		"node_modules/pkg/readme.md",
		"drafts/wip.md",
	})

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{
			name: "non-recursive",
			opts: ScanOptions{Extensions: []string{".md"}},
			want: []string{"Guide.MD", "a.md", "api-notes.md"},
		},
		{
			name: "recursive keeps walk order",
			opts: ScanOptions{Extensions: []string{".md"}, Recursive: true, ExcludeDirs: []string{"node_modules"}},
			want: []string{"Guide.MD", "a.md", "api/deep/ref.md", "api/intro.md", "api-notes.md", "drafts/wip.md"},
		},
		{
			name: "sorted",
			opts: ScanOptions{Extensions: []string{".md"}, Recursive: true, ExcludeDirs: []string{"node_modules"}, Sorted: true},
			want: []string{"Guide.MD", "a.md", "api-notes.md", "api/deep/ref.md", "api/intro.md", "drafts/wip.md"},
		},
		{
			name: "extension without dot",
			opts: ScanOptions{Extensions: []string{"txt"}, Recursive: true},
			want: []string{"b.txt"},
		},
		{
			name: "node_modules included when not excluded",
			opts: ScanOptions{Extensions: []string{".md"}, Recursive: true, Include: []string{"node_modules/**"}},
			want: []string{"node_modules/pkg/readme.md"},
		},
		{
			name: "max depth",
			opts: ScanOptions{Extensions: []string{".md"}, Recursive: true, MaxDepth: 2, ExcludeDirs: []string{"node_modules", "drafts"}},
			want: []string{"Guide.MD", "a.md", "api/intro.md", "api-notes.md"},
		},
		{
			name: "include globs",
			opts: ScanOptions{Recursive: true, Include: []string{"api/**"}},
			want: []string{"api/deep/ref.md", "api/intro.md"},
		},
		{
			name: "exclude globs",
			opts: ScanOptions{Extensions: []string{".md"}, Recursive: true, ExcludeDirs: []string{"node_modules"}, Exclude: []string{"drafts/*", "**/ref.md"}},
			want: []string{"Guide.MD", "a.md", "api/intro.md", "api-notes.md"},
		},
		{
			name: "no matches",
			opts: ScanOptions{Extensions: []string{".rst"}, Recursive: true},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(root, tt.opts)
			if err != nil {
				t.Fatalf("ScanDirectory() error = %v", err)
			}
			if len(result.Errors) != 0 {
				t.Errorf("unexpected scan errors: %v", result.Errors)
			}
			got := relPaths(t, root, result.Files)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ScanDirectory() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanDirectory_HiddenAlwaysSkipped(t *testing.T) {
	root := createTree(t, []string{".git/notes.md", "docs/.cache/x.md", "docs/ok.md"})

	result, err := ScanDirectory(root, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	got := relPaths(t, root, result.Files)
	if !reflect.DeepEqual(got, []string{"docs/ok.md"}) {
		t.Errorf("got %v, want [docs/ok.md]", got)
	}
}

func TestScanDirectory_AbsolutePaths(t *testing.T) {
	root := createTree(t, []string{"a.md"})

	result, err := ScanDirectory(root, ScanOptions{})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	for _, f := range result.Files {
		if !filepath.IsAbs(f) {
			t.Errorf("expected absolute path, got %s", f)
		}
	}
}

func TestScanDirectory_Deterministic(t *testing.T) {
	root := createTree(t, []string{"z/1.md", "a/2.md", "m.md", "a/b/3.md"})

	first, err := ScanDirectory(root, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ScanDirectory(root, ScanOptions{Recursive: true})
		if err != nil {
			t.Fatalf("ScanDirectory() error = %v", err)
		}
		if !reflect.DeepEqual(first.Files, again.Files) {
			t.Fatalf("scan %d differs: %v vs %v", i, again.Files, first.Files)
		}
	}

	got := relPaths(t, root, first.Files)
	if !reflect.DeepEqual(got, []string{"a/2.md", "a/b/3.md", "m.md", "z/1.md"}) {
		t.Errorf("walk order = %v", got)
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	root := createTree(t, []string{"file.md"})

	tests := []struct {
		name string
		dir  string
		opts ScanOptions
	}{
		{"non-existent directory", filepath.Join(root, "missing"), ScanOptions{}},
		{"path is a file", filepath.Join(root, "file.md"), ScanOptions{}},
		{"invalid glob", root, ScanOptions{Include: []string{"[a-"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ScanDirectory(tt.dir, tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestScanDirectory_AllowMissing(t *testing.T) {
	result, err := ScanDirectory(filepath.Join(t.TempDir(), "nope"), ScanOptions{AllowMissing: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected no files, got %v", result.Files)
	}
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.md", "a.md", true},
		{"*.md", "dir/a.md", false},
		{"**/*.md", "a.md", true},
		{"**/*.md", "x/y/a.md", true},
		{"guide/**", "guide/a/b.md", true},
		{"guide/**", "other/a.md", false},
		{"api/*/index.md", "api/v1/index.md", true},
		{"api/**/index.md", "api/index.md", true},
		{"a?.md", "ab.md", true},
		{"[ab].md", "c.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.name, func(t *testing.T) {
			if got := MatchGlob(tt.pattern, tt.name); got != tt.want {
				t.Errorf("MatchGlob(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
			}
		})
	}
}
