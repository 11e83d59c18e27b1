package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverDocuments(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"a.md",
		"guide/b.md",
		"guide/deep/c.MD",
		"notes.txt",
		".hidden/secret.md",
		"node_modules/pkg/README.md",
		"guide/node_modules/x.md",
	} {
		writeFile(t, filepath.Join(root, rel), "# doc\n")
	}

	files, err := DiscoverDocuments(root)
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.md", "guide/b.md", "guide/deep/c.MD"}, rels)
}

func TestDiscoverDocuments_Deterministic(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"z.md", "m/a.md", "b.md"} {
		writeFile(t, filepath.Join(root, rel), "")
	}

	first, err := DiscoverDocuments(root)
	require.NoError(t, err)
	second, err := DiscoverDocuments(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDiscoverDocuments_MissingRoot(t *testing.T) {
	files, err := DiscoverDocuments(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDocuments_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := DiscoverDocuments(path)
	assert.Error(t, err)
}
