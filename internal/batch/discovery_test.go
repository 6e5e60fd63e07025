package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/docflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverLayoutFiles_EmptyArgs(t *testing.T) {
	files, err := discoverLayoutFiles([]string{}, false, []string{"*.json"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverLayoutFiles_Directory(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)

	a := testutil.WriteFile(t, tempDir, "a.json", []byte("{}"))
	b := testutil.WriteFile(t, tempDir, "b.JSON", []byte("{}"))
	testutil.WriteFile(t, tempDir, "notes.txt", []byte("text"))

	files, err := discoverLayoutFiles([]string{tempDir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestDiscoverLayoutFiles_Recursive(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	subDir := filepath.Join(tempDir, "nested")
	hidden := filepath.Join(tempDir, ".cache")
	require.NoError(t, os.MkdirAll(subDir, 0o750))
	require.NoError(t, os.MkdirAll(hidden, 0o750))

	top := testutil.WriteFile(t, tempDir, "top.json", []byte("{}"))
	deep := testutil.WriteFile(t, subDir, "deep.json", []byte("{}"))
	testutil.WriteFile(t, hidden, "skip.json", []byte("{}"))

	files, err := discoverLayoutFiles([]string{tempDir}, false, []string{"*.json"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{top}, files)

	files, err = discoverLayoutFiles([]string{tempDir}, true, []string{"*.json"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top, deep}, files)
}

func TestDiscoverLayoutFiles_Patterns(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	keep := testutil.WriteFile(t, tempDir, "invoice_layout.json", []byte("{}"))
	testutil.WriteFile(t, tempDir, "invoice_entities.json", []byte("{}"))
	testutil.WriteFile(t, tempDir, "other.json", []byte("{}"))

	files, err := discoverLayoutFiles([]string{tempDir}, false, []string{"invoice_*"}, []string{"*_entities.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestDiscoverLayoutFiles_ExplicitFiles(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	layout := testutil.WriteFile(t, tempDir, "scan.layout", []byte("{}"))
	excluded := testutil.WriteFile(t, tempDir, "old.json", []byte("{}"))

	files, err := discoverLayoutFiles([]string{layout, layout, excluded}, false, []string{"*.json"}, []string{"old.*"})
	require.NoError(t, err)
	assert.Equal(t, []string{layout}, files)
}

func TestDiscoverLayoutFiles_Missing(t *testing.T) {
	_, err := discoverLayoutFiles([]string{"/nonexistent/layout.json"}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"/a/doc.json", nil, nil, true},
		{"/a/doc.txt", nil, nil, false},
		{"/a/doc.txt", []string{"*.txt"}, nil, true},
		{"/a/doc.json", []string{"*.json"}, []string{"doc*"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude), tt.path)
	}
}
