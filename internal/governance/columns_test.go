package governance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeColumns(t *testing.T) {
	known := []string{"email", "name", "phone"}

	tests := []struct {
		name  string
		saved []string
		want  []string
	}{
		{"keeps saved order", []string{"phone", "email"}, []string{"phone", "email"}},
		{"drops unknown and repeated", []string{"name", "legacy", "name"}, []string{"name"}},
		{"nothing saved", nil, known},
		{"nothing left", []string{"legacy"}, known},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeColumns(tt.saved, known))
		})
	}
}

func TestFileCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cache := NewFileCache(dir)

	cols, err := cache.Load("tenant/1")
	require.NoError(t, err)
	assert.Nil(t, cols)

	require.NoError(t, cache.Store("tenant/1", []string{"email", "name"}))
	require.NoError(t, cache.Store("tenant-2", []string{"phone"}))

	cols, err = cache.Load("tenant/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "name"}, cols)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileCacheRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCache(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t1.columns.json"), []byte("{"), 0o600))

	_, err := cache.Load("t1")
	assert.Error(t, err)
}
