package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	require.Equal(t, 7, d.BlockLength)
	require.Equal(t, 3, d.LookAhead)
	require.True(t, d.Color)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("block_length: 14\nverbose: true\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 14, opts.BlockLength)
	require.True(t, opts.Verbose)
	require.Equal(t, 3, opts.LookAhead) // untouched field keeps its default
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/run.yaml")
	require.Error(t, err)
}
