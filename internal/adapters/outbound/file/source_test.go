package file_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/adapters/outbound/file"
)

const debounce = 20 * time.Millisecond

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSource_FetchQuery(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "applications.yaml")
	writeFile(t, path, "applications: []\n")

	src, err := file.New(slog.Default(), path, debounce)
	require.NoError(t, err)

	t.Cleanup(func() { _ = src.Close() })

	data, err := src.FetchQuery(t.Context())
	require.NoError(t, err)
	require.Equal(t, "applications: []\n", string(data))
	require.Equal(t, "file "+path, src.Describe())

	require.NoError(t, os.Remove(path))

	_, err = src.FetchQuery(t.Context())
	require.Error(t, err)
}

func TestSource_Changes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "applications.yaml")
	writeFile(t, path, "applications: []\n")

	src, err := file.New(slog.Default(), path, debounce)
	require.NoError(t, err)

	// A burst of writes collapses into one signal.
	for range 3 {
		writeFile(t, path, "applications: []\n# edited\n")
	}

	select {
	case _, ok := <-src.Changes():
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal")
	}

	// Drain a late signal from the same burst.
	select {
	case <-src.Changes():
	case <-time.After(5 * debounce):
	}

	// Unrelated files in the directory are ignored.
	writeFile(t, filepath.Join(dir, "other.txt"), "x")

	select {
	case <-src.Changes():
		t.Fatal("unexpected change signal")
	case <-time.After(10 * debounce):
	}

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, ok := <-src.Changes()
	require.False(t, ok)
}

func TestNew_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := file.New(slog.Default(), filepath.Join(t.TempDir(), "nope", "applications.yaml"), debounce)
	require.Error(t, err)
}
