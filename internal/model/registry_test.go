package model

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name string, a *artifact) {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644))
}

func newTestRegistry(t *testing.T, names ...string) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(dir, names, logger), dir
}

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	t.Run("loads artifact on first use and caches it", func(t *testing.T) {
		t.Parallel()
		registry, dir := newTestRegistry(t, "lstmv3")
		writeArtifact(t, dir, "lstmv3", testArtifact())

		handle, err := registry.Get("lstmv3")
		require.NoError(t, err)
		assert.Equal(t, "linear", handle.Kind())

		// Removing the file proves the second Get serves from cache.
		require.NoError(t, os.Remove(filepath.Join(dir, "lstmv3.json")))
		cached, err := registry.Get("lstmv3")
		require.NoError(t, err)
		assert.Same(t, handle, cached)
	})

	t.Run("unregistered name", func(t *testing.T) {
		t.Parallel()
		registry, _ := newTestRegistry(t, "lstmv3")

		_, err := registry.Get("gru")
		assert.ErrorIs(t, err, ErrModelNotRegistered)
	})

	t.Run("missing artifact", func(t *testing.T) {
		t.Parallel()
		registry, _ := newTestRegistry(t, "lstmv3")

		_, err := registry.Get("lstmv3")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrModelNotRegistered)
	})
}

func TestRegistryReloadAll(t *testing.T) {
	t.Parallel()

	t.Run("swaps in fresh handles", func(t *testing.T) {
		t.Parallel()
		registry, dir := newTestRegistry(t, "lstmv3")
		writeArtifact(t, dir, "lstmv3", testArtifact())

		before, err := registry.Get("lstmv3")
		require.NoError(t, err)

		registry.ReloadAll(context.Background())

		after, err := registry.Get("lstmv3")
		require.NoError(t, err)
		assert.NotSame(t, before, after)
	})

	t.Run("failed reload keeps previous handle", func(t *testing.T) {
		t.Parallel()
		registry, dir := newTestRegistry(t, "lstmv3", "gru")
		writeArtifact(t, dir, "lstmv3", testArtifact())
		writeArtifact(t, dir, "gru", testArtifact())

		before, err := registry.Get("lstmv3")
		require.NoError(t, err)
		_, err = registry.Get("gru")
		require.NoError(t, err)

		// Corrupt one artifact; its handle must survive the reload while
		// the other still reloads fresh.
		require.NoError(t, os.WriteFile(filepath.Join(dir, "lstmv3.json"), []byte("not json"), 0o644))

		registry.ReloadAll(context.Background())

		kept, err := registry.Get("lstmv3")
		require.NoError(t, err)
		assert.Same(t, before, kept)

		_, err = registry.Get("gru")
		require.NoError(t, err)
	})
}
