package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "a", []byte("one")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	// The store holds its own copy.
	got[0] = 'X'
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), again)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "a"), "deleting missing blob is not an error")
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "p", []byte("payload")))
	got, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	// Overwrite replaces content atomically.
	require.NoError(t, s.Put(ctx, "p", []byte("v2")))
	got, err = s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Delete(ctx, "p"))
	_, err = s.Get(ctx, "p")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreContextCancelled(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Put(ctx, "x", []byte("y")))
	_, err = s.Get(ctx, "x")
	assert.Error(t, err)
}
