package editlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seqpile/seqpile/internal/escape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(3, func(o *Options) { o.Dir = dir })

	require.NoError(t, s.Append(0, []byte("alpha")))
	require.NoError(t, s.Append(2, []byte("gamma")))
	require.NoError(t, s.Append(0, []byte("beta")))
	require.NoError(t, s.Close())

	b0, err := s.Bytes(0)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("alphabeta"), escape.M1), b0)

	// Bin 1 was opened with the others and holds only the pad.
	b1, err := s.Bytes(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{escape.M1}, b1)

	b2, err := s.Bytes(2)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("gamma"), escape.M1), b2)

	s.Remove()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files removed")
}

func TestNeverOpened(t *testing.T) {
	s := NewSet(2, func(o *Options) { o.Dir = t.TempDir() })
	require.NoError(t, s.Close())

	b, err := s.Bytes(0)
	require.NoError(t, err)
	assert.Empty(t, b)

	s.Remove() // no-op, must not panic
}

func TestCloseIdempotent(t *testing.T) {
	s := NewSet(1, func(o *Options) { o.Dir = t.TempDir() })
	require.NoError(t, s.Append(0, []byte("x")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	b, err := s.Bytes(0)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("x"), escape.M1), b, "pad written once")
}

func TestAppendAfterClose(t *testing.T) {
	s := NewSet(1, func(o *Options) { o.Dir = t.TempDir() })
	require.NoError(t, s.Close())
	assert.Error(t, s.Append(0, []byte("late")))
}

func TestAppendBadBin(t *testing.T) {
	s := NewSet(2, func(o *Options) { o.Dir = t.TempDir() })
	defer s.Remove()
	assert.Error(t, s.Append(-1, []byte("x")))
	assert.Error(t, s.Append(2, []byte("x")))
	require.NoError(t, s.Close())
}

func TestReadBeforeClose(t *testing.T) {
	s := NewSet(1, func(o *Options) { o.Dir = t.TempDir() })
	require.NoError(t, s.Append(0, []byte("x")))
	_, err := s.Bytes(0)
	assert.Error(t, err)
	require.NoError(t, s.Close())
	s.Remove()
}

func TestLZ4RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(2, func(o *Options) {
		o.Dir = dir
		o.Compression = CompressionLZ4
	})

	payload := []byte("compressible compressible compressible")
	require.NoError(t, s.Append(1, payload))
	require.NoError(t, s.Close())

	got, err := s.Bytes(1)
	require.NoError(t, err)
	assert.Equal(t, append(payload, escape.M1), got)

	// The on-disk file is an lz4 frame, not the raw bytes.
	raw, err := os.ReadFile(filepath.Join(dir, filepath.Base(s.names[1])))
	require.NoError(t, err)
	assert.NotEqual(t, append(payload, escape.M1), raw)

	s.Remove()
}
