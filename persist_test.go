package seqpile

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqpile/seqpile/blobstore"
	"github.com/seqpile/seqpile/edit"
)

func buildCompacted(t *testing.T) *Pileup[edit.Edit] {
	t.Helper()
	p := newTestPileup(t, 10, 5)
	require.NoError(t, p.Add(matchAt(3, 3, false), true))
	require.NoError(t, p.Add(editAt(7, edit.Edit{FromLen: 1, ToLen: 1, Sequence: "A"}, false), true))
	require.NoError(t, p.Add(editAt(2, edit.Edit{ToLen: 2, Sequence: "GT"}, false), true))
	require.NoError(t, p.Compact(context.Background()))
	return p
}

// assertEquivalent checks observational equivalence over all queries.
func assertEquivalent(t *testing.T, want, got *Pileup[edit.Edit]) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	require.Equal(t, want.BinSize(), got.BinSize())
	require.Equal(t, want.Bins(), got.Bins())
	for i := 0; i < want.Len(); i++ {
		wc, err := want.CoverageAt(i)
		require.NoError(t, err)
		gc, err := got.CoverageAt(i)
		require.NoError(t, err)
		assert.Equal(t, wc, gc, "coverage at %d", i)

		we, err := want.EditsAt(i)
		require.NoError(t, err)
		ge, err := got.EditsAt(i)
		require.NoError(t, err)
		assert.ElementsMatch(t, we, ge, "edits at %d", i)

		wn, err := want.CountEditsAt(i)
		require.NoError(t, err)
		gn, err := got.CountEditsAt(i)
		require.NoError(t, err)
		assert.Equal(t, wn, gn, "count at %d", i)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := buildCompacted(t)

	var buf bytes.Buffer
	written, err := p.Save(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), written)

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.True(t, got.Compacted())
	assertEquivalent(t, p, got)
}

func TestSaveLoadEmpty(t *testing.T) {
	p := newTestPileup(t, 8, 3)
	require.NoError(t, p.Compact(context.Background()))

	var buf bytes.Buffer
	_, err := p.Save(&buf)
	require.NoError(t, err)

	got, err := Load(&buf)
	require.NoError(t, err)
	assertEquivalent(t, p, got)
}

func TestFileRoundTrip(t *testing.T) {
	p := buildCompacted(t)
	name := filepath.Join(t.TempDir(), "sample.pileup")

	require.NoError(t, p.SaveToFile(name))
	got, err := LoadFromFile(name)
	require.NoError(t, err)
	assertEquivalent(t, p, got)
}

func TestLoadCorrupt(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not a pileup")))
	assert.Error(t, err)

	p := buildCompacted(t)
	var buf bytes.Buffer
	_, err = p.Save(&buf)
	require.NoError(t, err)

	// Truncated stream.
	raw := buf.Bytes()
	_, err = Load(bytes.NewReader(raw[:len(raw)/2]))
	assert.Error(t, err)

	// Corrupt header: bin count inconsistent with length and bin size.
	mangled := append([]byte(nil), raw...)
	mangled[16] = 0xee // nBins field
	_, err = Load(bytes.NewReader(mangled))
	assert.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := buildCompacted(t)

	mem := blobstore.NewMemoryStore()
	require.NoError(t, p.SaveToStore(ctx, mem, "sample"))
	got, err := LoadFromStore(ctx, mem, "sample")
	require.NoError(t, err)
	assertEquivalent(t, p, got)

	_, err = LoadFromStore(ctx, mem, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	local, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.SaveToStore(ctx, local, "sample"))
	got, err = LoadFromStore(ctx, local, "sample")
	require.NoError(t, err)
	assertEquivalent(t, p, got)
}

func TestMergeFromFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a := buildCompacted(t)
	b := buildCompacted(t)
	fileA := filepath.Join(dir, "a.pileup")
	fileB := filepath.Join(dir, "b.pileup")
	require.NoError(t, a.SaveToFile(fileA))
	require.NoError(t, b.SaveToFile(fileB))

	m := newTestPileup(t, 10, 5)
	require.NoError(t, m.MergeFromFiles(fileA, fileB))
	require.NoError(t, m.Compact(ctx))

	got, err := m.CoverageAt(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)

	count, err := m.CountEditsAt(7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoadedPileupRejectsWrites(t *testing.T) {
	p := buildCompacted(t)
	var buf bytes.Buffer
	_, err := p.Save(&buf)
	require.NoError(t, err)

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.ErrorIs(t, got.Add(matchAt(0, 1, false), false), ErrCompacted)
	require.NoError(t, got.Close())
}
