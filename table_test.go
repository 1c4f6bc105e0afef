package seqpile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTable(t *testing.T) {
	p := buildCompacted(t)

	var sb strings.Builder
	require.NoError(t, p.WriteTable(&sb, true))
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, p.Len())
	assert.True(t, strings.HasPrefix(lines[3], "3\t1\t0"))
	assert.True(t, strings.HasPrefix(lines[7], "7\t0\t1"))
}

func TestWriteTableWithoutEdits(t *testing.T) {
	p := buildCompacted(t)

	var sb strings.Builder
	require.NoError(t, p.WriteTable(&sb, false))
	assert.Contains(t, sb.String(), "4\t1\n")
}

func TestDumpStructure(t *testing.T) {
	p := buildCompacted(t)

	var sb strings.Builder
	require.NoError(t, p.DumpStructure(&sb))
	out := sb.String()
	assert.Contains(t, out, "coverage: len=10")
	assert.Contains(t, out, "bin 0:")
	assert.Contains(t, out, "bin 1:")
}

func TestDumpsRequireCompaction(t *testing.T) {
	p := newTestPileup(t, 4, 0)
	var sb strings.Builder
	assert.ErrorIs(t, p.WriteTable(&sb, false), ErrNotCompacted)
	assert.ErrorIs(t, p.DumpStructure(&sb), ErrNotCompacted)
	require.NoError(t, p.Compact(context.Background()))
}
