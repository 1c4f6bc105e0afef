// Package fmindex provides the compressed, immutable full-text index that
// backs each bin's edit store after compaction.
//
// The in-memory engine is a suffix array over the raw bin bytes, giving
// exact-pattern locate/count and arbitrary-range extraction. The
// serialized form keeps only the zstd-compressed text; the suffix array
// is rebuilt on load, trading load CPU for a compact persisted footprint.
package fmindex

import (
	"encoding/binary"
	"fmt"
	"index/suffixarray"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/seqpile/seqpile/internal/conv"
)

// Index is an immutable byte store with exact-substring search.
type Index struct {
	data []byte
	sa   *suffixarray.Index
}

// Build constructs an Index over data. The slice is retained; callers
// must not mutate it afterwards. An empty index is valid and answers
// every query with no matches.
func Build(data []byte) *Index {
	return &Index{data: data, sa: suffixarray.New(data)}
}

// Len returns the total number of stored bytes.
func (x *Index) Len() int { return len(x.data) }

// Locate returns the offsets of every occurrence of pattern, sorted
// ascending. An empty pattern matches nowhere.
func (x *Index) Locate(pattern []byte) []int {
	if len(pattern) == 0 || len(x.data) == 0 {
		return nil
	}
	occs := x.sa.Lookup(pattern, -1)
	sort.Ints(occs)
	return occs
}

// Count returns the number of occurrences of pattern.
func (x *Index) Count(pattern []byte) int {
	if len(pattern) == 0 || len(x.data) == 0 {
		return 0
	}
	return len(x.sa.Lookup(pattern, -1))
}

// Extract returns a copy of the stored bytes in [lo, hi).
func (x *Index) Extract(lo, hi int) ([]byte, error) {
	if lo < 0 || hi < lo || hi > len(x.data) {
		return nil, fmt.Errorf("fmindex: extract range [%d,%d) outside [0,%d)", lo, hi, len(x.data))
	}
	out := make([]byte, hi-lo)
	copy(out, x.data[lo:hi])
	return out, nil
}

// ByteAt returns the byte at offset i, or io.EOF past the end.
func (x *Index) ByteAt(i int) (byte, error) {
	if i < 0 || i >= len(x.data) {
		return 0, io.EOF
	}
	return x.data[i], nil
}

// WriteTo serializes the index as a self-describing frame:
// [rawLen:8][compLen:8][zstd frame]. Implements io.WriterTo.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return 0, fmt.Errorf("fmindex: init compressor: %w", err)
	}
	comp := enc.EncodeAll(x.data, nil)
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("fmindex: close compressor: %w", err)
	}

	var written int64
	rawLen, err := conv.IntToUint64(len(x.data))
	if err != nil {
		return 0, err
	}
	compLen, err := conv.IntToUint64(len(comp))
	if err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, rawLen); err != nil {
		return written, err
	}
	written += 8
	if err := binary.Write(w, binary.LittleEndian, compLen); err != nil {
		return written, err
	}
	written += 8
	n, err := w.Write(comp)
	written += int64(n)
	if err != nil {
		return written, err
	}
	return written, nil
}

// Read deserializes an index frame written by WriteTo and rebuilds the
// suffix array from the decompressed text.
func Read(r io.Reader) (*Index, error) {
	var rawLen, compLen uint64
	if err := binary.Read(r, binary.LittleEndian, &rawLen); err != nil {
		return nil, fmt.Errorf("fmindex: read raw length: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &compLen); err != nil {
		return nil, fmt.Errorf("fmindex: read compressed length: %w", err)
	}
	n, err := conv.Uint64ToInt(compLen)
	if err != nil {
		return nil, fmt.Errorf("fmindex: %w", err)
	}
	comp := make([]byte, n)
	if _, err := io.ReadFull(r, comp); err != nil {
		return nil, fmt.Errorf("fmindex: read payload: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("fmindex: init decompressor: %w", err)
	}
	defer dec.Close()
	data, err := dec.DecodeAll(comp, nil)
	if err != nil {
		return nil, fmt.Errorf("fmindex: decompress: %w", err)
	}
	if uint64(len(data)) != rawLen {
		return nil, fmt.Errorf("fmindex: size mismatch: header says %d bytes, payload holds %d", rawLen, len(data))
	}
	return Build(data), nil
}
