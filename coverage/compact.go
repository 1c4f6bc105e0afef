package coverage

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/seqpile/seqpile/internal/conv"
)

// Compact is the read-phase counter array: a fixed-width bit-packed
// sequence of non-negative integers. It is immutable after construction
// and is the only representation that serializes.
type Compact struct {
	n     int
	width uint8
	words []uint64
}

// Pack converts a Dynamic into its Compact form.
//
// If forcedWidth is zero the width is the minimal number of bits covering
// the observed maximum (at least one bit). If forcedWidth is non-zero it
// is used as-is and any count exceeding it saturates at the width's
// maximum value rather than wrapping.
func Pack(d *Dynamic, forcedWidth uint8) *Compact {
	width := forcedWidth
	if width == 0 {
		width = uint8(bits.Len64(d.Max()))
		if width == 0 {
			width = 1
		}
	}
	if width > 64 {
		width = 64
	}
	c := &Compact{
		n:     d.Len(),
		width: width,
		words: make([]uint64, wordCount(d.Len(), width)),
	}
	maxVal := maxForWidth(width)
	for i := 0; i < d.Len(); i++ {
		v := d.At(i)
		if v > maxVal {
			v = maxVal // saturate, never wrap
		}
		c.set(i, v)
	}
	return c
}

func wordCount(n int, width uint8) int {
	totalBits := uint64(n) * uint64(width)
	return int((totalBits + 63) / 64)
}

func maxForWidth(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func (c *Compact) set(i int, v uint64) {
	bitPos := uint64(i) * uint64(c.width)
	word := bitPos / 64
	shift := bitPos % 64
	c.words[word] |= v << shift
	if spill := shift + uint64(c.width); spill > 64 {
		c.words[word+1] |= v >> (64 - shift)
	}
}

// At returns the count at position i. Reads outside [0, Len) panic, as
// with a slice.
func (c *Compact) At(i int) uint64 {
	if i < 0 || i >= c.n {
		panic(fmt.Sprintf("coverage: position %d out of range [0,%d)", i, c.n))
	}
	bitPos := uint64(i) * uint64(c.width)
	word := bitPos / 64
	shift := bitPos % 64
	v := c.words[word] >> shift
	if spill := shift + uint64(c.width); spill > 64 {
		v |= c.words[word+1] << (64 - shift)
	}
	return v & maxForWidth(c.width)
}

// Len returns the number of positions.
func (c *Compact) Len() int { return c.n }

// Width returns the per-position bit width.
func (c *Compact) Width() uint8 { return c.width }

// WriteTo serializes the array in its self-describing form:
// [n:8][width:1][words:n*8 little-endian].
func (c *Compact) WriteTo(w io.Writer) (int64, error) {
	var written int64
	n, err := conv.IntToUint64(c.n)
	if err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return written, err
	}
	written += 8
	if err := binary.Write(w, binary.LittleEndian, c.width); err != nil {
		return written, err
	}
	written++
	if err := binary.Write(w, binary.LittleEndian, c.words); err != nil {
		return written, err
	}
	written += int64(len(c.words)) * 8
	return written, nil
}

// ReadCompact deserializes a Compact previously written with WriteTo.
func ReadCompact(r io.Reader) (*Compact, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("coverage: read length: %w", err)
	}
	length, err := conv.Uint64ToInt(n)
	if err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}
	var width uint8
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return nil, fmt.Errorf("coverage: read width: %w", err)
	}
	if width == 0 || width > 64 {
		return nil, fmt.Errorf("coverage: invalid width %d", width)
	}
	c := &Compact{
		n:     length,
		width: width,
		words: make([]uint64, wordCount(length, width)),
	}
	if err := binary.Read(r, binary.LittleEndian, c.words); err != nil {
		return nil, fmt.Errorf("coverage: read words: %w", err)
	}
	return c, nil
}
