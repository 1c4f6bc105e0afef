// Package coverage implements the per-position visit counters: a
// write-optimized dynamic form and a bit-packed compact form produced by
// packing.
package coverage

// Dynamic is the write-phase counter array. Counts live in one byte per
// position for fast increments; positions that outgrow a byte spill into
// a sparse overflow map, so no count is ever lost.
//
// Dynamic is not safe for concurrent use.
type Dynamic struct {
	counts   []uint8
	overflow map[int]uint64
}

// NewDynamic returns a Dynamic of length n with all counts zero.
func NewDynamic(n int) *Dynamic {
	return &Dynamic{counts: make([]uint8, n)}
}

// Len returns the number of positions.
func (d *Dynamic) Len() int { return len(d.counts) }

// Increment adds one to the count at position i.
func (d *Dynamic) Increment(i int) { d.IncrementBy(i, 1) }

// IncrementBy adds n to the count at position i.
func (d *Dynamic) IncrementBy(i int, n uint64) {
	if n == 0 {
		return
	}
	if d.overflow != nil {
		if v, ok := d.overflow[i]; ok {
			d.overflow[i] = v + n
			return
		}
	}
	sum := uint64(d.counts[i]) + n
	if sum <= 0xff {
		d.counts[i] = uint8(sum)
		return
	}
	if d.overflow == nil {
		d.overflow = make(map[int]uint64)
	}
	d.overflow[i] = sum
	d.counts[i] = 0xff
}

// At returns the count at position i.
func (d *Dynamic) At(i int) uint64 {
	if d.overflow != nil {
		if v, ok := d.overflow[i]; ok {
			return v
		}
	}
	return uint64(d.counts[i])
}

// Max returns the largest count in the array.
func (d *Dynamic) Max() uint64 {
	var m uint64
	for _, c := range d.counts {
		if uint64(c) > m {
			m = uint64(c)
		}
	}
	for _, v := range d.overflow {
		if v > m {
			m = v
		}
	}
	return m
}
