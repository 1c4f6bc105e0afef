package seqpile

import (
	"github.com/seqpile/seqpile/edit"
	"github.com/seqpile/seqpile/internal/escape"
)

// Stored record layout, per position i and record r:
//
//	M1 M2 M1 escape(posKey(i)) M1 escape(r.Marshal())
//
// The M1 M2 M1 prefix is a never-escaped boundary marker: inside escaped
// payload every literal M1 or M2 is doubled, so this exact three-byte
// alternation cannot occur there, which makes locate(key) land only on
// true key starts. The single M1 after the key separates the value; the
// value's own end is recovered by run-parity scanning (internal/escape).

// encodeKey returns the search key for position i.
func encodeKey(i int) []byte {
	pos := edit.PositionKey(uint64(i))
	out := make([]byte, 0, 3+2*len(pos))
	out = append(out, escape.M1, escape.M2, escape.M1)
	return escape.Escape(out, pos)
}

// encodeValue appends the value encoding of raw record bytes to dst.
func encodeValue(dst []byte, raw []byte) []byte {
	dst = append(dst, escape.M1)
	return escape.Escape(dst, raw)
}
