// Package edit defines the variant record stored alongside coverage, and
// the placeholder position record used as its lookup key.
//
// Both records use the protobuf wire format written by hand (varint tags,
// no codegen): an Edit carries from_length (field 1), to_length (field 2)
// and sequence (field 3), with zero-valued fields omitted. This keeps
// stored streams byte-compatible with tooling that speaks the upstream
// message schema.
package edit

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Wire tags for the Edit message.
const (
	tagFromLen  = 0x08 // field 1, varint
	tagToLen    = 0x10 // field 2, varint
	tagSequence = 0x1a // field 3, length-delimited
)

// keyOffset keeps encoded key positions away from the degenerate small
// values of the placeholder record's own encoding; position 0 can never
// collide with a real key.
const keyOffset = 2

// Edit is one observed difference (or match) against the basis at a
// position: from_length bases of the basis are replaced by to_length
// bases, with the replacement sequence carried when it differs.
type Edit struct {
	FromLen  int
	ToLen    int
	Sequence string
}

// IsMatch reports whether the edit is a trivial match: equal lengths and
// no replacement sequence. Matches contribute coverage only and are never
// stored as records.
func (e Edit) IsMatch() bool {
	return e.FromLen == e.ToLen && e.Sequence == ""
}

// Span returns the number of basis positions the edit consumes.
func (e Edit) Span() int { return e.FromLen }

// Marshal returns the record's wire encoding.
func (e Edit) Marshal() []byte {
	buf := make([]byte, 0, 8+len(e.Sequence))
	if e.FromLen != 0 {
		buf = append(buf, tagFromLen)
		buf = binary.AppendUvarint(buf, uint64(e.FromLen))
	}
	if e.ToLen != 0 {
		buf = append(buf, tagToLen)
		buf = binary.AppendUvarint(buf, uint64(e.ToLen))
	}
	if e.Sequence != "" {
		buf = append(buf, tagSequence)
		buf = binary.AppendUvarint(buf, uint64(len(e.Sequence)))
		buf = append(buf, e.Sequence...)
	}
	return buf
}

// Unmarshal decodes a record previously produced by Marshal.
func Unmarshal(p []byte) (Edit, error) {
	var e Edit
	for len(p) > 0 {
		tag := p[0]
		p = p[1:]
		switch tag {
		case tagFromLen, tagToLen:
			v, n := binary.Uvarint(p)
			if n <= 0 {
				return Edit{}, fmt.Errorf("edit: truncated varint after tag %#x", tag)
			}
			p = p[n:]
			if tag == tagFromLen {
				e.FromLen = int(v)
			} else {
				e.ToLen = int(v)
			}
		case tagSequence:
			v, n := binary.Uvarint(p)
			if n <= 0 {
				return Edit{}, fmt.Errorf("edit: truncated sequence length")
			}
			p = p[n:]
			if uint64(len(p)) < v {
				return Edit{}, fmt.Errorf("edit: sequence length %d exceeds remaining %d bytes", v, len(p))
			}
			e.Sequence = string(p[:v])
			p = p[v:]
		default:
			return Edit{}, fmt.Errorf("edit: unknown wire tag %#x", tag)
		}
	}
	return e, nil
}

// ReverseComplement returns the edit expressed on the opposite strand:
// lengths are unchanged, the sequence is reversed and base-complemented.
func (e Edit) ReverseComplement() Edit {
	return Edit{
		FromLen:  e.FromLen,
		ToLen:    e.ToLen,
		Sequence: reverseComplement(e.Sequence),
	}
}

func reverseComplement(seq string) string {
	if seq == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		b.WriteByte(complement(seq[i]))
	}
	return b.String()
}

func complement(c byte) byte {
	switch c {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'c':
		return 'g'
	case 'g':
		return 'c'
	default:
		return 'N'
	}
}

// PositionKey returns the placeholder position record for basis index i:
// the wire encoding of a position message whose node id is i plus the
// reserved offset.
func PositionKey(i uint64) []byte {
	buf := make([]byte, 0, 10)
	buf = append(buf, tagFromLen) // field 1, varint: node id slot
	return binary.AppendUvarint(buf, i+keyOffset)
}
