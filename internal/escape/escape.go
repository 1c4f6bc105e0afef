// Package escape implements the marker-byte escaping discipline used by
// the edit byte streams.
//
// Two reserved marker bytes delimit records inside a bin's stream. Payload
// bytes that collide with a marker are doubled on the way in and collapsed
// on the way out, so a lone marker in the stream is always structural.
package escape

// Reserved marker bytes. Any two distinct values work; these are kept
// stable because persisted streams embed them.
const (
	M1 byte = 0xff
	M2 byte = 0xfe
)

// Escape appends the escaped form of src to dst and returns the extended
// slice. Every literal M1 and M2 in src is doubled.
func Escape(dst, src []byte) []byte {
	for _, c := range src {
		dst = append(dst, c)
		if c == M1 || c == M2 {
			dst = append(dst, c)
		}
	}
	return dst
}

// Unescape appends the unescaped form of src to dst and returns the
// extended slice. A pair of identical marker bytes collapses to one; a
// lone marker at the end of input is preserved as-is.
//
// Unescape is the exact left-to-right inverse of Escape for all inputs.
func Unescape(dst, src []byte) []byte {
	for i := 0; i < len(src); i++ {
		c := src[i]
		dst = append(dst, c)
		if (c == M1 || c == M2) && i+1 < len(src) && src[i+1] == c {
			i++
		}
	}
	return dst
}
