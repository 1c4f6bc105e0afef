package escape

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("plain payload"),
		{M1},
		{M2},
		{M1, M1, M1},
		{M2, M2, M2},
		{M1, M2, M1},
		{M2, M1, M2, M1},
		{0x00, M1, 0x7f, M2, 0x80},
		append(bytes.Repeat([]byte{M1}, 7), bytes.Repeat([]byte{M2}, 4)...),
		{M1, 'x', M1, M1, 'y'},
	}
	for _, in := range cases {
		esc := Escape(nil, in)
		out := Unescape(nil, esc)
		assert.Equal(t, []byte(append([]byte{}, in...)), out, "input %x", in)
	}
}

func TestEscapeDoubles(t *testing.T) {
	esc := Escape(nil, []byte{'a', M1, 'b', M2})
	assert.Equal(t, []byte{'a', M1, M1, 'b', M2, M2}, esc)
}

func TestUnescapeLoneTrailingMarker(t *testing.T) {
	// A lone marker at the true end of input is preserved.
	assert.Equal(t, []byte{'a', M1}, Unescape(nil, []byte{'a', M1}))
	assert.Equal(t, []byte{M2}, Unescape(nil, []byte{M2}))
}

func TestUnescapeDoubledMarkerMidStream(t *testing.T) {
	// The pair must collapse even when followed by more payload.
	assert.Equal(t, []byte{M1, 'x'}, Unescape(nil, []byte{M1, M1, 'x'}))
}

func FuzzEscapeRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{M1, M1, M1})
	f.Add([]byte{M1, M2, M1, 0x00})
	f.Add([]byte("ACGTacgt"))
	f.Fuzz(func(t *testing.T, in []byte) {
		out := Unescape(nil, Escape(nil, in))
		if !bytes.Equal(in, out) {
			t.Fatalf("round trip mismatch: in=%x out=%x", in, out)
		}
	})
}

type sliceSource []byte

func (s sliceSource) ByteAt(i int) (byte, error) {
	if i < 0 || i >= len(s) {
		return 0, io.EOF
	}
	return s[i], nil
}

func TestValueEndSimple(t *testing.T) {
	// value "ab", terminator, then more data.
	stream := []byte{'a', 'b', M1, 'z'}
	end, err := NewScanner(sliceSource(stream)).ValueEnd(0)
	require.NoError(t, err)
	assert.Equal(t, 2, end)
	assert.Equal(t, []byte("ab"), stream[0:end])
}

func TestValueEndEmbeddedEvenRun(t *testing.T) {
	// Escaped payload holds a doubled M1 (even run) before the true
	// terminator: the even run belongs to the value.
	stream := []byte{'a', M1, M1, 'b', M1, 'z'}
	end, err := NewScanner(sliceSource(stream)).ValueEnd(0)
	require.NoError(t, err)
	assert.Equal(t, 4, end)
	val := Unescape(nil, stream[0:end])
	assert.Equal(t, []byte{'a', M1, 'b'}, val)
}

func TestValueEndRunAdjacentToTerminator(t *testing.T) {
	// Doubled M1 immediately followed by the terminator: one odd run of
	// three, value keeps the first two bytes.
	stream := []byte{'a', M1, M1, M1, 'z'}
	end, err := NewScanner(sliceSource(stream)).ValueEnd(0)
	require.NoError(t, err)
	assert.Equal(t, 3, end)
	val := Unescape(nil, stream[0:end])
	assert.Equal(t, []byte{'a', M1}, val)
}

func TestValueEndAtEndOfStream(t *testing.T) {
	// Closed logs pad with one extra M1 so the final run is odd.
	stream := []byte{'a', 'b', M1}
	end, err := NewScanner(sliceSource(stream)).ValueEnd(0)
	require.NoError(t, err)
	assert.Equal(t, 2, end)
}

func TestValueEndEmptyValue(t *testing.T) {
	stream := []byte{M1, M2, M1, 'k'}
	end, err := NewScanner(sliceSource(stream)).ValueEnd(0)
	require.NoError(t, err)
	assert.Equal(t, 0, end)
}

func TestValueEndMalformed(t *testing.T) {
	// No terminator at all.
	_, err := NewScanner(sliceSource([]byte{'a', 'b'})).ValueEnd(0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// Even run at end-of-stream (missing pad).
	_, err = NewScanner(sliceSource([]byte{'a', M1, M1})).ValueEnd(0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
