package escape

import "io"

// ByteSource is the random-access view of a byte stream that the scanner
// walks. fmindex.Index satisfies it.
type ByteSource interface {
	// ByteAt returns the byte at offset i, or io.EOF past the end.
	ByteAt(i int) (byte, error)
}

// scanState is the scanner's position in the boundary-recovery walk.
type scanState int

const (
	stateSeek scanState = iota // looking for the next M1
	stateRun                   // counting a run of consecutive M1
)

// Scanner finds the end of a value inside an escaped stream.
//
// Values carry no length prefix. Their end is marked by an M1 byte, but
// literal M1 bytes inside the value appear as doubled (even-length) runs.
// The scanner walks forward, measuring each run of consecutive M1 bytes:
// an even run belongs to the value, an odd run's final byte is the true
// terminator.
type Scanner struct {
	src ByteSource
}

// NewScanner returns a Scanner over src.
func NewScanner(src ByteSource) *Scanner {
	return &Scanner{src: src}
}

// ValueEnd returns the exclusive end offset of the value that starts at
// offset b. The terminator byte itself is not part of the value, but the
// even prefix of the terminating run (escaped literal M1 bytes) is.
//
// The stream invariant guarantees a true terminator exists: encoders emit
// an unescaped M1 after every value, and a closed log carries one extra
// M1 pad so the rule holds at end-of-stream. A malformed stream surfaces
// as io.ErrUnexpectedEOF.
func (s *Scanner) ValueEnd(b int) (int, error) {
	state := stateSeek
	runStart := 0
	for i := b; ; i++ {
		c, err := s.src.ByteAt(i)
		if err == io.EOF {
			if state == stateRun {
				// Run touches end-of-stream. The pad byte makes the
				// final run odd, so the run is terminated here.
				if run := i - runStart; run%2 != 0 {
					return runStart + run - 1, nil
				}
			}
			return 0, io.ErrUnexpectedEOF
		}
		if err != nil {
			return 0, err
		}
		switch state {
		case stateSeek:
			if c == M1 {
				state = stateRun
				runStart = i
			}
		case stateRun:
			if c == M1 {
				continue
			}
			run := i - runStart
			if run%2 != 0 {
				// Odd run: last byte is the terminator, the rest is
				// doubled payload that stays with the value.
				return runStart + run - 1, nil
			}
			// Even run: escaped literal M1 bytes, keep seeking.
			state = stateSeek
			// Current byte could not start a run (it is not M1).
		}
	}
}
