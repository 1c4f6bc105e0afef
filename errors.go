package seqpile

import (
	"errors"
	"fmt"
)

var (
	// ErrCompacted is returned when a write reaches an already
	// compacted pileup.
	ErrCompacted = errors.New("pileup is compacted and immutable")

	// ErrNotCompacted is returned when a query or serialization reaches
	// a pileup that is still open for writes.
	ErrNotCompacted = errors.New("pileup is not compacted")

	// ErrNotImplemented is returned by the compacted-to-open reverse
	// transition, which has no implementation. It fails loudly rather
	// than silently succeeding.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidBinSize is returned for a negative bin size.
	ErrInvalidBinSize = errors.New("bin size must be zero or positive")

	// ErrInvalidLength is returned for a negative basis length.
	ErrInvalidLength = errors.New("basis length must be non-negative")
)

// ErrPositionOutOfRange indicates a position outside [0, Len).
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrPositionOutOfRange struct {
	Position int
	Length   int
	cause    error
}

func (e *ErrPositionOutOfRange) Error() string {
	return fmt.Sprintf("position %d out of range [0,%d)", e.Position, e.Length)
}

func (e *ErrPositionOutOfRange) Unwrap() error { return e.cause }

// ErrBasisMismatch indicates a merge across pileups that do not share a
// coordinate space. Merging such pileups would silently corrupt both
// coverage and edits, so it is rejected up front.
type ErrBasisMismatch struct {
	Field          string // "length", "binSize" or "nBins"
	Target, Source int
}

func (e *ErrBasisMismatch) Error() string {
	return fmt.Sprintf("basis mismatch: source %s %d does not match target %d", e.Field, e.Source, e.Target)
}
