// Package editlog manages the write-phase edit streams: one append-only
// temp file per bin, opened lazily on first write and padded with a
// single terminator byte when closed.
//
// Log files are scoped resources. A Set guarantees that handles are
// flushed and closed exactly once and that temp files are removed on
// every exit path; the owning pileup calls Remove from its teardown.
package editlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/seqpile/seqpile/internal/escape"
)

// Compression selects the on-disk representation of log files.
type Compression int

const (
	// CompressionNone stores raw bytes. Default.
	CompressionNone Compression = iota
	// CompressionLZ4 streams appends through an lz4 frame writer and
	// decompresses transparently on read-back. Useful for edit-heavy
	// runs where temp-file volume dominates disk usage.
	CompressionLZ4
)

// Options configures a Set.
type Options struct {
	// Dir is the directory for temp files. Empty means the system
	// temp directory.
	Dir string
	// Pattern names the temp files; a unique suffix and the bin number
	// are appended.
	Pattern string
	// Compression selects the on-disk log representation.
	Compression Compression
	// BufferSize is the per-bin write buffer in bytes.
	BufferSize int
}

// DefaultOptions are the options used when none are given.
var DefaultOptions = Options{
	Pattern: "seqpile-edits",
	// 64KB per bin: logs are append-only and flushed once, at close.
	BufferSize: 64 * 1024,
}

// Set owns the per-bin edit logs of one open pileup.
type Set struct {
	opts    Options
	nBins   int
	names   []string
	files   []*os.File
	writers []*bufio.Writer
	lz4s    []*lz4.Writer
	open    bool
	closed  bool
}

// NewSet creates a Set for nBins bins. No files are created until the
// first Append.
func NewSet(nBins int, optFns ...func(o *Options)) *Set {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Set{opts: opts, nBins: nBins}
}

// Bins returns the number of bins.
func (s *Set) Bins() int { return s.nBins }

// ensureOpen creates and opens all bin files. All bins open together so
// every bin has a log (possibly empty) at compaction time.
func (s *Set) ensureOpen() error {
	if s.open {
		return nil
	}
	if s.closed {
		return fmt.Errorf("editlog: set already closed")
	}
	base, err := os.CreateTemp(s.opts.Dir, s.opts.Pattern+"-*")
	if err != nil {
		return fmt.Errorf("editlog: create temp base: %w", err)
	}
	baseName := base.Name()
	_ = base.Close()
	_ = os.Remove(baseName) // only the unique name is kept

	s.names = make([]string, s.nBins)
	s.files = make([]*os.File, s.nBins)
	s.writers = make([]*bufio.Writer, s.nBins)
	if s.opts.Compression == CompressionLZ4 {
		s.lz4s = make([]*lz4.Writer, s.nBins)
	}
	for i := 0; i < s.nBins; i++ {
		name := fmt.Sprintf("%s_%d", baseName, i)
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			s.removeOpened(i)
			return fmt.Errorf("editlog: open bin %d log: %w", i, err)
		}
		s.names[i] = name
		s.files[i] = f
		bw := bufio.NewWriterSize(f, s.opts.BufferSize)
		s.writers[i] = bw
		if s.lz4s != nil {
			s.lz4s[i] = lz4.NewWriter(bw)
		}
	}
	s.open = true
	return nil
}

// removeOpened tears down the first n bins after a partial open failure.
func (s *Set) removeOpened(n int) {
	for i := 0; i < n; i++ {
		_ = s.files[i].Close()
		_ = os.Remove(s.names[i])
	}
	s.names, s.files, s.writers, s.lz4s = nil, nil, nil, nil
}

// Append writes p to bin's log, opening all logs on first use.
func (s *Set) Append(bin int, p []byte) error {
	if s.closed {
		return fmt.Errorf("editlog: append to closed set")
	}
	if bin < 0 || bin >= s.nBins {
		return fmt.Errorf("editlog: bin %d out of range [0,%d)", bin, s.nBins)
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}
	var err error
	if s.lz4s != nil {
		_, err = s.lz4s[bin].Write(p)
	} else {
		_, err = s.writers[bin].Write(p)
	}
	if err != nil {
		return fmt.Errorf("editlog: append to bin %d: %w", bin, err)
	}
	return nil
}

// Close flushes every opened log, appends the terminator pad byte and
// releases the file handles. Idempotent; a Set that never opened closes
// without creating files.
func (s *Set) Close() error {
	if s.closed || !s.open {
		s.closed = true
		return nil
	}
	var firstErr error
	for i := 0; i < s.nBins; i++ {
		// The pad guarantees an odd terminator run at end-of-stream.
		pad := []byte{escape.M1}
		var err error
		if s.lz4s != nil {
			if _, err = s.lz4s[i].Write(pad); err == nil {
				err = s.lz4s[i].Close()
			}
		} else {
			_, err = s.writers[i].Write(pad)
		}
		if err == nil {
			err = s.writers[i].Flush()
		}
		if cerr := s.files[i].Close(); err == nil {
			err = cerr
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("editlog: close bin %d: %w", i, err)
		}
	}
	s.closed = true
	return firstErr
}

// Bytes reads back the full contents of a closed bin log, decompressing
// if the set was configured with compression.
func (s *Set) Bytes(bin int) ([]byte, error) {
	if !s.closed {
		return nil, fmt.Errorf("editlog: read from unclosed set")
	}
	if bin < 0 || bin >= s.nBins {
		return nil, fmt.Errorf("editlog: bin %d out of range [0,%d)", bin, s.nBins)
	}
	if s.names == nil {
		// Never opened: an empty log.
		return nil, nil
	}
	f, err := os.Open(s.names[bin])
	if err != nil {
		return nil, fmt.Errorf("editlog: reopen bin %d log: %w", bin, err)
	}
	defer f.Close()
	var r io.Reader = bufio.NewReader(f)
	if s.opts.Compression == CompressionLZ4 {
		r = lz4.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("editlog: read bin %d log: %w", bin, err)
	}
	return data, nil
}

// Remove deletes any temp files. Safe to call repeatedly and on a Set
// that never opened.
func (s *Set) Remove() {
	for _, name := range s.names {
		if name != "" {
			_ = os.Remove(name)
		}
	}
	s.names = nil
}

// Dir returns the directory holding the temp files, or the system temp
// directory when none was configured.
func (s *Set) Dir() string {
	if s.opts.Dir != "" {
		return s.opts.Dir
	}
	return filepath.Clean(os.TempDir())
}
