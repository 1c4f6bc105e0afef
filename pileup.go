package seqpile

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/seqpile/seqpile/basis"
	"github.com/seqpile/seqpile/coverage"
	"github.com/seqpile/seqpile/edit"
	"github.com/seqpile/seqpile/editlog"
	"github.com/seqpile/seqpile/fmindex"
	"github.com/seqpile/seqpile/internal/escape"
)

// Record is the edit record collaborator: anything byte-serializable
// with a trivial-match predicate and a strand-reversal transform can be
// stored. edit.Edit is the default implementation.
type Record[R any] interface {
	// Marshal returns the record's byte serialization.
	Marshal() []byte
	// IsMatch reports whether the record is a trivial match, which
	// contributes coverage instead of being stored.
	IsMatch() bool
	// Span returns the number of basis positions the record consumes.
	Span() int
	// ReverseComplement expresses the record on the opposite strand.
	ReverseComplement() R
}

// Mapping places a run of records at a strand-aware graph position.
type Mapping[R Record[R]] struct {
	Position basis.Position
	Edits    []R
}

// Alignment is one observation to record: a sequence of mappings, each
// carrying the edits seen from its position onward.
type Alignment[R Record[R]] struct {
	Mappings []Mapping[R]
}

// Pileup records per-position coverage and edit records over a linear
// basis of fixed length.
//
// A Pileup is either open (mutable, accepts Add and Merge) or compacted
// (immutable, accepts queries and serialization). Compact is the only
// transition and it is one-way. Instances are not safe for concurrent
// use; run one open pileup per worker and merge afterwards.
type Pileup[R Record[R]] struct {
	opts    options
	logger  *Logger
	graph   basis.Graph
	length  int
	binSize int
	nBins   int
	decode  func([]byte) (R, error)

	// open state
	dyn  *coverage.Dynamic
	logs *editlog.Set

	// compacted state
	compacted bool
	cov       *coverage.Compact
	indexes   []*fmindex.Index

	// edited tracks, per bin, which positions hold at least one record.
	// Valid in both states; merged by OR.
	edited []*roaring64.Bitmap
}

// New creates an open pileup over the default edit.Edit record type.
// g supplies the coordinate mapping for Add; length is the basis length.
func New(g basis.Graph, length int, opts ...Option) (*Pileup[edit.Edit], error) {
	return NewWithRecords(g, length, edit.Unmarshal, opts...)
}

// NewWithRecords creates an open pileup over a custom record type.
// decode must invert the record's Marshal.
func NewWithRecords[R Record[R]](g basis.Graph, length int, decode func([]byte) (R, error), opts ...Option) (*Pileup[R], error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if length < 0 {
		return nil, ErrInvalidLength
	}
	if o.binSize < 0 {
		return nil, ErrInvalidBinSize
	}
	p := &Pileup[R]{
		opts:    o,
		logger:  o.logger,
		graph:   g,
		length:  length,
		binSize: o.binSize,
		nBins:   binCount(length, o.binSize),
		decode:  decode,
		dyn:     coverage.NewDynamic(length),
	}
	p.logs = editlog.NewSet(p.nBins, func(lo *editlog.Options) {
		lo.Dir = o.tempDir
		lo.Compression = o.logCompression
	})
	p.edited = make([]*roaring64.Bitmap, p.nBins)
	for i := range p.edited {
		p.edited[i] = roaring64.New()
	}
	return p, nil
}

func binCount(length, binSize int) int {
	if binSize <= 0 || length == 0 {
		return 1
	}
	return (length + binSize - 1) / binSize
}

// Len returns the basis length.
func (p *Pileup[R]) Len() int { return p.length }

// BinSize returns the configured bin size; zero means a single bin.
func (p *Pileup[R]) BinSize() int { return p.binSize }

// Bins returns the number of bins.
func (p *Pileup[R]) Bins() int { return p.nBins }

// Compacted reports whether the pileup has been compacted.
func (p *Pileup[R]) Compacted() bool { return p.compacted }

// binOf returns the bin holding position i. Writers and readers of the
// same pileup always agree because binSize is fixed at construction and
// persisted.
func (p *Pileup[R]) binOf(i int) int {
	if p.binSize > 0 {
		return i / p.binSize
	}
	return 0
}

func (p *Pileup[R]) checkPosition(i int) error {
	if i < 0 || i >= p.length {
		return &ErrPositionOutOfRange{Position: i, Length: p.length}
	}
	return nil
}

// Add records one alignment. Trivial-match records increment coverage
// for every basis position they span, walking backwards on the reverse
// strand. Non-match records are stored only when recordEdits is set,
// normalized to the forward strand first.
func (p *Pileup[R]) Add(aln Alignment[R], recordEdits bool) error {
	if p.compacted {
		return ErrCompacted
	}
	for _, m := range aln.Mappings {
		i := basis.PositionInBasis(p.graph, m.Position)
		for _, e := range m.Edits {
			if e.IsMatch() {
				if err := p.addMatch(i, e.Span(), m.Position.IsReverse); err != nil {
					return err
				}
			} else if recordEdits {
				if err := p.addEdit(i, e, m.Position.IsReverse); err != nil {
					return err
				}
			}
			if m.Position.IsReverse {
				i -= e.Span()
			} else {
				i += e.Span()
			}
		}
	}
	return nil
}

func (p *Pileup[R]) addMatch(i, span int, isReverse bool) error {
	for j := 0; j < span; j++ {
		pos := i + j
		if isReverse {
			pos = i - j
		}
		if err := p.checkPosition(pos); err != nil {
			return fmt.Errorf("add coverage: %w", err)
		}
		p.dyn.Increment(pos)
	}
	return nil
}

func (p *Pileup[R]) addEdit(i int, e R, isReverse bool) error {
	if err := p.checkPosition(i); err != nil {
		return fmt.Errorf("add edit: %w", err)
	}
	if i == 0 {
		// Position 0 is reserved; records there are never queryable.
		return nil
	}
	rec := e
	if isReverse {
		rec = e.ReverseComplement()
	}
	buf := encodeKey(i)
	buf = encodeValue(buf, rec.Marshal())
	bin := p.binOf(i)
	if err := p.logs.Append(bin, buf); err != nil {
		return err
	}
	p.edited[bin].Add(uint64(i))
	return nil
}

// Compact converts the pileup into its immutable queryable form: edit
// logs are closed and drained into one index per bin, the coverage array
// is bit-packed, and temp files are removed. Idempotent; a second call
// is a no-op.
//
// This is the expensive step. Index construction cost scales with total
// edit volume; per-bin builds run concurrently up to the configured
// parallelism, and the call blocks until every bin is done.
func (p *Pileup[R]) Compact(ctx context.Context) error {
	if p.compacted {
		return nil
	}
	start := time.Now()
	err := p.compact(ctx)
	var editBytes int64
	for _, x := range p.indexes {
		editBytes += int64(x.Len())
	}
	p.logger.LogCompact(ctx, p.nBins, editBytes, time.Since(start), err)
	return err
}

func (p *Pileup[R]) compact(ctx context.Context) error {
	if err := p.logs.Close(); err != nil {
		return fmt.Errorf("close edit logs: %w", err)
	}

	p.cov = coverage.Pack(p.dyn, p.opts.coverageWidth)

	indexes := make([]*fmindex.Index, p.nBins)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.buildParallelism)
	for b := 0; b < p.nBins; b++ {
		b := b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := p.logs.Bytes(b)
			if err != nil {
				return err
			}
			indexes[b] = fmindex.Build(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.cov = nil
		return fmt.Errorf("build bin indexes: %w", err)
	}

	p.logs.Remove()
	p.indexes = indexes
	p.dyn = nil
	p.compacted = true
	return nil
}

// MakeDynamic would reverse a compacted pileup back into its mutable
// form. There is no implementation; it exists so the missing transition
// fails loudly instead of being mistaken for a no-op.
func (p *Pileup[R]) MakeDynamic() error {
	if !p.compacted {
		return nil
	}
	return fmt.Errorf("reopen compacted pileup: %w", ErrNotImplemented)
}

// Merge replays each compacted source into this open pileup: stored edit
// records are appended verbatim to the matching bins and coverage counts
// are accumulated position by position. Call Compact afterwards to
// finalize.
//
// Every source must share this pileup's coordinate space; a mismatch
// fails with ErrBasisMismatch before anything is copied.
func (p *Pileup[R]) Merge(sources ...*Pileup[R]) error {
	if p.compacted {
		return ErrCompacted
	}
	for _, src := range sources {
		if !src.compacted {
			return fmt.Errorf("merge source: %w", ErrNotCompacted)
		}
		if err := p.checkSameBasis(src); err != nil {
			return err
		}
	}
	for _, src := range sources {
		if err := p.mergeOne(src); err != nil {
			p.logger.LogMerge(len(sources), err)
			return err
		}
	}
	p.logger.LogMerge(len(sources), nil)
	return nil
}

func (p *Pileup[R]) checkSameBasis(src *Pileup[R]) error {
	if src.length != p.length {
		return &ErrBasisMismatch{Field: "length", Target: p.length, Source: src.length}
	}
	if src.binSize != p.binSize {
		return &ErrBasisMismatch{Field: "binSize", Target: p.binSize, Source: src.binSize}
	}
	if src.nBins != p.nBins {
		return &ErrBasisMismatch{Field: "nBins", Target: p.nBins, Source: src.nBins}
	}
	return nil
}

func (p *Pileup[R]) mergeOne(src *Pileup[R]) error {
	for b := 0; b < p.nBins; b++ {
		n := src.indexes[b].Len()
		if n <= 1 {
			continue // empty, or pad only
		}
		// Chomp the trailing pad: the records are self-delimiting and
		// the pad discipline is re-established when this pileup's own
		// logs close.
		data, err := src.indexes[b].Extract(0, n-1)
		if err != nil {
			return fmt.Errorf("merge bin %d: %w", b, err)
		}
		if err := p.logs.Append(b, data); err != nil {
			return fmt.Errorf("merge bin %d: %w", b, err)
		}
		p.edited[b].Or(src.edited[b])
	}
	for i := 0; i < p.length; i++ {
		p.dyn.IncrementBy(i, src.cov.At(i))
	}
	return nil
}

// CoverageAt returns the visit count at position i. The pileup must be
// compacted.
func (p *Pileup[R]) CoverageAt(i int) (uint64, error) {
	if !p.compacted {
		return 0, ErrNotCompacted
	}
	if err := p.checkPosition(i); err != nil {
		return 0, err
	}
	return p.cov.At(i), nil
}

// EditsAt returns every edit record stored at position i, normalized to
// the forward strand, in index occurrence order (ascending offset).
// Position 0 holds no records by construction and returns an empty
// result immediately.
func (p *Pileup[R]) EditsAt(i int) ([]R, error) {
	if !p.compacted {
		return nil, ErrNotCompacted
	}
	if i == 0 {
		return nil, nil
	}
	if err := p.checkPosition(i); err != nil {
		return nil, err
	}
	bin := p.binOf(i)
	if !p.edited[bin].Contains(uint64(i)) {
		return nil, nil
	}
	idx := p.indexes[bin]
	key := encodeKey(i)
	scanner := escape.NewScanner(idx)

	var out []R
	for _, occ := range idx.Locate(key) {
		// The value starts after the key and its leading separator.
		b := occ + len(key) + 1
		e, err := scanner.ValueEnd(b)
		if err != nil {
			return nil, fmt.Errorf("bin %d: recover record boundary at %d: %w", bin, b, err)
		}
		raw, err := idx.Extract(b, e)
		if err != nil {
			return nil, fmt.Errorf("bin %d: %w", bin, err)
		}
		rec, err := p.decode(escape.Unescape(nil, raw))
		if err != nil {
			return nil, fmt.Errorf("bin %d: decode record at %d: %w", bin, occ, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// CountEditsAt returns the number of edit records stored at position i.
func (p *Pileup[R]) CountEditsAt(i int) (int, error) {
	if !p.compacted {
		return 0, ErrNotCompacted
	}
	if i == 0 {
		return 0, nil
	}
	if err := p.checkPosition(i); err != nil {
		return 0, err
	}
	bin := p.binOf(i)
	if !p.edited[bin].Contains(uint64(i)) {
		return 0, nil
	}
	return p.indexes[bin].Count(encodeKey(i)), nil
}

// Close releases any write-phase resources: open log handles are closed
// and temp files removed. Safe in any state; Compact already cleans up
// after itself, Close covers early teardown and error paths.
func (p *Pileup[R]) Close() error {
	err := p.logs.Close()
	p.logs.Remove()
	return err
}
