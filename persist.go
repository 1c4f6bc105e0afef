package seqpile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/seqpile/seqpile/blobstore"
	"github.com/seqpile/seqpile/coverage"
	"github.com/seqpile/seqpile/edit"
	"github.com/seqpile/seqpile/editlog"
	"github.com/seqpile/seqpile/fmindex"
	"github.com/seqpile/seqpile/internal/conv"
)

// Persisted stream layout, little-endian, fields in order:
//
//	magic:4 version:4 binSize:8 nBins:8
//	coverage array (self-describing, coverage.Compact)
//	nBins index frames (self-describing, fmindex)
//	nBins edited-position bitmap frames ([len:8][roaring64 bytes])
const (
	magicNumber uint32 = 0x53515045 // "SQPE"
	version     uint32 = 1
)

// Save serializes a compacted pileup to w and returns the bytes written.
// Saving an open pileup fails with ErrNotCompacted: serialization never
// compacts implicitly.
func (p *Pileup[R]) Save(w io.Writer) (int64, error) {
	if !p.compacted {
		return 0, ErrNotCompacted
	}
	var written int64
	for _, v := range []uint32{magicNumber, version} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return written, err
		}
		written += 4
	}
	binSize, err := conv.IntToUint64(p.binSize)
	if err != nil {
		return written, err
	}
	nBins, err := conv.IntToUint64(p.nBins)
	if err != nil {
		return written, err
	}
	for _, v := range []uint64{binSize, nBins} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return written, err
		}
		written += 8
	}
	n, err := p.cov.WriteTo(w)
	written += n
	if err != nil {
		return written, fmt.Errorf("write coverage: %w", err)
	}
	for b, idx := range p.indexes {
		n, err := idx.WriteTo(w)
		written += n
		if err != nil {
			return written, fmt.Errorf("write bin %d index: %w", b, err)
		}
	}
	for b, bm := range p.edited {
		var buf bytes.Buffer
		if _, err := bm.WriteTo(&buf); err != nil {
			return written, fmt.Errorf("write bin %d bitmap: %w", b, err)
		}
		size, err := conv.IntToUint64(buf.Len())
		if err != nil {
			return written, err
		}
		if err := binary.Write(w, binary.LittleEndian, size); err != nil {
			return written, err
		}
		written += 8
		m, err := w.Write(buf.Bytes())
		written += int64(m)
		if err != nil {
			return written, fmt.Errorf("write bin %d bitmap: %w", b, err)
		}
	}
	return written, nil
}

// Load reconstructs a compacted pileup over the default edit.Edit record
// type from a stream written by Save.
func Load(r io.Reader, opts ...Option) (*Pileup[edit.Edit], error) {
	return LoadWithRecords(r, edit.Unmarshal, opts...)
}

// LoadWithRecords reconstructs a compacted pileup over a custom record
// type. decode must match the decoder the pileup was built with.
func LoadWithRecords[R Record[R]](r io.Reader, decode func([]byte) (R, error), opts ...Option) (*Pileup[R], error) {
	var magic, ver uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("bad magic: got %#08x, want %#08x", magic, magicNumber)
	}
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if ver != version {
		return nil, fmt.Errorf("unsupported version %d", ver)
	}
	var binSizeU, nBinsU uint64
	if err := binary.Read(r, binary.LittleEndian, &binSizeU); err != nil {
		return nil, fmt.Errorf("read bin size: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nBinsU); err != nil {
		return nil, fmt.Errorf("read bin count: %w", err)
	}
	binSize, err := conv.Uint64ToInt(binSizeU)
	if err != nil {
		return nil, err
	}
	nBins, err := conv.Uint64ToInt(nBinsU)
	if err != nil {
		return nil, err
	}
	cov, err := coverage.ReadCompact(r)
	if err != nil {
		return nil, fmt.Errorf("read coverage: %w", err)
	}
	if want := binCount(cov.Len(), binSize); nBins != want {
		return nil, fmt.Errorf("corrupt header: %d bins for length %d and bin size %d (want %d)",
			nBins, cov.Len(), binSize, want)
	}

	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	o.binSize = binSize // the persisted coordinate space wins

	p := &Pileup[R]{
		opts:      o,
		logger:    o.logger,
		length:    cov.Len(),
		binSize:   binSize,
		nBins:     nBins,
		decode:    decode,
		compacted: true,
		cov:       cov,
		indexes:   make([]*fmindex.Index, nBins),
		edited:    make([]*roaring64.Bitmap, nBins),
	}
	p.logs = editlog.NewSet(nBins, func(lo *editlog.Options) {
		lo.Dir = o.tempDir
	})
	for b := 0; b < nBins; b++ {
		idx, err := fmindex.Read(r)
		if err != nil {
			return nil, fmt.Errorf("read bin %d index: %w", b, err)
		}
		p.indexes[b] = idx
	}
	for b := 0; b < nBins; b++ {
		var size uint64
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("read bin %d bitmap size: %w", b, err)
		}
		nb, err := conv.Uint64ToInt(size)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, nb)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("read bin %d bitmap: %w", b, err)
		}
		bm := roaring64.New()
		if err := bm.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("parse bin %d bitmap: %w", b, err)
		}
		p.edited[b] = bm
	}
	return p, nil
}

// SaveToFile writes the pileup to a file, going through a temp file and
// an atomic rename so readers never observe a partial write.
func (p *Pileup[R]) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		p.logger.LogSave(filename, 0, err)
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	written, err := p.Save(buf)
	if err == nil {
		err = buf.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if err == nil {
		err = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmpName, filename)
	}
	if err != nil {
		p.logger.LogSave(filename, written, err)
		return err
	}
	tmpName = "" // the rename consumed the temp file
	p.logger.LogSave(filename, written, nil)
	return nil
}

// LoadFromFile reads a pileup over the default edit.Edit record type
// from a file written by SaveToFile.
func LoadFromFile(filename string, opts ...Option) (*Pileup[edit.Edit], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(bufio.NewReaderSize(f, 256*1024), opts...)
}

// MergeFromFiles loads each named file and merges it into this open
// pileup. Call Compact afterwards to finalize.
func (p *Pileup[R]) MergeFromFiles(names ...string) error {
	for _, name := range names {
		src, err := p.loadSibling(name)
		if err != nil {
			p.logger.LogLoad(name, err)
			return fmt.Errorf("merge from %s: %w", name, err)
		}
		p.logger.LogLoad(name, nil)
		if err := p.Merge(src); err != nil {
			return fmt.Errorf("merge from %s: %w", name, err)
		}
	}
	return nil
}

func (p *Pileup[R]) loadSibling(name string) (*Pileup[R], error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadWithRecords(bufio.NewReaderSize(f, 256*1024), p.decode)
}

// SaveToStore writes the pileup as a single blob in store.
func (p *Pileup[R]) SaveToStore(ctx context.Context, store blobstore.Store, name string) error {
	var buf bytes.Buffer
	written, err := p.Save(&buf)
	if err != nil {
		p.logger.LogSave(name, written, err)
		return err
	}
	err = store.Put(ctx, name, buf.Bytes())
	p.logger.LogSave(name, written, err)
	return err
}

// LoadFromStore reads a pileup over the default edit.Edit record type
// from a blob written by SaveToStore.
func LoadFromStore(ctx context.Context, store blobstore.Store, name string, opts ...Option) (*Pileup[edit.Edit], error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data), opts...)
}
