package seqpile

import (
	"fmt"
	"io"
)

// WriteTable writes one line per position: the position, its coverage
// and, when showEdits is set, the record count followed by the records
// themselves. Debug output; the format is not a stable interface.
func (p *Pileup[R]) WriteTable(w io.Writer, showEdits bool) error {
	if !p.compacted {
		return ErrNotCompacted
	}
	for i := 0; i < p.length; i++ {
		if _, err := fmt.Fprintf(w, "%d\t%d", i, p.cov.At(i)); err != nil {
			return err
		}
		if showEdits {
			count, err := p.CountEditsAt(i)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "\t%d", count); err != nil {
				return err
			}
			edits, err := p.EditsAt(i)
			if err != nil {
				return err
			}
			for _, e := range edits {
				if _, err := fmt.Fprintf(w, " %+v", e); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// DumpStructure writes the internal shape of a compacted pileup: the
// packed coverage array and each bin's stored byte stream. Debug output.
func (p *Pileup[R]) DumpStructure(w io.Writer) error {
	if !p.compacted {
		return ErrNotCompacted
	}
	if _, err := fmt.Fprintf(w, "coverage: len=%d width=%d [", p.cov.Len(), p.cov.Width()); err != nil {
		return err
	}
	for i := 0; i < p.cov.Len(); i++ {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%d", p.cov.At(i)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "]\n"); err != nil {
		return err
	}
	for b, idx := range p.indexes {
		raw, err := idx.Extract(0, idx.Len())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "bin %d: %d bytes, %d positions with edits: %q\n",
			b, idx.Len(), p.edited[b].GetCardinality(), raw); err != nil {
			return err
		}
	}
	return nil
}
