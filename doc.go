// Package seqpile is an embedded, shardable pileup store for linear
// coordinate spaces: per-position visit counts plus a multiset of
// variable-length edit records observed at each position.
//
// A pileup has two phases. While open it accepts writes: coverage
// increments go to a fast dynamic counter array and edit records are
// appended to per-bin temp-file logs. Compacting converts it, one way,
// into an immutable queryable form: a bit-packed coverage array and one
// compressed full-text index per bin.
//
// # Quick Start
//
//	g := basis.NewFlatGraph(10)
//	p, _ := seqpile.New(g, g.Len(), seqpile.WithBinSize(5))
//
//	p.Add(seqpile.Alignment[edit.Edit]{
//	    Mappings: []seqpile.Mapping[edit.Edit]{{
//	        Position: basis.Position{NodeID: 1, Offset: 3},
//	        Edits:    []edit.Edit{{FromLen: 3, ToLen: 3}},
//	    }},
//	}, true)
//
//	p.Compact(ctx)
//	cov, _ := p.CoverageAt(4)
//	edits, _ := p.EditsAt(7)
//
// # Scaling Model
//
// A pileup is single-writer: calls on one instance must be serialized by
// the caller. Parallelism comes from running one open pileup per input
// shard, then combining them:
//
//	target, _ := seqpile.New(g, g.Len(), seqpile.WithBinSize(5))
//	target.Merge(a, b, c) // a, b, c already compacted
//	target.Compact(ctx)
//
// # Persistence
//
// Compacted pileups serialize to a single self-describing stream.
// Save/Load work against io.Writer/io.Reader, plain files, or any
// blobstore.Store (local directory, memory, S3, MinIO).
package seqpile
