package seqpile

import (
	"runtime"

	"github.com/seqpile/seqpile/editlog"
)

type options struct {
	binSize          int
	logger           *Logger
	tempDir          string
	logCompression   editlog.Compression
	coverageWidth    uint8
	buildParallelism int
}

func defaultOptions() options {
	return options{
		binSize:          0, // single bin
		logger:           NoopLogger(),
		buildParallelism: runtime.GOMAXPROCS(0),
	}
}

// Option configures pileup construction.
type Option func(*options)

// WithBinSize shards the position range into bins of the given size.
// Each bin gets its own edit log and, after compaction, its own index,
// bounding per-index size and letting index construction parallelize.
//
// Zero (the default) keeps everything in a single bin. The bin size of a
// persisted pileup is fixed; writer and readers always agree because it
// travels with the data.
func WithBinSize(n int) Option {
	return func(o *options) {
		o.binSize = n
	}
}

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithTempDir places the write-phase edit logs in dir instead of the
// system temp directory. The directory must exist and be writable.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithLogCompression compresses the on-disk edit logs. Useful for
// edit-heavy runs where temp-file volume dominates disk usage; costs CPU
// on both the write path and compaction.
func WithLogCompression(c editlog.Compression) Option {
	return func(o *options) {
		o.logCompression = c
	}
}

// WithCoverageWidth forces the bit width of the packed coverage array
// instead of deriving it from the observed maximum. Counts exceeding the
// width saturate at its maximum value; they never wrap.
//
// Zero (the default) derives the minimal lossless width.
func WithCoverageWidth(bits uint8) Option {
	return func(o *options) {
		o.coverageWidth = bits
	}
}

// WithBuildParallelism bounds the number of per-bin indexes built
// concurrently during Compact. Defaults to GOMAXPROCS. Values below one
// are treated as one.
func WithBuildParallelism(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.buildParallelism = n
	}
}
