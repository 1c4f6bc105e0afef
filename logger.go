package seqpile

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with pileup-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithBin adds a bin field to the logger.
func (l *Logger) WithBin(bin int) *Logger {
	return &Logger{Logger: l.Logger.With("bin", bin)}
}

// WithPosition adds a position field to the logger.
func (l *Logger) WithPosition(i int) *Logger {
	return &Logger{Logger: l.Logger.With("position", i)}
}

// LogCompact logs a compaction.
func (l *Logger) LogCompact(ctx context.Context, bins int, editBytes int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed",
			"bins", bins,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "compaction completed",
			"bins", bins,
			"edit_bytes", editBytes,
			"elapsed", elapsed,
		)
	}
}

// LogMerge logs a merge of compacted sources into an open pileup.
func (l *Logger) LogMerge(sources int, err error) {
	if err != nil {
		l.Error("merge failed",
			"sources", sources,
			"error", err,
		)
	} else {
		l.Info("merge completed",
			"sources", sources,
		)
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(name string, bytes int64, err error) {
	if err != nil {
		l.Error("save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("pileup saved",
			"name", name,
			"bytes", bytes,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(name string, err error) {
	if err != nil {
		l.Error("load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("pileup loaded",
			"name", name,
		)
	}
}
