package kmerdb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with field names shared by the build pipeline.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithSpecies adds a species field.
func (l *Logger) WithSpecies(name string) *Logger {
	return &Logger{Logger: l.Logger.With("species", name)}
}

// LogPhase logs a coordinator state transition.
func (l *Logger) LogPhase(ctx context.Context, from, to State) {
	l.DebugContext(ctx, "phase", "from", from.String(), "to", to.String())
}

// LogGenome logs the k-mers collected from one genome file.
func (l *Logger) LogGenome(ctx context.Context, path string, kmers uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "count failed", "genome", path, "error", err)
		return
	}
	l.DebugContext(ctx, "genome counted", "genome", path, "kmers", kmers)
}

// LogMerge logs the result of the computing phase.
func (l *Logger) LogMerge(ctx context.Context, total, kept, dropped int, elapsed time.Duration) {
	l.InfoContext(ctx, "merge completed",
		"kmers", total,
		"kept", kept,
		"dropped", dropped,
		"elapsed", elapsed,
	)
}

// LogPublish logs the outcome of an atomic publish.
func (l *Logger) LogPublish(ctx context.Context, path string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed", "output", path, "error", err)
		return
	}
	l.InfoContext(ctx, "database published", "output", path, "entries", entries)
}
