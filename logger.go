package covmatch

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with covmatch-specific context.
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
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// LogRunStarted logs the start of a run.
func (l *Logger) LogRunStarted(ctx context.Context, algorithm Algorithm, units, covariates int) {
	l.DebugContext(ctx, "run started",
		"algorithm", algorithm.String(),
		"units", units,
		"covariates", covariates,
	)
}

// LogTermination logs the normal end of a run.
func (l *Logger) LogTermination(ctx context.Context, termination Termination, reason string, iterations, groups int) {
	l.InfoContext(ctx, "run terminated",
		"termination", string(termination),
		"reason", reason,
		"iterations", iterations,
		"groups", groups,
	)
}

// LogRunFailed logs an aborted run.
func (l *Logger) LogRunFailed(ctx context.Context, iterations, groups int, err error) {
	l.ErrorContext(ctx, "run failed",
		"iterations", iterations,
		"groups", groups,
		"error", err,
	)
}

// LogScoring logs the scoring work of a run.
func (l *Logger) LogScoring(ctx context.Context, fits int64, memoized int, hits, misses int64) {
	l.DebugContext(ctx, "scoring summary",
		"fits", fits,
		"memoized", memoized,
		"memo_hits", hits,
		"memo_misses", misses,
	)
}

// LogExport logs a result export.
func (l *Logger) LogExport(ctx context.Context, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"name", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "export completed",
			"name", name,
			"bytes", size,
		)
	}
}
