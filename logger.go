package rsmgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with rsmgo-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDataset adds a dataset field to the logger.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", name),
	}
}

// WithCriterion adds a criterion field to the logger.
func (l *Logger) WithCriterion(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("criterion", name),
	}
}

// LogSelection logs a subset-search outcome.
func (l *Logger) LogSelection(ctx context.Context, dataset string, fitted, skipped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model selection failed",
			"dataset", dataset,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "model selection completed",
			"dataset", dataset,
			"fitted", fitted,
			"skipped", skipped,
		)
	}
}

// LogCrossValidation logs a cross-validation outcome.
func (l *Logger) LogCrossValidation(ctx context.Context, dataset string, folds, successful int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cross-validation failed",
			"dataset", dataset,
			"error", err,
		)
	} else if failed := folds - successful; failed > 0 {
		l.WarnContext(ctx, "cross-validation completed with failed folds",
			"dataset", dataset,
			"folds", folds,
			"failed", failed,
		)
	} else {
		l.DebugContext(ctx, "cross-validation completed",
			"dataset", dataset,
			"folds", folds,
		)
	}
}

// LogOptimization logs a surface-optimization outcome.
func (l *Logger) LogOptimization(ctx context.Context, dataset string, evaluated uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "surface optimization failed",
			"dataset", dataset,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "surface optimization completed",
			"dataset", dataset,
			"evaluated", evaluated,
		)
	}
}

// LogBatch logs a batch run outcome.
func (l *Logger) LogBatch(ctx context.Context, total, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch run completed with failures",
			"total", total,
			"failed", failed,
			"success", total-failed,
		)
	} else {
		l.InfoContext(ctx, "batch run completed",
			"total", total,
		)
	}
}
