// Package logging wraps log/slog with field names and operation helpers
// shared by the index, evaluation and virtual table packages.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with consistent field names.
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

// NewJSONLogger creates a Logger writing JSON records to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger writing human-readable records to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// New builds a logger from configuration names: format is "json" or "text",
// level is any slog level name.
func New(w io.Writer, format, level string) (*Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", level, err)
		}
	}
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextLogger(w, lvl), nil
	case "json":
		return NewJSONLogger(w, lvl), nil
	}
	return nil, fmt.Errorf("logging: unsupported format %q", format)
}

// OrNoop returns l, or a discarding logger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}

// WithTable adds the source table name.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{Logger: l.Logger.With("table", table)}
}

// WithMetric adds the metric name.
func (l *Logger) WithMetric(name string) *Logger {
	return &Logger{Logger: l.Logger.With("metric", name)}
}

// WithRun adds an evaluation run identifier.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{Logger: l.Logger.With("run_id", id)}
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, items, nodes, comparisons int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"items", items,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "build completed",
		"items", items,
		"nodes", nodes,
		"comparisons", comparisons,
		"elapsed", elapsed,
	)
}

// LogSearch logs a range query.
func (l *Logger) LogSearch(ctx context.Context, method string, tau float64, results, comparisons int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"method", method,
			"tau", tau,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"method", method,
		"tau", tau,
		"results", results,
		"comparisons", comparisons,
	)
}

// LogTrial logs the outcome of one evaluation trial.
func (l *Logger) LogTrial(ctx context.Context, trial int, avgComparisons float64, avgTime time.Duration, f1 float64) {
	l.InfoContext(ctx, "trial completed",
		"trial", trial,
		"avg_comparisons", avgComparisons,
		"avg_time", avgTime,
		"f1", f1,
	)
}

// LogReindex logs a persisted rebuild of a table index.
func (l *Logger) LogReindex(ctx context.Context, table string, items int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reindex failed",
			"table", table,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "reindex completed",
		"table", table,
		"items", items,
	)
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot "+op,
		"name", name,
		"bytes", size,
	)
}
