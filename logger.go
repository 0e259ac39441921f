package zoctree

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with zoctree-specific helpers so operation logs
// use consistent field names.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithID adds a payload id field to the logger.
func (l *Logger) WithID(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// LogMutation logs an insert, delete or update operation.
func (l *Logger) LogMutation(op string, id uint64, err error) {
	if err != nil {
		l.Error(op+" failed", "id", id, "error", err)
	} else {
		l.Debug(op+" completed", "id", id)
	}
}

// LogQuery logs a range or nearest-neighbor query.
func (l *Logger) LogQuery(op string, matched int, err error) {
	if err != nil {
		l.Error(op+" failed", "error", err)
	} else {
		l.Debug(op+" completed", "matched", matched)
	}
}
