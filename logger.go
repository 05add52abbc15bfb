package iopath

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with iopath-specific context. It provides
// structured logging with consistent field names across the handler and
// the stream packages.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// WithAccount adds a storage account field to the logger.
func (l *Logger) WithAccount(account string) *Logger {
	return &Logger{Logger: l.Logger.With("account", account)}
}
