// Package logging wraps log/slog with the field names used across the
// database.
package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger writing to handler. A nil handler writes text
// to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// FromSlog wraps an existing slog.Logger. A nil logger discards everything.
func FromSlog(l *slog.Logger) *Logger {
	if l == nil {
		return NoopLogger()
	}
	return &Logger{Logger: l}
}

// NoopLogger returns a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithDatafile tags records with the datafile name.
func (l *Logger) WithDatafile(filename string) *Logger {
	return &Logger{Logger: l.Logger.With("datafile", filename)}
}

// WithOperation tags records with a datastore operation name.
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{Logger: l.Logger.With("op", op)}
}
