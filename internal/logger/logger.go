// Package logger wraps log/slog with the small surface the server needs.
package logger

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger writing text records to stdout. All slog methods
// are promoted.
type Logger struct {
	*slog.Logger
}

// New creates a Logger emitting records at or above the given slog level.
func New(level int) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.Level(level),
	})

	return &Logger{Logger: slog.New(handler)}
}

// Fatal logs at error level and terminates the process. Only startup wiring
// should call it.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
