// Package logger builds the application's *slog.Logger.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging:           JSON output at DEBUG level.
// Production (prod): JSON output at INFO level.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a logger for env writing to stderr, leaving stdout to the
// command's own output.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "staging":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default: // "dev" and anything unrecognised
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
