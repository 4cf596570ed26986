// Package logging constructs the single process-wide structured logger.
// It is threaded explicitly into component constructors rather than
// referenced as a package-level global.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a slog.Logger writing leveled, structured text to w (or
// os.Stderr if w is nil). debug enables Debug-level records.
func New(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// Discard returns a logger that drops every record, for tests that don't
// care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
