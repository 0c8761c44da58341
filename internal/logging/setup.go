package logging

import (
	"io"
	"log/slog"
)

// Options controls how the process-wide logger is built.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string

	// JSON switches to the JSON handler (useful for the HTTP API behind a collector).
	JSON bool
}

// NewLogger builds a slog.Logger writing to w.
// A nil writer yields a logger that discards everything.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Setup installs a new logger as slog's default and returns it.
func Setup(w io.Writer, opts Options) *slog.Logger {
	logger := NewLogger(w, opts)
	slog.SetDefault(logger)
	return logger
}
