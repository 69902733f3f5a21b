package logging

import (
	"io"
	"log/slog"
)

// Setup builds the application logger. Components derive their own loggers
// from it with .With("component", ...).
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
