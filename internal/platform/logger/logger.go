package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Handlers and services receive it by
// injection; nothing reads the slog default.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
