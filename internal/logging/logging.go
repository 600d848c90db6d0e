package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide JSON logger. Every line carries the
// service name so fleet log queries can tell trustpayd apart from co-located
// daemons.
func NewLogger(level, service string) *slog.Logger {
	return newLoggerTo(os.Stdout, level, service)
}

func newLoggerTo(w io.Writer, level, service string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h)
	if service != "" {
		logger = logger.With("service", service)
	}
	return logger
}
