package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. Unknown levels fall back to info and
// unknown formats to JSON.
func New(level string, format string, service string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format, service)
}

func NewWithWriter(w io.Writer, level string, format string, service string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	if service != "" {
		logger = logger.With("service", service)
	}
	return logger
}

// Install builds the logger and makes it the slog default.
func Install(level string, format string, service string) *slog.Logger {
	logger := New(level, format, service)
	slog.SetDefault(logger)
	return logger
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
