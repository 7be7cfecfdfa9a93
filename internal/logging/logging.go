// Package logging configures log/slog for both binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values yield
// def.
func ParseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return def
}

// New returns the server logger: JSON in prod, text otherwise.
func New(env, level string) *slog.Logger {
	return NewWriter(os.Stdout, env, level)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level, slog.LevelInfo)}

	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs the CLI default logger. Only errors are shown unless
// LOG_LEVEL asks for more, so log lines do not tear the terminal UI.
func Init() {
	level := slog.LevelError
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = ParseLevel(l, level)
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
