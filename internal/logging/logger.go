package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vanshika/indica/backend/internal/config"
)

// New builds a slog.Logger writing to stdout according to the provided logging config.
func New(cfg config.LoggingConfig) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   cfg.IncludeCaller,
		ReplaceAttr: redactSecrets,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops every record; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

var secretKeys = map[string]struct{}{
	"password":              {},
	"passwordConfirmation":  {},
	"password_confirmation": {},
	"apiKey":                {},
	"secret":                {},
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[a.Key]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}
