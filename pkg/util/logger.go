package util

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Development gets debug-level
// text with source locations for readable local output; any other
// environment ships info-level JSON tagged with the service name.
func NewLogger(env string) *slog.Logger {
	if env == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler).With("service", "teambase")
}
