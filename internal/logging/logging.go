// Package logging provides the shared structured JSON logger used by all
// Lambda functions in this repository.
package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout at Info level.
// CloudWatch Logs ingests one JSON object per line.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
