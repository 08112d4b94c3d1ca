package app

import (
	"io"
	"log/slog"
)

// parseLevel maps the CLI's already-validated level string onto slog's
// leveled constants. Anything unrecognized falls back to info.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the app's isolated logger. The process-global default is
// left untouched so embedded use keeps its own logging setup.
func newLogger(level slog.Level, format string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
