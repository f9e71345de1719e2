package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
)

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New builds the process logger. "pretty" renders through pterm for local
// runs, anything else writes JSON lines to w.
func New(format, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)

	if format == "pretty" {
		ptermLogger := pterm.DefaultLogger.WithLevel(ptermLevel(lvl)).WithWriter(w)
		return slog.New(pterm.NewSlogHandler(ptermLogger))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level >= slog.LevelError:
		return pterm.LogLevelError
	case level >= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelInfo
	}
}
