// Package observability owns logger construction for the tool: level and
// format selection, API-key redaction, and an optional rotating file
// sink.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Default "info".
	Level string

	// Format is "json" or "text". Default "json".
	Format string

	// Output receives log records. Default os.Stderr.
	Output io.Writer

	// FilePath, when set, sends records to a size-rotated file instead
	// of Output.
	FilePath string

	// MaxSizeMB and MaxBackups bound the rotated file set. Zero values
	// use 50 MB and 3 backups.
	MaxSizeMB  int
	MaxBackups int

	// AddSource includes source positions in records.
	AddSource bool
}

// NewLogger builds a slog.Logger from the config. String-valued
// attributes are passed through the redactor so API keys never reach the
// sink.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.FilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		out = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		}
	}

	redactor := NewRedactor()
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindString {
				a.Value = slog.StringValue(redactor.Redact(a.Value.String()))
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
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
