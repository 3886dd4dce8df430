package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewLogger_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "component", "scanner")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "scanner", record["component"])
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNewLogger_RedactsAPIKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Output: &buf, Format: "text"})

	logger.Info("provider ready", "key", "sk-abcdefghijklmnopqrstuvwx")

	out := buf.String()
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx")
	assert.Contains(t, out, "[REDACTED_OPENAI_KEY]")
}

func TestRedactor_Patterns(t *testing.T) {
	r := NewRedactor()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"openai", "using sk-abcdefghijklmnopqrstuv now", "using [REDACTED_OPENAI_KEY] now"},
		{"anthropic", "sk-ant-REDACTED", "[REDACTED_ANTHROPIC_KEY]"},
		{"perplexity", "pplx-abcdefghijklmnopqrstuv", "[REDACTED_PERPLEXITY_KEY]"},
		{"bearer", "Bearer abc.def.ghi", "Bearer [REDACTED]"},
		{"plain text untouched", "scanning 42 files", "scanning 42 files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Redact(tt.in))
		})
	}
}
