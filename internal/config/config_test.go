package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 400, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 8, cfg.Processing.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.Processing.Timeout)
	assert.Equal(t, 3, cfg.Processing.RetryAttempts)
	assert.True(t, cfg.Processing.FallbackEnabled)
	assert.Equal(t, int64(10*1024*1024), cfg.Filtering.MaxFileSize)
	assert.Equal(t, "master_summary.md", cfg.Output.Path)
	assert.Equal(t, "markdown", cfg.Output.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_ExpandsEnvAndInfersProvider(t *testing.T) {
	t.Setenv("TEST_DIGEST_KEY", "sk-from-env")

	path := writeConfig(t, `
models:
  - model: gpt-4
    api_key: ${TEST_DIGEST_KEY}
  - model: claude-3-sonnet-20240229
    api_key: other-key
    max_tokens: 100000
chunking:
  chunk_size: 1500
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "openai", cfg.Models[0].Provider)
	assert.Equal(t, "sk-from-env", cfg.Models[0].APIKey)
	assert.Equal(t, 16000, cfg.Models[0].MaxTokens) // processing default
	assert.Equal(t, "anthropic", cfg.Models[1].Provider)
	assert.Equal(t, 100000, cfg.Models[1].MaxTokens)
	assert.Equal(t, 1500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 400, cfg.Chunking.ChunkOverlap) // untouched default
}

func TestLoadFromFile_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"chunk_size too small", "chunking:\n  chunk_size: 50\n"},
		{"overlap >= chunk_size", "chunking:\n  chunk_size: 500\n  chunk_overlap: 500\n"},
		{"workers too many", "processing:\n  max_workers: 64\n"},
		{"timeout too short", "processing:\n  timeout: 1s\n"},
		{"retry negative", "processing:\n  retry_attempts: -1\n"},
		{"bad format", "output:\n  format: pdf\n"},
		{"file size too small", "filtering:\n  max_file_size: 100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestInferProvider(t *testing.T) {
	assert.Equal(t, "openai", InferProvider("gpt-4"))
	assert.Equal(t, "anthropic", InferProvider("claude-3-haiku-20240307"))
	assert.Equal(t, "perplexity", InferProvider("sonar-large-chat"))
	assert.Equal(t, "openai", InferProvider("mystery-model"))
}

func TestFromEnvironment_OrderAndDefaults(t *testing.T) {
	t.Setenv("PPLX_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	models := FromEnvironment()
	require.Len(t, models, 3)

	assert.Equal(t, "perplexity", models[0].Provider)
	assert.Equal(t, "sonar-large-chat", models[0].Model)
	assert.Equal(t, 16000, models[0].MaxTokens)

	assert.Equal(t, "openai", models[1].Provider)
	assert.Equal(t, "gpt-4", models[1].Model)
	assert.Equal(t, 8000, models[1].MaxTokens)

	assert.Equal(t, "anthropic", models[2].Provider)
	assert.Equal(t, "claude-3-sonnet-20240229", models[2].Model)
	assert.Equal(t, 100000, models[2].MaxTokens)
}

func TestFromEnvironment_Empty(t *testing.T) {
	t.Setenv("PPLX_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.Empty(t, FromEnvironment())
}
