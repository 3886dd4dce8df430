package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfig_RequiresModels(t *testing.T) {
	t.Setenv("PPLX_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := buildConfig(&cliFlags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models configured")
}

func TestBuildConfig_EnvAutodetect(t *testing.T) {
	t.Setenv("PPLX_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := buildConfig(&cliFlags{})
	require.NoError(t, err)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "openai", cfg.Models[0].Provider)
	assert.Equal(t, "gpt-4", cfg.Models[0].Model)
}

func TestBuildConfig_FlagsOverrideFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - model: gpt-4
    api_key: file-key
output:
  path: from_file.md
  format: markdown
processing:
  max_workers: 4
`), 0o644))

	cfg, err := buildConfig(&cliFlags{
		configPath: path,
		output:     "cli.md",
		format:     "json",
		workers:    2,
		noFallback: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "cli.md", cfg.Output.Path)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 2, cfg.Processing.MaxWorkers)
	assert.False(t, cfg.Processing.FallbackEnabled)
	assert.Equal(t, "file-key", cfg.Models[0].APIKey)
}

func TestBuildConfig_RejectsBadFlagValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PPLX_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := buildConfig(&cliFlags{format: "pdf"})
	require.Error(t, err)

	_, err = buildConfig(&cliFlags{workers: 64})
	require.Error(t, err)
}
