// Package config loads and validates the tool configuration: the model
// fallback chain plus chunking, filtering, output, processing, and
// logging settings. Configuration comes from a YAML file with ${VAR}
// expansion, with environment-variable autodetection filling in a model
// chain when the file provides none.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loomshed/codedigest/pkg/types"
)

// Config is the complete tool configuration.
type Config struct {
	Models     []types.ModelConfig `yaml:"models"`
	Chunking   ChunkingConfig      `yaml:"chunking"`
	Filtering  FilteringConfig     `yaml:"filtering"`
	Output     OutputConfig        `yaml:"output"`
	Processing ProcessingConfig    `yaml:"processing"`
	Logging    LoggingConfig       `yaml:"logging"`
}

// ChunkingConfig controls how large files are split.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`    // tokens per chunk
	ChunkOverlap int `yaml:"chunk_overlap"` // tokens shared between adjacent generic chunks
}

// FilteringConfig controls which files the scanner picks up.
type FilteringConfig struct {
	MaxFileSize     int64    `yaml:"max_file_size"` // bytes
	IncludePatterns []string `yaml:"include"`
	ExcludePatterns []string `yaml:"exclude"`
}

// OutputConfig controls where and how the report is written.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // markdown, json, text
}

// ProcessingConfig controls the pipeline and engine behavior.
type ProcessingConfig struct {
	MaxWorkers      int           `yaml:"max_workers"`
	Timeout         time.Duration `yaml:"timeout"` // per-file
	RetryAttempts   int           `yaml:"retry_attempts"`
	FallbackEnabled bool          `yaml:"fallback_enabled"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // rotating log file, empty for stderr
}

// Default returns a configuration with sensible defaults and no models.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize:    2000,
			ChunkOverlap: 400,
		},
		Filtering: FilteringConfig{
			MaxFileSize: 10 * 1024 * 1024,
		},
		Output: OutputConfig{
			Path:   "master_summary.md",
			Format: "markdown",
		},
		Processing: ProcessingConfig{
			MaxWorkers:      8,
			Timeout:         30 * time.Second,
			RetryAttempts:   3,
			FallbackEnabled: true,
			Temperature:     0,
			MaxTokens:       16000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file over the
// defaults. Environment variables in the format ${VAR_NAME} are
// expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyModelDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyModelDefaults fills in missing per-model fields: provider from the
// model name prefix, temperature and max_tokens from the processing
// section.
func (c *Config) applyModelDefaults() {
	for i := range c.Models {
		m := &c.Models[i]
		if m.Provider == "" {
			m.Provider = InferProvider(m.Model)
		}
		if m.MaxTokens == 0 {
			m.MaxTokens = c.Processing.MaxTokens
		}
		if m.Temperature == 0 {
			m.Temperature = c.Processing.Temperature
		}
	}
}

// InferProvider maps a model name to its provider family.
func InferProvider(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-"):
		return "openai"
	case strings.HasPrefix(model, "claude-"):
		return "anthropic"
	case strings.HasPrefix(model, "sonar-"):
		return "perplexity"
	default:
		return "openai"
	}
}

// FromEnvironment builds a model chain from well-known API key
// variables. Detection order fixes the fallback order: Perplexity,
// OpenAI, Anthropic.
func FromEnvironment() []types.ModelConfig {
	var models []types.ModelConfig

	pplxKey := os.Getenv("PPLX_API_KEY")
	if pplxKey == "" {
		pplxKey = os.Getenv("PERPLEXITY_API_KEY")
	}
	if pplxKey != "" {
		models = append(models, types.ModelConfig{
			Provider:  "perplexity",
			Model:     "sonar-large-chat",
			APIKey:    pplxKey,
			MaxTokens: 16000,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		models = append(models, types.ModelConfig{
			Provider:  "openai",
			Model:     "gpt-4",
			APIKey:    key,
			MaxTokens: 8000,
		})
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		models = append(models, types.ModelConfig{
			Provider:  "anthropic",
			Model:     "claude-3-sonnet-20240229",
			APIKey:    key,
			MaxTokens: 100000,
		})
	}
	return models
}

// Validate checks the configuration for errors. Model identity fields
// are checked by the engine at chain construction; this covers the
// numeric ranges and enums.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize < 100 || c.Chunking.ChunkSize > 50000 {
		return fmt.Errorf("chunk_size must be between 100 and 50000, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap must be non-negative and smaller than chunk_size, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Processing.MaxWorkers < 1 || c.Processing.MaxWorkers > 32 {
		return fmt.Errorf("max_workers must be between 1 and 32, got %d", c.Processing.MaxWorkers)
	}
	if c.Processing.Timeout < 5*time.Second || c.Processing.Timeout > 300*time.Second {
		return fmt.Errorf("timeout must be between 5s and 300s, got %s", c.Processing.Timeout)
	}
	if c.Processing.RetryAttempts < 0 || c.Processing.RetryAttempts > 10 {
		return fmt.Errorf("retry_attempts must be between 0 and 10, got %d", c.Processing.RetryAttempts)
	}
	if c.Filtering.MaxFileSize < 1024 || c.Filtering.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("max_file_size must be between 1KiB and 100MiB, got %d", c.Filtering.MaxFileSize)
	}
	switch c.Output.Format {
	case "markdown", "json", "text":
	default:
		return fmt.Errorf("output format must be markdown, json, or text, got %q", c.Output.Format)
	}
	return nil
}
