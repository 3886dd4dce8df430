// Package types defines the shared data model for the summarization
// pipeline: model configuration, summary requests/responses, and usage
// accounting snapshots.
package types

import (
	"fmt"
	"time"
)

// Default values applied to a ModelConfig when the caller leaves them unset.
const (
	DefaultTemperature = 0.0
	DefaultMaxTokens   = 16000
)

// Chunk type labels attached to summary requests. They describe what kind
// of unit the content is; prompt wording varies with them but control flow
// does not.
const (
	ChunkTypeFile     = "file"
	ChunkTypeFunction = "function"
	ChunkTypeClass    = "class"
	ChunkTypeBlock    = "block"
	ChunkTypeUnknown  = "unknown"
)

// ModelConfig describes one backend model in the fallback chain.
// The first entry of a chain is the primary; the rest are fallbacks
// consulted strictly in order. A ModelConfig is never mutated after
// construction.
type ModelConfig struct {
	// Provider is the backend family: "openai", "anthropic", "perplexity",
	// or any type registered with the provider registry.
	Provider string `yaml:"provider" json:"provider"`

	// Model is the backend model identifier, e.g. "gpt-4".
	Model string `yaml:"model" json:"model"`

	// APIKey authenticates against the backend. Never serialized.
	APIKey string `yaml:"api_key" json:"-"`

	// Temperature is the sampling temperature sent with every request.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// MaxTokens caps the response length requested from the backend.
	// Individual adapters may clamp this further to their backend's
	// hard ceiling.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// BaseURL overrides the provider's default API endpoint. Optional.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// Validate reports whether the config is usable. Numeric fields fall back
// to defaults elsewhere; the identifying fields have no sensible default.
func (c ModelConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("model config: provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model config: model is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("model config: api_key is required for %s/%s", c.Provider, c.Model)
	}
	return nil
}

// SummaryRequest is the input value object for a single summarization call.
// It is created per file or chunk by the caller and never mutated afterwards.
type SummaryRequest struct {
	// Content is the text to summarize.
	Content string `json:"content"`

	// Identifier labels the content for logging and prompts: a relative
	// file path, or "path:start-end" for a chunk.
	Identifier string `json:"identifier"`

	// Language is a hint used in prompt text, e.g. "python" or "golang".
	Language string `json:"language"`

	// ChunkType is one of the ChunkType* constants.
	ChunkType string `json:"chunk_type"`

	// Metadata carries caller context (file size, extension, chunk name).
	// It is opaque to the engine.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SummaryResponse is the output of one Summarize or Aggregate call.
// Exactly one is produced per call; provider failures are encoded here
// rather than returned as errors so batch callers can continue past them.
type SummaryResponse struct {
	// Summary is the generated text, or an "Error: ..." placeholder when
	// every provider failed.
	Summary string `json:"summary"`

	// TokensUsed is the input token count of the (truncated) content plus
	// the output token count of the generated text.
	TokensUsed int `json:"tokens_used"`

	// ProcessingTime spans the whole call including retries and fallbacks.
	ProcessingTime time.Duration `json:"processing_time"`

	// ModelUsed and ProviderUsed identify who answered, or "none" when
	// the whole chain was exhausted.
	ModelUsed    string `json:"model_used"`
	ProviderUsed string `json:"provider_used"`

	// Error holds the last provider error on total failure, empty on
	// success.
	Error string `json:"error,omitempty"`

	// FallbackUsed is true iff the provider that answered, or the last
	// one attempted, was not the chain's first entry.
	FallbackUsed bool `json:"fallback_used"`
}

// Failed reports whether the response records a total provider failure.
func (r *SummaryResponse) Failed() bool {
	return r.Error != ""
}

// ProviderStats holds per-provider usage counters.
type ProviderStats struct {
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
	Errors   int `json:"errors"`
}

// UsageSnapshot is a point-in-time copy of the engine's usage ledger plus
// chain metadata. It shares no mutable state with the engine and is safe
// to retain.
type UsageSnapshot struct {
	TotalRequests       int                      `json:"total_requests"`
	TotalTokensUsed     int                      `json:"total_tokens_used"`
	EstimatedCost       float64                  `json:"estimated_cost"`
	PrimaryProvider     string                   `json:"primary_provider"`
	PrimaryModel        string                   `json:"primary_model"`
	ProvidersConfigured int                      `json:"providers_configured"`
	FallbackEnabled     bool                     `json:"fallback_enabled"`
	ProviderStats       map[string]ProviderStats `json:"provider_stats"`
}
