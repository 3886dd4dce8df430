// Package perplexity provides the Perplexity AI provider adapter.
// Perplexity speaks the OpenAI-compatible chat format.
// API Reference: https://docs.perplexity.ai/reference
package perplexity

import (
	"github.com/loomshed/codedigest/pkg/provider"
	"github.com/loomshed/codedigest/providers/openailike"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "perplexity"

	// DefaultBaseURL is the default Perplexity API endpoint.
	DefaultBaseURL = "https://api.perplexity.ai"

	// MaxTokensCeiling is the backend's hard response-length limit.
	MaxTokensCeiling = 4096
)

var providerInfo = openailike.Info{
	Name:             ProviderName,
	DefaultBaseURL:   DefaultBaseURL,
	MaxTokensCeiling: MaxTokensCeiling,
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(providerInfo, cfg)
}
