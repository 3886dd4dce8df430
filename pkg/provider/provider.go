// Package provider defines the public interface for LLM backend adapters.
// Each backend (OpenAI, Anthropic, Perplexity, ...) implements this
// interface to handle request transformation and API communication.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/loomshed/codedigest/pkg/types"
)

// DefaultTimeout bounds a single backend request when no HTTP client is
// supplied at construction.
const DefaultTimeout = 30 * time.Second

// Provider is the uniform adapter interface the engine's fallback chain is
// built from. Implementations are safe for concurrent use.
//
// Complete performs exactly one network call and returns the parsed
// response or a *errors.ProviderError. Retry and fallback policy live in
// the engine, never in an adapter.
type Provider interface {
	// Name returns the backend family identifier, e.g. "openai".
	Name() string

	// Model returns the configured model identifier, e.g. "gpt-4".
	Model() string

	// Complete sends one chat completion request to the backend.
	Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)
}

// Config carries everything an adapter needs at construction time.
type Config struct {
	// Provider selects the factory in the registry.
	Provider string

	// Model is the backend model identifier. Required.
	Model string

	// APIKey authenticates against the backend. Required.
	APIKey string

	// BaseURL overrides the adapter's default endpoint. Optional.
	BaseURL string

	// Timeout bounds a single request when HTTPClient is nil.
	Timeout time.Duration

	// HTTPClient, when set, is used for all requests. Shared clients let
	// the engine pool connections across providers.
	HTTPClient *http.Client

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string
}

// Factory creates adapter instances from configuration. A factory must
// fail fast on unusable configuration (missing key, invalid base URL) so
// chain construction can skip the entry.
type Factory func(cfg Config) (Provider, error)

// NewHTTPClient returns the HTTP client an adapter should use: the
// configured one if present, otherwise a fresh client with the configured
// or default timeout.
func NewHTTPClient(cfg Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
