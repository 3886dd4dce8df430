// Package providers provides a unified registry for all provider
// implementations, allowing automatic provider creation from
// configuration.
package providers

import (
	"fmt"
	"sync"

	"github.com/loomshed/codedigest/pkg/errors"
	"github.com/loomshed/codedigest/pkg/provider"
	"github.com/loomshed/codedigest/providers/anthropic"
	"github.com/loomshed/codedigest/providers/openai"
	"github.com/loomshed/codedigest/providers/openailike"
	"github.com/loomshed/codedigest/providers/perplexity"
)

var (
	registry     = make(map[string]provider.Factory)
	registryOnce sync.Once
	registryMu   sync.RWMutex
)

// Register registers a provider factory with the given type name.
func Register(providerType string, factory provider.Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[providerType] = factory
}

// Get returns the factory for the given provider type.
func Get(providerType string) (provider.Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[providerType]
	return f, ok
}

// Create creates a provider instance from configuration.
func Create(cfg provider.Config) (provider.Provider, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Provider]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("unknown provider type: %s (available: %v)", cfg.Provider, List()))
	}

	return factory(cfg)
}

// List returns all registered provider type names.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// RegisterBuiltins registers all built-in provider factories.
// This is called automatically on first use.
func RegisterBuiltins() {
	registryOnce.Do(func() {
		Register("openai", openai.NewFromConfig)
		Register("anthropic", anthropic.NewFromConfig)
		Register("perplexity", perplexity.NewFromConfig)
		Register("openailike", newGenericFromConfig)
	})
}

// newGenericFromConfig builds an adapter for any OpenAI-compatible
// backend. Unlike the named providers it has no default endpoint, so
// base_url is mandatory.
func newGenericFromConfig(cfg provider.Config) (provider.Provider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewConfigurationError("openailike: base_url is required")
	}
	return openailike.NewFromConfig(openailike.Info{
		Name:           "openailike",
		DefaultBaseURL: cfg.BaseURL,
	}, cfg)
}

func init() {
	RegisterBuiltins()
}
