package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomshed/codedigest/pkg/errors"
	"github.com/loomshed/codedigest/pkg/provider"
)

func TestRegistry_Builtins(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "perplexity", "openailike"} {
		_, ok := Get(name)
		assert.True(t, ok, "builtin %q not registered", name)
	}
}

func TestCreate_UnknownType(t *testing.T) {
	_, err := Create(provider.Config{Provider: "nosuch", APIKey: "k", Model: "m"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "nosuch")
}

func TestCreate_Builtin(t *testing.T) {
	p, err := Create(provider.Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4", p.Model())
}

func TestCreate_GenericRequiresBaseURL(t *testing.T) {
	_, err := Create(provider.Config{Provider: "openailike", APIKey: "k", Model: "m"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	p, err := Create(provider.Config{
		Provider: "openailike",
		APIKey:   "k",
		Model:    "local-model",
		BaseURL:  "http://localhost:8080/v1",
	})
	require.NoError(t, err)
	assert.Equal(t, "openailike", p.Name())
}
