package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderError_Message(t *testing.T) {
	err := NewRateLimitError("openai", "gpt-4", "rate limit exceeded")
	msg := err.Error()
	require.NotEmpty(t, msg)

	for _, s := range []string{"rate_limit_error", "openai", "gpt-4", "429"} {
		assert.Contains(t, msg, s)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *ProviderError
		wantType   string
		wantStatus int
		retryable  bool
	}{
		{"auth", NewAuthenticationError("p", "m", "msg"), TypeAuthentication, http.StatusUnauthorized, false},
		{"rate limit", NewRateLimitError("p", "m", "msg"), TypeRateLimit, http.StatusTooManyRequests, true},
		{"invalid request", NewInvalidRequestError("p", "m", "msg"), TypeInvalidRequest, http.StatusBadRequest, false},
		{"not found", NewNotFoundError("p", "m", "msg"), TypeNotFound, http.StatusNotFound, false},
		{"timeout", NewTimeoutError("p", "m", "msg"), TypeTimeout, http.StatusRequestTimeout, true},
		{"unavailable", NewServiceUnavailableError("p", "m", "msg"), TypeServiceUnavailable, http.StatusServiceUnavailable, true},
		{"connection", NewConnectionError("p", "m", "msg"), TypeConnection, 0, true},
		{"internal", NewInternalError("p", "m", "msg"), TypeInternalError, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, "p", tt.err.Provider)
			assert.Equal(t, "m", tt.err.Model)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRateLimitError("p", "m", "x")))
	assert.False(t, IsRetryable(NewAuthenticationError("p", "m", "x")))

	// Non-ProviderError failures (transport, parsing) are worth retrying.
	assert.True(t, IsRetryable(fmt.Errorf("connection reset by peer")))
}

func TestIsConfiguration(t *testing.T) {
	cfgErr := NewConfigurationError("bad chain")
	assert.True(t, IsConfiguration(cfgErr))
	assert.False(t, cfgErr.Retryable)
	assert.Contains(t, cfgErr.Error(), "bad chain")

	assert.False(t, IsConfiguration(NewRateLimitError("p", "m", "x")))
	assert.False(t, IsConfiguration(fmt.Errorf("plain")))
}
