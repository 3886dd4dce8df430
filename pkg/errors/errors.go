// Package errors defines unified error types for summarization pipeline
// operations. All provider-specific failures are mapped to these standard
// error types before the engine sees them.
package errors

import (
	"fmt"
	"net/http"
)

// ProviderError represents a standardized failure from an LLM backend.
// It carries everything the retry/fallback loop and logs need: status,
// classification, attribution, and whether retrying can help.
type ProviderError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s, code=%d)",
		e.Type, e.Message, e.Provider, e.Model, e.StatusCode)
}

// Common error types as constants for consistency.
const (
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeNotFound           = "not_found_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeConnection         = "connection_error"
	TypeInternalError      = "internal_error"
	TypeConfiguration      = "configuration_error"
)

// IsRetryable reports whether another attempt against the same provider
// could plausibly succeed. Errors that are not ProviderErrors (raw
// transport failures, unexpected parse errors) are treated as retryable.
func IsRetryable(err error) bool {
	if pe, ok := err.(*ProviderError); ok {
		return pe.Retryable
	}
	return true
}

// IsConfiguration reports whether the error is a fatal configuration error.
func IsConfiguration(err error) bool {
	pe, ok := err.(*ProviderError)
	return ok && pe.Type == TypeConfiguration
}

// NewAuthenticationError creates an authentication error (401).
func NewAuthenticationError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Type:       TypeAuthentication,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		Type:       TypeRateLimit,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeInvalidRequest,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewNotFoundError creates a not found error (404).
func NewNotFoundError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusNotFound,
		Message:    message,
		Type:       TypeNotFound,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusRequestTimeout,
		Message:    message,
		Type:       TypeTimeout,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    message,
		Type:       TypeServiceUnavailable,
		Provider:   provider,
		Model:      model,
		Retryable:  true,
	}
}

// NewConnectionError creates an error for transport-level failures where
// no HTTP response was received.
func NewConnectionError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Message:   message,
		Type:      TypeConnection,
		Provider:  provider,
		Model:     model,
		Retryable: true,
	}
}

// NewInternalError creates an internal server error (500).
func NewInternalError(provider, model, message string) *ProviderError {
	return &ProviderError{
		StatusCode: http.StatusInternalServerError,
		Message:    message,
		Type:       TypeInternalError,
		Provider:   provider,
		Model:      model,
		Retryable:  false,
	}
}

// NewConfigurationError creates a fatal configuration error. These abort
// engine construction and are never retried.
func NewConfigurationError(message string) *ProviderError {
	return &ProviderError{
		Message:   message,
		Type:      TypeConfiguration,
		Retryable: false,
	}
}
