// Package openai provides the OpenAI provider adapter. It serves as the
// reference implementation for other adapters.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/loomshed/codedigest/pkg/errors"
	"github.com/loomshed/codedigest/pkg/provider"
	"github.com/loomshed/codedigest/pkg/types"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "openai"

	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Provider implements the OpenAI chat completions adapter.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	headers map[string]string
	client  *http.Client
}

// NewFromConfig creates a provider from a Config struct. Missing API
// key, missing model, or an unusable base URL fail construction.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigurationError("openai: api_key is required")
	}
	if cfg.Model == "" {
		return nil, errors.NewConfigurationError("openai: model is required")
	}
	if err := provider.ValidateBaseURL(cfg.BaseURL); err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("openai: %v", err))
	}

	p := &Provider{
		apiKey:  cfg.APIKey,
		baseURL: DefaultBaseURL,
		model:   cfg.Model,
		headers: make(map[string]string),
		client:  provider.NewHTTPClient(cfg),
	}
	if cfg.BaseURL != "" {
		p.baseURL = cfg.BaseURL
	}
	for k, v := range cfg.Headers {
		p.headers[k] = v
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Model returns the configured model identifier.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends one chat completion request to the OpenAI API.
func (p *Provider) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	wire := *req
	wire.Model = p.model

	body, err := json.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewConnectionError(ProviderName, p.model, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, p.mapError(resp.StatusCode, respBody)
	}

	var chatResp types.ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &chatResp, nil
}

func (p *Provider) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return errors.NewAuthenticationError(ProviderName, p.model, message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(ProviderName, p.model, message)
	case http.StatusBadRequest:
		return errors.NewInvalidRequestError(ProviderName, p.model, message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(ProviderName, p.model, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(ProviderName, p.model, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return errors.NewServiceUnavailableError(ProviderName, p.model, message)
	default:
		return errors.NewInternalError(ProviderName, p.model, message)
	}
}
