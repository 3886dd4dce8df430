// Package openailike provides a base adapter for OpenAI-compatible
// backends. Most chat APIs follow OpenAI's wire format with minor
// variations; this package carries the shared request/response handling
// so concrete providers only declare their differences.
package openailike

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

// Info describes how a concrete OpenAI-compatible backend deviates from
// the baseline.
type Info struct {
	// Name is the provider identifier (e.g. "perplexity").
	Name string

	// DefaultBaseURL is the default API endpoint.
	DefaultBaseURL string

	// APIKeyHeader is the header carrying the API key.
	// Default: "Authorization" with a "Bearer " prefix.
	APIKeyHeader string

	// APIKeyPrefix is prepended to the API key value.
	APIKeyPrefix string

	// ChatEndpoint is the chat completions path. Default: "/chat/completions".
	ChatEndpoint string

	// MaxTokensCeiling is the backend's hard response-length limit.
	// Requests asking for more are clamped. Zero means no ceiling.
	MaxTokensCeiling int

	// ExtraHeaders are sent with every request.
	ExtraHeaders map[string]string
}

// Provider is a generic OpenAI-compatible adapter. It performs exactly
// one network call per Complete; retry and fallback policy live in the
// engine.
type Provider struct {
	info    Info
	apiKey  string
	baseURL string
	model   string
	headers map[string]string
	client  *http.Client
}

// NewFromConfig builds an adapter from configuration, failing fast on
// anything unusable so chain construction can skip the entry.
func NewFromConfig(info Info, cfg provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigurationError(fmt.Sprintf("%s: api_key is required", info.Name))
	}
	if cfg.Model == "" {
		return nil, errors.NewConfigurationError(fmt.Sprintf("%s: model is required", info.Name))
	}
	if err := provider.ValidateBaseURL(cfg.BaseURL); err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("%s: %v", info.Name, err))
	}

	p := &Provider{
		info:    info,
		apiKey:  cfg.APIKey,
		baseURL: info.DefaultBaseURL,
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
	return p.info.Name
}

// Model returns the configured model identifier.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends one chat completion request to the backend.
func (p *Provider) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	httpReq, err := p.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewConnectionError(p.info.Name, p.model, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, p.mapError(resp.StatusCode, body)
	}

	var chatResp types.ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &chatResp, nil
}

func (p *Provider) buildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	wire := *req
	wire.Model = p.model
	if p.info.MaxTokensCeiling > 0 && wire.MaxTokens > p.info.MaxTokensCeiling {
		wire.MaxTokens = p.info.MaxTokensCeiling
	}

	body, err := json.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.info.ChatEndpoint
	if endpoint == "" {
		endpoint = "/chat/completions"
	}

	url := strings.TrimSuffix(p.baseURL, "/") + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	apiKeyHeader := p.info.APIKeyHeader
	if apiKeyHeader == "" {
		apiKeyHeader = "Authorization"
	}
	apiKeyPrefix := p.info.APIKeyPrefix
	if apiKeyPrefix == "" && apiKeyHeader == "Authorization" {
		apiKeyPrefix = "Bearer "
	}
	httpReq.Header.Set(apiKeyHeader, apiKeyPrefix+p.apiKey)

	for k, v := range p.info.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
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

	name := p.info.Name
	switch statusCode {
	case http.StatusUnauthorized:
		return errors.NewAuthenticationError(name, p.model, message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(name, p.model, message)
	case http.StatusBadRequest:
		return errors.NewInvalidRequestError(name, p.model, message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(name, p.model, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(name, p.model, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return errors.NewServiceUnavailableError(name, p.model, message)
	default:
		return errors.NewInternalError(name, p.model, message)
	}
}
