// Package anthropic provides the Anthropic Claude provider adapter. It
// translates between the unified chat format and Anthropic's Messages
// API, which carries the system prompt outside the message list.
package anthropic

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
	ProviderName = "anthropic"

	// DefaultBaseURL is the default Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAPIVersion is the default Anthropic API version.
	DefaultAPIVersion = "2023-06-01"

	// MaxTokensCeiling is the backend's hard response-length limit.
	// Configured values above it are clamped.
	MaxTokensCeiling = 4096
)

// Provider implements the Anthropic Messages API adapter.
type Provider struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	headers    map[string]string
	client     *http.Client
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigurationError("anthropic: api_key is required")
	}
	if cfg.Model == "" {
		return nil, errors.NewConfigurationError("anthropic: model is required")
	}
	if err := provider.ValidateBaseURL(cfg.BaseURL); err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("anthropic: %v", err))
	}

	p := &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		model:      cfg.Model,
		headers:    make(map[string]string),
		client:     provider.NewHTTPClient(cfg),
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

// anthropicRequest is the Messages API request format.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// anthropicResponse is the Messages API response format.
type anthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      anthropicUsage `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Complete sends one request to the Anthropic Messages API.
func (p *Provider) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	wire := p.transformRequest(req)

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.apiVersion)
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

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return transformResponse(&anthropicResp), nil
}

func (p *Provider) transformRequest(req *types.ChatRequest) *anthropicRequest {
	wire := &anthropicRequest{
		Model:       p.model,
		MaxTokens:   MaxTokensCeiling,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 && req.MaxTokens < MaxTokensCeiling {
		wire.MaxTokens = req.MaxTokens
	}

	// The Messages API wants the system prompt as a top-level field.
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			wire.System += msg.Content
			continue
		}
		wire.Messages = append(wire.Messages, anthropicMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return wire
}

func transformResponse(resp *anthropicResponse) *types.ChatResponse {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &types.ChatResponse{
		ID:     resp.ID,
		Object: "chat.completion",
		Model:  resp.Model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: text.String()},
			FinishReason: mapStopReason(resp.StopReason),
		}},
		Usage: &types.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

func (p *Provider) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
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
