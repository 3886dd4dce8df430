package anthropic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomshed/codedigest/pkg/errors"
	"github.com/loomshed/codedigest/pkg/provider"
	"github.com/loomshed/codedigest/pkg/types"
)

func TestNewFromConfig_Validation(t *testing.T) {
	_, err := NewFromConfig(provider.Config{Model: "claude-3-sonnet-20240229"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	_, err = NewFromConfig(provider.Config{APIKey: "sk-ant"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestComplete_WireFormat(t *testing.T) {
	var gotReq anthropicRequest
	var gotKey, gotVersion string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(&anthropicResponse{
			ID:    "msg_test",
			Type:  "message",
			Role:  "assistant",
			Model: "claude-3-sonnet-20240229",
			Content: []contentBlock{
				{Type: "text", Text: "first "},
				{Type: "text", Text: "second"},
			},
			StopReason: "end_turn",
			Usage:      anthropicUsage{InputTokens: 40, OutputTokens: 8},
		})
	}))
	defer srv.Close()

	p, err := NewFromConfig(provider.Config{
		APIKey:  "sk-ant-test",
		Model:   "claude-3-sonnet-20240229",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), &types.ChatRequest{
		Messages: []types.ChatMessage{
			{Role: "system", Content: "You summarize code."},
			{Role: "user", Content: "summarize this"},
		},
		MaxTokens: 16000,
	})
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, DefaultAPIVersion, gotVersion)

	// System prompt moves to the top-level field.
	assert.Equal(t, "You summarize code.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)

	// 16000 exceeds the backend ceiling.
	assert.Equal(t, MaxTokensCeiling, gotReq.MaxTokens)

	assert.Equal(t, "first second", resp.Text())
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 48, resp.Usage.TotalTokens)
}

func TestComplete_KeepsSmallMaxTokens(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(&anthropicResponse{})
	}))
	defer srv.Close()

	p, err := NewFromConfig(provider.Config{APIKey: "k", Model: "claude-2.1", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), &types.ChatRequest{MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, 512, gotReq.MaxTokens)
}

func TestMapStopReason(t *testing.T) {
	assert.Equal(t, "stop", mapStopReason("end_turn"))
	assert.Equal(t, "stop", mapStopReason("stop_sequence"))
	assert.Equal(t, "length", mapStopReason("max_tokens"))
	assert.Equal(t, "tool_use", mapStopReason("tool_use"))
}

func TestComplete_MapsErrors(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		retryable bool
	}{
		{http.StatusUnauthorized, errors.TypeAuthentication, false},
		{http.StatusTooManyRequests, errors.TypeRateLimit, true},
		{http.StatusServiceUnavailable, errors.TypeServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"overloaded"}}`))
			}))
			defer srv.Close()

			p, err := NewFromConfig(provider.Config{APIKey: "k", Model: "claude-2.1", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), &types.ChatRequest{})
			require.Error(t, err)

			pe, ok := err.(*errors.ProviderError)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.retryable, pe.Retryable)
			assert.Equal(t, ProviderName, pe.Provider)
		})
	}
}
