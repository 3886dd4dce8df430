package types

import "strings"

// ChatMessage is a single message in a chat completion request or response.
type ChatMessage struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ChatRequest is the unified chat completion request sent to provider
// adapters. Adapters translate it into their backend's wire format.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`

	// MaxTokens caps the response length. Zero means the backend default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is a pointer so an explicit 0.0 survives serialization.
	Temperature *float64 `json:"temperature,omitempty"`
}

// Choice is one completion alternative in a ChatResponse.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// Usage reports the backend's own token accounting for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the unified chat completion response. Adapters normalize
// their backend's format into this shape.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Text returns the first choice's message content with surrounding
// whitespace removed, or "" when the response carries no choices.
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}
