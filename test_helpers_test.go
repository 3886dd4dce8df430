package codedigest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/loomshed/codedigest/pkg/provider"
	"github.com/loomshed/codedigest/pkg/types"
	"github.com/loomshed/codedigest/providers"
)

// mockResult scripts one Complete call: either a response text or an
// error.
type mockResult struct {
	text string
	err  error
}

// mockProvider is a scripted Provider for engine tests. Results are
// consumed in order; the last one repeats once the script runs out.
type mockProvider struct {
	mu       sync.Mutex
	name     string
	model    string
	script   []mockResult
	calls    int
	requests []*types.ChatRequest
}

func newMockProvider(name, model string, script ...mockResult) *mockProvider {
	return &mockProvider{name: name, model: model, script: script}
}

func (m *mockProvider) Name() string  { return m.name }
func (m *mockProvider) Model() string { return m.model }

func (m *mockProvider) Complete(_ context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.calls++
	m.requests = append(m.requests, req)

	r := m.script[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &types.ChatResponse{
		Choices: []types.Choice{{
			Message: types.ChatMessage{Role: "assistant", Content: r.text},
		}},
	}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// userContents returns the user-message content of every request seen,
// in call order.
func (m *mockProvider) userContents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.requests))
	for _, req := range m.requests {
		for _, msg := range req.Messages {
			if msg.Role == "user" {
				out = append(out, msg.Content)
			}
		}
	}
	return out
}

// newTestEngine registers each mock under its own provider type and
// builds an engine over them in order. Logging is discarded and the
// retry sleep replaced with a recorder.
func newTestEngine(mocks []*mockProvider, opts ...Option) (*Engine, *sleepRecorder, error) {
	models := make([]types.ModelConfig, len(mocks))
	for i, m := range mocks {
		m := m
		providers.Register(m.name, func(provider.Config) (provider.Provider, error) {
			return m, nil
		})
		models[i] = types.ModelConfig{Provider: m.name, Model: m.model, APIKey: "test-key"}
	}

	rec := &sleepRecorder{}
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSleep(rec.sleep),
	}
	e, err := New(models, append(base, opts...)...)
	return e, rec, err
}

// sleepRecorder captures backoff durations without sleeping.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) durations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.slept...)
}
