package codedigest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/loomshed/codedigest/internal/prompt"
	"github.com/loomshed/codedigest/internal/tokenizer"
	"github.com/loomshed/codedigest/pkg/errors"
	"github.com/loomshed/codedigest/pkg/provider"
	"github.com/loomshed/codedigest/pkg/types"
	"github.com/loomshed/codedigest/providers"
)

const (
	// DefaultRetryAttempts is the per-provider attempt count before the
	// chain moves to the next entry.
	DefaultRetryAttempts = 3

	// DefaultChunkSizeThreshold separates the full-file prompt from the
	// short chunk prompt, in tokens.
	DefaultChunkSizeThreshold = 2000

	// DefaultPromptReserve is subtracted from a model's context limit to
	// leave room for the prompt scaffolding and the response.
	DefaultPromptReserve = 1000

	// aggregateBatchSize is the number of summaries reduced per request
	// during hierarchical aggregation.
	aggregateBatchSize = 10

	emptyAggregateSummary = "No content to summarize"
)

// SleepFunc pauses between retry attempts. It returns early with the
// context's error when the context is cancelled. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// chainEntry pairs a model configuration with its live adapter.
type chainEntry struct {
	cfg      types.ModelConfig
	provider provider.Provider
}

// Engine runs summarization requests against an ordered provider chain.
// Entry 0 is the primary; the rest are fallbacks tried strictly in order.
// The chain is immutable after construction; the ledger is the only
// shared mutable state, so an Engine is safe for concurrent use.
type Engine struct {
	chain  []chainEntry
	ledger *usageLedger

	logger             *slog.Logger
	retryAttempts      int
	fallbackEnabled    bool
	chunkSizeThreshold int
	promptReserve      int
	sleep              SleepFunc
	limiter            *rate.Limiter
	cache              *gocache.Cache
	httpClient         *http.Client
}

// New builds an engine from the configured model chain. Entries whose
// adapter cannot be constructed are skipped with a warning; an empty
// resulting chain is a fatal configuration error.
func New(models []types.ModelConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		ledger:             newUsageLedger(),
		logger:             slog.Default(),
		retryAttempts:      DefaultRetryAttempts,
		fallbackEnabled:    true,
		chunkSizeThreshold: DefaultChunkSizeThreshold,
		promptReserve:      DefaultPromptReserve,
		sleep:              defaultSleep,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, mc := range models {
		p, err := e.buildProvider(mc)
		if err != nil {
			e.logger.Warn("skipping provider",
				"provider", mc.Provider,
				"model", mc.Model,
				"error", err)
			continue
		}
		e.chain = append(e.chain, chainEntry{cfg: mc, provider: p})
		e.logger.Info("initialized provider",
			"provider", mc.Provider,
			"model", mc.Model,
			"position", len(e.chain)-1)
	}

	if len(e.chain) == 0 {
		return nil, errors.NewConfigurationError("no providers could be initialized")
	}
	return e, nil
}

func (e *Engine) buildProvider(mc types.ModelConfig) (provider.Provider, error) {
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return providers.Create(provider.Config{
		Provider:   mc.Provider,
		Model:      mc.Model,
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		HTTPClient: e.httpClient,
	})
}

// Providers returns the provider/model identifiers of the chain in
// fallback order.
func (e *Engine) Providers() []string {
	out := make([]string, len(e.chain))
	for i, entry := range e.chain {
		out[i] = entry.cfg.Provider + "/" + entry.cfg.Model
	}
	return out
}

// Summarize generates a summary for one file or chunk. Provider failures
// are never returned as Go errors: the chain is walked in order, each
// entry retried with exponential backoff, and total failure is encoded in
// the response so batch callers can continue past it.
func (e *Engine) Summarize(ctx context.Context, req *types.SummaryRequest) *types.SummaryResponse {
	start := time.Now()

	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(req)); ok {
			resp := cached.(types.SummaryResponse)
			resp.ProcessingTime = time.Since(start)
			return &resp
		}
	}

	var lastErr error
	for i, entry := range e.chain {
		budget := e.tokenBudget(entry.cfg)
		content := tokenizer.Truncate(req.Content, budget, entry.cfg.Model)

		var messages []types.ChatMessage
		if tokenizer.CountTokens(req.Content, entry.cfg.Model) > e.chunkSizeThreshold {
			messages = prompt.File(req.Identifier, req.Language, content)
		} else {
			messages = prompt.Chunk(req.ChunkType, req.Language, content)
		}

		chatResp, err := e.invoke(ctx, entry, messages)
		if err == nil {
			resp := e.successResponse(entry, content, chatResp, i > 0, start)
			if e.cache != nil {
				e.cache.Set(cacheKey(req), *resp, gocache.DefaultExpiration)
			}
			return resp
		}
		lastErr = err

		e.logger.Warn("provider exhausted",
			"provider", entry.cfg.Provider,
			"model", entry.cfg.Model,
			"identifier", req.Identifier,
			"error", err)

		if !e.fallbackEnabled {
			return &types.SummaryResponse{
				Summary:        fmt.Sprintf("Error: %s failed and fallback disabled", entry.cfg.Provider),
				ProcessingTime: time.Since(start),
				ModelUsed:      entry.cfg.Model,
				ProviderUsed:   entry.cfg.Provider,
				Error:          err.Error(),
				FallbackUsed:   false,
			}
		}
	}

	return e.exhaustedResponse(lastErr, start)
}

// Aggregate reduces per-file summaries into one master summary. Inputs
// that fit the token budget are combined in a single request; otherwise
// they are reduced hierarchically in batches of ten, preserving input
// order, until one summary remains. A provider failing anywhere in the
// reduction hands the whole aggregation to the next chain entry.
func (e *Engine) Aggregate(ctx context.Context, summaries []string) *types.SummaryResponse {
	start := time.Now()

	if len(summaries) == 0 {
		return &types.SummaryResponse{
			Summary:        emptyAggregateSummary,
			ProcessingTime: time.Since(start),
			ModelUsed:      "none",
			ProviderUsed:   "none",
		}
	}

	var lastErr error
	for i, entry := range e.chain {
		summary, tokens, err := e.aggregateWith(ctx, entry, summaries)
		if err == nil {
			return &types.SummaryResponse{
				Summary:        summary,
				TokensUsed:     tokens,
				ProcessingTime: time.Since(start),
				ModelUsed:      entry.cfg.Model,
				ProviderUsed:   entry.cfg.Provider,
				FallbackUsed:   i > 0,
			}
		}
		lastErr = err

		e.logger.Warn("aggregation failed",
			"provider", entry.cfg.Provider,
			"model", entry.cfg.Model,
			"inputs", len(summaries),
			"error", err)

		if !e.fallbackEnabled {
			return &types.SummaryResponse{
				Summary:        fmt.Sprintf("Error: %s failed and fallback disabled", entry.cfg.Provider),
				ProcessingTime: time.Since(start),
				ModelUsed:      entry.cfg.Model,
				ProviderUsed:   entry.cfg.Provider,
				Error:          err.Error(),
				FallbackUsed:   false,
			}
		}
	}

	return e.exhaustedResponse(lastErr, start)
}

// aggregateWith runs the full reduction against one chain entry. It
// returns the final summary and the total tokens consumed by this
// aggregation's requests.
func (e *Engine) aggregateWith(ctx context.Context, entry chainEntry, summaries []string) (string, int, error) {
	budget := e.tokenBudget(entry.cfg)
	totalTokens := 0

	joined := strings.Join(summaries, "\n\n")
	if tokenizer.CountTokens(joined, entry.cfg.Model) <= budget {
		summary, tokens, err := e.aggregateRequest(ctx, entry, joined)
		return summary, tokens, err
	}

	level := summaries
	for len(level) > 1 {
		var next []string
		for start := 0; start < len(level); start += aggregateBatchSize {
			end := min(start+aggregateBatchSize, len(level))
			batch := strings.Join(level[start:end], "\n\n")
			batch = tokenizer.Truncate(batch, budget, entry.cfg.Model)

			summary, tokens, err := e.aggregateRequest(ctx, entry, batch)
			if err != nil {
				return "", 0, err
			}
			totalTokens += tokens
			next = append(next, summary)
		}
		level = next
	}
	return level[0], totalTokens, nil
}

func (e *Engine) aggregateRequest(ctx context.Context, entry chainEntry, joined string) (string, int, error) {
	chatResp, err := e.invoke(ctx, entry, prompt.Aggregate(joined))
	if err != nil {
		return "", 0, err
	}
	output := chatResp.Text()
	tokens := tokenizer.CountTokens(joined, entry.cfg.Model) + tokenizer.CountTokens(output, entry.cfg.Model)
	e.ledger.recordSuccess(entry.cfg.Provider, tokens)
	return output, tokens, nil
}

// invoke performs the per-provider retry loop: up to retryAttempts
// attempts with 2^attempt-second backoff between them, no sleep after the
// final failure. Non-retryable errors short-circuit the remaining
// attempts. Every failed attempt is counted against the provider.
func (e *Engine) invoke(ctx context.Context, entry chainEntry, messages []types.ChatMessage) (*types.ChatResponse, error) {
	maxTokens := entry.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultMaxTokens
	}
	temp := entry.cfg.Temperature
	req := &types.ChatRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: &temp,
	}

	var lastErr error
	for attempt := 0; attempt < e.retryAttempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := entry.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		e.ledger.recordError(entry.cfg.Provider)

		e.logger.Debug("attempt failed",
			"provider", entry.cfg.Provider,
			"model", entry.cfg.Model,
			"attempt", attempt+1,
			"error", err)

		if !errors.IsRetryable(err) {
			break
		}
		if attempt < e.retryAttempts-1 {
			backoff := time.Duration(1<<attempt) * time.Second
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

func (e *Engine) successResponse(entry chainEntry, truncated string, chatResp *types.ChatResponse, fallback bool, start time.Time) *types.SummaryResponse {
	output := chatResp.Text()
	tokens := tokenizer.CountTokens(truncated, entry.cfg.Model) + tokenizer.CountTokens(output, entry.cfg.Model)
	e.ledger.recordSuccess(entry.cfg.Provider, tokens)

	return &types.SummaryResponse{
		Summary:        output,
		TokensUsed:     tokens,
		ProcessingTime: time.Since(start),
		ModelUsed:      entry.cfg.Model,
		ProviderUsed:   entry.cfg.Provider,
		FallbackUsed:   fallback,
	}
}

func (e *Engine) exhaustedResponse(lastErr error, start time.Time) *types.SummaryResponse {
	msg := "unknown error"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return &types.SummaryResponse{
		Summary:        fmt.Sprintf("Error: All AI providers failed. Last error: %s", msg),
		ProcessingTime: time.Since(start),
		ModelUsed:      "none",
		ProviderUsed:   "none",
		Error:          msg,
		FallbackUsed:   len(e.chain) > 1,
	}
}

func (e *Engine) tokenBudget(cfg types.ModelConfig) int {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultMaxTokens
	}
	return min(tokenizer.ContextLimit(cfg.Model)-e.promptReserve, maxTokens)
}

// UsageSnapshot returns a point-in-time copy of the usage ledger plus
// chain metadata. The snapshot shares no state with the engine.
func (e *Engine) UsageSnapshot() *types.UsageSnapshot {
	snap := e.ledger.snapshot()
	snap.PrimaryProvider = e.chain[0].cfg.Provider
	snap.PrimaryModel = e.chain[0].cfg.Model
	snap.ProvidersConfigured = len(e.chain)
	snap.FallbackEnabled = e.fallbackEnabled
	return snap
}

func cacheKey(req *types.SummaryRequest) string {
	h := sha256.Sum256([]byte(req.Identifier + "\x00" + req.Content))
	return hex.EncodeToString(h[:])
}
