package codedigest

import (
	"log/slog"
	"net/http"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRetryAttempts sets the per-provider attempt count before the chain
// advances to the next entry. Values below 1 are clamped to 1.
func WithRetryAttempts(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.retryAttempts = n
	}
}

// WithFallback enables or disables fallback to later chain entries.
// With fallback disabled the first provider's failure ends the call.
func WithFallback(enabled bool) Option {
	return func(e *Engine) {
		e.fallbackEnabled = enabled
	}
}

// WithChunkSizeThreshold sets the token count above which content gets
// the full-file prompt instead of the chunk prompt.
func WithChunkSizeThreshold(tokens int) Option {
	return func(e *Engine) {
		if tokens > 0 {
			e.chunkSizeThreshold = tokens
		}
	}
}

// WithHTTPClient shares one HTTP client across all adapters, pooling
// connections between providers.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithSleep replaces the retry backoff sleep. Tests inject a recorder
// here to run without real delays.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithRateLimit gates every network attempt behind a client-side rate
// limiter.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// WithSummaryCache enables the in-run response cache. Only successful
// responses are stored; hits bypass the provider chain and the ledger.
func WithSummaryCache(cache *gocache.Cache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithPromptReserve sets the token count subtracted from a model's
// context limit when computing the truncation budget.
func WithPromptReserve(tokens int) Option {
	return func(e *Engine) {
		if tokens > 0 {
			e.promptReserve = tokens
		}
	}
}
