package codedigest

import (
	"sync"

	"github.com/loomshed/codedigest/pkg/types"
)

// costPerToken is a single fixed estimation rate applied to every token
// regardless of provider. The estimate is a ballpark for the run report,
// not billing data.
const costPerToken = 0.00002

// usageLedger accumulates request/token/error counters across engine
// calls. All access is mutex-serialized so totals stay exact under
// concurrent callers.
type usageLedger struct {
	mu            sync.Mutex
	totalRequests int
	totalTokens   int
	perProvider   map[string]*types.ProviderStats
}

func newUsageLedger() *usageLedger {
	return &usageLedger{perProvider: make(map[string]*types.ProviderStats)}
}

func (l *usageLedger) recordSuccess(provider string, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalRequests++
	l.totalTokens += tokens
	s := l.stats(provider)
	s.Requests++
	s.Tokens += tokens
}

func (l *usageLedger) recordError(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats(provider).Errors++
}

// stats returns the provider's counter bucket, creating it lazily.
// Callers must hold the mutex.
func (l *usageLedger) stats(provider string) *types.ProviderStats {
	s, ok := l.perProvider[provider]
	if !ok {
		s = &types.ProviderStats{}
		l.perProvider[provider] = s
	}
	return s
}

// snapshot deep-copies the counters. Chain metadata is filled in by the
// engine.
func (l *usageLedger) snapshot() *types.UsageSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[string]types.ProviderStats, len(l.perProvider))
	for name, s := range l.perProvider {
		stats[name] = *s
	}
	return &types.UsageSnapshot{
		TotalRequests:   l.totalRequests,
		TotalTokensUsed: l.totalTokens,
		EstimatedCost:   float64(l.totalTokens) * costPerToken,
		ProviderStats:   stats,
	}
}
