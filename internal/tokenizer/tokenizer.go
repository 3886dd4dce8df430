// Package tokenizer provides exact token accounting for model prompts:
// counting, context-window lookup, and budget truncation.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TruncationMarker is appended to text that was cut to fit a token budget.
const TruncationMarker = "\n... [truncated]"

// truncationReserve leaves room for the marker so a truncated text still
// lands under the requested budget.
const truncationReserve = 10

// defaultContextLimit is the conservative window assumed for models that
// are not in the lookup table.
const defaultContextLimit = 4096

// contextLimits maps known model identifiers to their maximum context
// window in tokens.
var contextLimits = map[string]int{
	"gpt-4":             8192,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-3.5-turbo":     4096,
	"gpt-3.5-turbo-16k": 16384,

	"sonar-large-chat":    16384,
	"sonar-medium-chat":   16384,
	"sonar-small-chat":    16384,
	"sonar-large-online":  16384,
	"sonar-medium-online": 16384,

	"claude-3-opus-20240229":   200000,
	"claude-3-sonnet-20240229": 200000,
	"claude-3-haiku-20240307":  200000,
	"claude-2.1":               200000,
	"claude-2.0":               100000,
	"claude-instant-1.2":       100000,
}

var (
	encodingCache sync.Map
	defaultOnce   sync.Once
	defaultEnc    *tiktoken.Tiktoken
)

// CountTokens returns the exact token count for text under the tokenizer
// associated with model. Unrecognized models fall back to cl100k_base.
// If no encoding can be built at all, a conservative len/4 estimate is
// returned instead.
func CountTokens(text, model string) int {
	if text == "" {
		return 0
	}
	enc := getEncoding(model)
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// ContextLimit returns the maximum context window for the given model,
// or a conservative default for unknown models.
func ContextLimit(model string) int {
	if limit, ok := contextLimits[normalizeModelName(model)]; ok {
		return limit
	}
	return defaultContextLimit
}

// Truncate cuts text to at most maxTokens tokens under the model's
// tokenizer. Text that already fits is returned unchanged; otherwise the
// token stream is sliced with room reserved for a visible truncation
// marker. Truncation is idempotent: re-truncating the result with the
// same budget returns it unchanged.
func Truncate(text string, maxTokens int, model string) string {
	if CountTokens(text, model) <= maxTokens {
		return text
	}

	enc := getEncoding(model)
	if enc == nil {
		// Estimation path: cut by the same len/4 heuristic CountTokens uses.
		keep := (maxTokens - truncationReserve) * 4
		if keep < 0 {
			keep = 0
		}
		if keep > len(text) {
			keep = len(text)
		}
		return text[:keep] + TruncationMarker
	}

	tokens := enc.Encode(text, nil, nil)
	keep := maxTokens - truncationReserve
	if keep < 0 {
		keep = 0
	}
	if keep > len(tokens) {
		keep = len(tokens)
	}
	return enc.Decode(tokens[:keep]) + TruncationMarker
}

func getEncoding(model string) *tiktoken.Tiktoken {
	base := normalizeModelName(model)
	if cached, ok := encodingCache.Load(base); ok {
		if enc, ok := cached.(*tiktoken.Tiktoken); ok {
			return enc
		}
		return getDefaultEncoding()
	}

	enc, err := tiktoken.EncodingForModel(base)
	if err != nil {
		enc = getDefaultEncoding()
	}
	if enc != nil {
		encodingCache.Store(base, enc)
	}
	return enc
}

func getDefaultEncoding() *tiktoken.Tiktoken {
	defaultOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			defaultEnc = enc
		}
	})
	return defaultEnc
}

func normalizeModelName(model string) string {
	if model == "" {
		return model
	}
	if idx := strings.LastIndex(model, "/"); idx >= 0 && idx+1 < len(model) {
		return model[idx+1:]
	}
	return model
}
