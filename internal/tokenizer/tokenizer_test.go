package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens_Empty(t *testing.T) {
	assert.Equal(t, 0, CountTokens("", "gpt-4"))
	assert.Equal(t, 0, CountTokens("", "unknown-model"))
}

func TestCountTokens_Superadditive(t *testing.T) {
	// Appending non-empty text never decreases the count. Exact equality
	// is not guaranteed because merges can happen at token boundaries.
	cases := []struct{ a, b string }{
		{"hello", " world"},
		{"func main() {", "\n\tfmt.Println(42)\n}"},
		{"one two three", " four"},
	}
	for _, tc := range cases {
		a := CountTokens(tc.a, "gpt-4")
		ab := CountTokens(tc.a+tc.b, "gpt-4")
		assert.GreaterOrEqual(t, ab, a, "count(%q+%q) < count(%q)", tc.a, tc.b, tc.a)
	}
}

func TestCountTokens_UnknownModelFallsBack(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	known := CountTokens(text, "gpt-4")
	unknown := CountTokens(text, "sonar-large-chat")
	// Both resolve to cl100k_base, so counts agree.
	assert.Equal(t, known, unknown)
}

func TestContextLimit(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gpt-4", 8192},
		{"gpt-4-turbo", 128000},
		{"gpt-3.5-turbo", 4096},
		{"sonar-large-chat", 16384},
		{"claude-3-sonnet-20240229", 200000},
		{"claude-2.0", 100000},
		{"some-future-model", 4096},
		{"", 4096},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ContextLimit(tt.model))
		})
	}
}

func TestTruncate_FitsUnchanged(t *testing.T) {
	text := "short text"
	assert.Equal(t, text, Truncate(text, 1000, "gpt-4"))
}

func TestTruncate_UnderBudget(t *testing.T) {
	text := strings.Repeat("package main\nfunc helper() int { return 42 }\n", 200)
	budget := 100

	got := Truncate(text, budget, "gpt-4")
	require.NotEqual(t, text, got)
	assert.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.LessOrEqual(t, CountTokens(got, "gpt-4"), budget)
}

func TestTruncate_Idempotent(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon ", 500)
	for _, budget := range []int{50, 100, 1000} {
		once := Truncate(text, budget, "gpt-4")
		twice := Truncate(once, budget, "gpt-4")
		assert.Equal(t, once, twice, "budget %d", budget)
	}
}

func TestTruncate_AlreadyTruncatedStaysPut(t *testing.T) {
	text := strings.Repeat("0123456789 ", 1000)
	got := Truncate(text, 200, "gpt-4")
	// A tighter budget cuts again; the same budget does not.
	assert.Equal(t, got, Truncate(got, 200, "gpt-4"))
	tighter := Truncate(got, 50, "gpt-4")
	assert.LessOrEqual(t, CountTokens(tighter, "gpt-4"), 50)
}
