package observability

import (
	"regexp"
)

// Redactor masks credentials in log output.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor covering the API key formats of the
// supported backends plus generic bearer tokens.
func NewRedactor() *Redactor {
	r := &Redactor{}
	r.AddPattern(`sk-ant-[a-zA-Z0-9\-_]{20,}`, "[REDACTED_ANTHROPIC_KEY]")
	r.AddPattern(`sk-proj-[a-zA-Z0-9\-_]{20,}`, "[REDACTED_OPENAI_PROJECT_KEY]")
	r.AddPattern(`sk-[a-zA-Z0-9]{20,}`, "[REDACTED_OPENAI_KEY]")
	r.AddPattern(`pplx-[a-zA-Z0-9]{20,}`, "[REDACTED_PERPLEXITY_KEY]")
	r.AddPattern(`Bearer\s+[a-zA-Z0-9\-_\.]+`, "Bearer [REDACTED]")
	r.AddPattern(`Authorization:\s*[^\s]+`, "Authorization: [REDACTED]")
	return r
}

// AddPattern adds a custom redaction pattern. Invalid patterns are
// skipped.
func (r *Redactor) AddPattern(pattern, replacement string) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return
	}
	r.patterns = append(r.patterns, &redactPattern{regex: regex, replacement: replacement})
}

// Redact applies all patterns to the input string.
func (r *Redactor) Redact(input string) string {
	result := input
	for _, p := range r.patterns {
		result = p.regex.ReplaceAllString(result, p.replacement)
	}
	return result
}
