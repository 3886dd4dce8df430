package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateBaseURL validates a backend endpoint override.
//
// Local endpoints (LM Studio, vLLM, any OpenAI-compatible server on
// localhost) are a normal way to run the summarizer, so private hosts are
// accepted; the checks only reject URLs that cannot address a chat API.
func ValidateBaseURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url scheme %q (must be http or https)", u.Scheme)
	}

	if u.Hostname() == "" {
		return fmt.Errorf("invalid base_url host %q", u.Host)
	}

	if u.User != nil {
		return fmt.Errorf("base_url must not contain userinfo")
	}

	if u.RawQuery != "" {
		return fmt.Errorf("base_url must not contain query")
	}

	if u.Fragment != "" {
		return fmt.Errorf("base_url must not contain fragment")
	}

	return nil
}
