package payment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderError is a normalized upstream failure carrying the provider's
// human-readable message. Raw bodies never reach API clients.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
}

func newProviderError(provider string, statusCode int, body []byte) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    extractErrorMessage(body),
	}
}

// The provider's API returns inconsistent error shapes across endpoints, so
// extraction is an ordered list of strategies rather than one decode:
// a top-level message, a nested cause, the first element of an errors
// array, and finally the raw body.
var errorExtractors = []func(map[string]any) string{
	extractMessageField,
	extractNestedCause,
	extractFirstArrayError,
}

func extractErrorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "unknown provider error"
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return truncate(trimmed, 300)
	}

	for _, extract := range errorExtractors {
		if message := extract(payload); message != "" {
			return message
		}
	}
	return truncate(trimmed, 300)
}

func extractMessageField(payload map[string]any) string {
	for _, field := range []string{"message", "error_description", "error"} {
		if message, ok := payload[field].(string); ok && strings.TrimSpace(message) != "" {
			return message
		}
	}
	return ""
}

func extractNestedCause(payload map[string]any) string {
	cause, ok := payload["cause"]
	if !ok {
		return ""
	}
	switch v := cause.(type) {
	case map[string]any:
		return extractMessageField(v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		if first, ok := v[0].(map[string]any); ok {
			if message := extractMessageField(first); message != "" {
				return message
			}
			if description, ok := first["description"].(string); ok {
				return description
			}
		}
	}
	return ""
}

func extractFirstArrayError(payload map[string]any) string {
	errs, ok := payload["errors"].([]any)
	if !ok || len(errs) == 0 {
		return ""
	}
	switch first := errs[0].(type) {
	case map[string]any:
		if message := extractMessageField(first); message != "" {
			return message
		}
		if detail, ok := first["detail"].(string); ok {
			return detail
		}
	case string:
		return first
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
