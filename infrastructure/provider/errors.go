// Package provider implements clients for OpenAI-compatible AI services.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Error taxonomy for embedding and chat calls. The batch pipeline keys its
// retry policy off these sentinels.
var (
	// ErrRateLimited indicates the service rejected the call with HTTP 429
	// or an equivalent rate-limit signal. Retryable with exponential backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrPayloadTooLarge indicates the request exceeded the service's token
	// or payload limit. Recoverable by reducing the batch size.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrEmptyResponse indicates the service returned no data for a
	// non-empty request.
	ErrEmptyResponse = errors.New("empty response")
)

// ProviderError wraps a service error with the operation that produced it and
// the HTTP status code, when known.
type ProviderError struct {
	operation string
	status    int
	message   string
	cause     error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, status int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation: operation,
		status:    status,
		message:   message,
		cause:     cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("%s failed (%d): %s", e.operation, e.status, e.message)
	}
	return fmt.Sprintf("%s failed: %s", e.operation, e.message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code, 0 if unknown.
func (e *ProviderError) Status() int { return e.status }

// Operation returns the operation that produced the error.
func (e *ProviderError) Operation() string { return e.operation }

// classify maps a raw service error onto the provider's error taxonomy.
// Typed API errors are inspected first; the textual fallback covers services
// that only surface a message (lowercased substring matching on the
// rate-limit / token-limit indicators the embedding APIs actually emit).
func classify(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrapped := NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, wrapped)
		case apiErr.HTTPStatusCode == http.StatusRequestEntityTooLarge:
			return fmt.Errorf("%w: %w", ErrPayloadTooLarge, wrapped)
		case tokenLimitMessage(apiErr.Message):
			return fmt.Errorf("%w: %w", ErrPayloadTooLarge, wrapped)
		}
		return wrapped
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case tokenLimitMessage(msg):
		return fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

func tokenLimitMessage(message string) bool {
	msg := strings.ToLower(message)
	return strings.Contains(msg, "too many tokens") ||
		strings.Contains(msg, "maximum context length") ||
		strings.Contains(msg, "payload too large")
}
