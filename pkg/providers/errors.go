package providers

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionError indicates the backend was unreachable: DNS failure,
// refused connection, or a broken transport. It is retryable and degrades
// the provider's health status rather than crashing the service.
type ConnectionError struct {
	// Provider is the name of the unreachable provider.
	Provider string

	// Cause is the underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("provider %q unreachable: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// AuthError indicates the backend rejected the credential (HTTP 401/403).
// It is non-retryable and surfaced distinctly so operators do not mistake
// a bad key for a connectivity problem. Only the cloud variant can
// produce it.
type AuthError struct {
	// Provider is the name of the provider that rejected the credential.
	Provider string

	// Message is the error body returned by the backend.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// ModelError indicates the backend responded but signalled an internal
// failure, a malformed request, or returned an empty completion. Whether it
// is retryable depends on the status code: server-side failures (5xx) are
// transient, client-side rejections (4xx) are not.
type ModelError struct {
	// Provider is the name of the provider.
	Provider string

	// StatusCode is the HTTP status (0 for protocol-level failures such
	// as an empty completion).
	StatusCode int

	// Message is the backend's failure description.
	Message string
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q model error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q model error: %s", e.Provider, e.Message)
}

// RateLimitError indicates the backend throttled the request (HTTP 429).
// The caller may retry after the indicated delay.
type RateLimitError struct {
	// Provider is the name of the provider that throttled the request.
	Provider string

	// RetryAfter is the backend-suggested wait (0 if not provided).
	RetryAfter time.Duration

	// Message is the error body returned by the backend.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// TimeoutError indicates a request deadline expired before the backend
// answered.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred.
	Provider string

	// Timeout is how long the request waited before the deadline expired.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// ParseError indicates the backend returned a malformed response body.
type ParseError struct {
	// Provider is the name of the provider.
	Provider string

	// RawResponse is the body that failed to parse.
	RawResponse string

	// Cause is the underlying decode error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates an invalid request before it reached the
// backend. Non-retryable.
type ValidationError struct {
	// Field is the offending request field.
	Field string

	// Message describes what is invalid.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// ConfigError indicates an invalid provider configuration. It is a startup
// failure, never a per-request one.
type ConfigError struct {
	// Provider is the name of the misconfigured provider.
	Provider string

	// Field is the configuration field at fault.
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// Retryable classifies provider errors: connection failures, timeouts,
// rate limits and server-side model errors are transient; authentication
// failures, malformed requests and parse failures are not.
func Retryable(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var modelErr *ModelError
	if errors.As(err, &modelErr) {
		return modelErr.StatusCode >= 500
	}
	return false
}
