package providers

import (
	"context"
	"time"
)

// Kind identifies one of the two supported backend variants.
type Kind string

const (
	// KindLocal is a locally served OpenAI-compatible endpoint (Ollama,
	// LM Studio, vLLM and friends). No credential is required.
	KindLocal Kind = "local"

	// KindCloud is a hosted Azure OpenAI-style endpoint. It requires a
	// credential and an API version parameter.
	KindCloud Kind = "cloud"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message in provider-agnostic form.
type Message struct {
	// Role identifies the message author (system, user, assistant).
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Request is a provider-agnostic chat completion request. Messages carry
// the full context: an optional leading system prompt followed by the
// session transcript.
type Request struct {
	// Messages is the conversation context in order.
	Messages []Message `json:"messages"`

	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens bounds the completion length. Zero leaves the backend
	// default in place.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	// InputTokens is the number of tokens in the prompt context.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of tokens in the completion.
	OutputTokens int `json:"output_tokens"`
}

// Reply is a provider-agnostic completion response.
type Reply struct {
	// Text is the generated assistant message.
	Text string `json:"text"`

	// Usage is the backend-reported token accounting.
	Usage Usage `json:"usage"`

	// Model is the backend-reported model identifier.
	Model string `json:"model"`
}

// Health tracks the observed health of a provider.
type Health struct {
	// IsHealthy indicates whether the provider is currently reachable.
	IsHealthy bool

	// LastCheck is the timestamp of the last health probe or request.
	LastCheck time.Time

	// LastError is the most recent failure (nil when healthy).
	LastError error

	// ConsecutiveFailures counts sequential failures.
	ConsecutiveFailures int

	// TotalRequests and FailedRequests count lifetime traffic.
	TotalRequests  int64
	FailedRequests int64
}

// Config configures one provider instance. It is resolved once at process
// start and never re-evaluated per request.
type Config struct {
	// Kind selects the backend variant.
	Kind Kind

	// Name is the provider identifier used in logs and errors.
	Name string

	// Endpoint is the backend base URL.
	Endpoint string

	// Model is the model (or deployment) identifier to generate with.
	Model string

	// Credential is the API key. Required for the cloud variant only.
	Credential string

	// APIVersion is the hosted API version parameter (cloud only).
	APIVersion string

	// Timeout bounds a single generate call.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int

	// HealthCheckInterval is how often the background prober runs.
	HealthCheckInterval time.Duration

	// Connection pool tuning.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Provider is the uniform contract over the two backend variants. Both
// present an identical chat-with-history call; only connection and
// credential handling differ.
//
// Generate must respect context cancellation and return one of the typed
// errors in this package on failure so callers can separate retryable from
// non-retryable outcomes.
type Provider interface {
	// Generate produces a completion for the given context messages.
	Generate(ctx context.Context, req *Request) (*Reply, error)

	// HealthCheck probes the backend with a lightweight request.
	HealthCheck(ctx context.Context) error

	// Name returns the configured provider name.
	Name() string

	// Kind returns the backend variant.
	Kind() Kind

	// Model returns the configured model identifier.
	Model() string

	// IsHealthy reports the current health status.
	IsHealthy() bool

	// Health returns detailed health information.
	Health() Health

	// Close releases pooled connections and stops the health prober.
	Close() error
}
