// Package providers defines the uniform model-backend abstraction used by
// the relay: a Provider interface with typed errors, plus a shared HTTP
// base client with pooling, retry, and health tracking.
//
// Two variants implement the interface: providers/local speaks the
// OpenAI-compatible completions dialect served by local runtimes such as
// Ollama, and providers/cloud speaks the Azure OpenAI deployment dialect.
// Callers never branch on the variant after construction; the factory
// resolves it once at startup.
package providers
