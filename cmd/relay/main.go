// Veil Relay is a privacy-guarding conversational relay.
//
// It sits between chat clients and an LLM backend, providing:
//   - PII detection and masking before any text leaves the relay
//   - Session-scoped conversation history
//   - Local (OpenAI-compatible) and cloud (Azure-style) model backends
//   - Audit records of masked turns with scheduled retention
//
// Usage:
//
//	# Start the relay with the default configuration
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /path/to/config.yaml
//
//	# Validate a configuration file without starting
//	relay validate
//
//	# Talk to a running relay from the terminal
//	relay chat "hello"
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
