// Package local adapts OpenAI-compatible local runtimes (Ollama,
// LM Studio, vLLM) to the Provider interface. No credential is sent.
package local
