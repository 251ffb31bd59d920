// Package cloud adapts Azure OpenAI deployments to the Provider
// interface: api-key header auth, per-deployment routing, and an
// api-version query parameter on every call.
package cloud
