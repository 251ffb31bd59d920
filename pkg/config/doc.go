// Package config defines the relay's YAML configuration: the HTTP
// listener, the single model backend, the PII masking pipeline, session
// retention, the system prompt source, audit persistence, and telemetry.
//
// Loading follows a fixed sequence: parse YAML, apply defaults, apply
// VEIL_* environment overrides, then validate. Validation collects every
// failure into a single ValidationError so operators can fix a broken
// file in one pass.
package config
