package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError reports a validation failure on a single configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "provider.endpoint").
	Field string

	// Message is a human-readable explanation.
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation failure found in a
// configuration so operators see the full list at once.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the entire configuration, collecting all failures.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProvider(&cfg.Provider)...)
	errs = append(errs, validateMasking(&cfg.Masking)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}

	return errs
}

func validateProvider(cfg *ProviderConfig) []FieldError {
	var errs []FieldError

	switch cfg.Kind {
	case "local", "cloud":
	case "":
		errs = append(errs, FieldError{
			Field:   "provider.kind",
			Message: "backend kind is required (local or cloud)",
		})
	default:
		errs = append(errs, FieldError{
			Field:   "provider.kind",
			Message: fmt.Sprintf("unsupported backend kind %q (supported: local, cloud)", cfg.Kind),
		})
	}

	if cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "provider.endpoint",
			Message: "endpoint is required",
		})
	} else if u, err := url.Parse(cfg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "provider.endpoint",
			Message: fmt.Sprintf("invalid endpoint URL: %q", cfg.Endpoint),
		})
	}

	if cfg.Model == "" {
		errs = append(errs, FieldError{
			Field:   "provider.model",
			Message: "model is required",
		})
	}

	if cfg.Kind == "cloud" && cfg.Credential == "" {
		errs = append(errs, FieldError{
			Field:   "provider.credential",
			Message: "credential is required for the cloud backend",
		})
	}

	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		errs = append(errs, FieldError{
			Field:   "provider.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}
	if cfg.MaxTokens < 0 {
		errs = append(errs, FieldError{
			Field:   "provider.max_tokens",
			Message: "max tokens must be non-negative",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "provider.max_retries",
			Message: "max retries must be non-negative",
		})
	}

	return errs
}

func validateMasking(cfg *MaskingConfig) []FieldError {
	var errs []FieldError

	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "masking.score_threshold",
			Message: "score threshold must be between 0 and 1",
		})
	}

	switch cfg.OnUnavailable {
	case "block", "bypass":
	default:
		errs = append(errs, FieldError{
			Field:   "masking.on_unavailable",
			Message: fmt.Sprintf("unsupported value %q (supported: block, bypass)", cfg.OnUnavailable),
		})
	}

	if len(cfg.Rules) > 0 {
		if err := cfg.Rules.Validate(); err != nil {
			errs = append(errs, FieldError{
				Field:   "masking.rules",
				Message: err.Error(),
			})
		}
	}

	return errs
}

func validateSession(cfg *SessionConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxTurns < 1 {
		errs = append(errs, FieldError{
			Field:   "session.max_turns",
			Message: "max turns must be at least 1",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("unsupported backend %q (supported: memory, sqlite)", cfg.Backend),
		})
	}

	if cfg.Retention.Days != nil && *cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.days",
			Message: "retention days must be non-negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unsupported level %q (supported: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unsupported format %q (supported: json, text)", cfg.Logging.Format),
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}

	return errs
}
