package config

import (
	"time"

	"veil-hq/relay/pkg/masking"
)

// Config is the root configuration for the relay.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Masking   MaskingConfig   `yaml:"masking"`
	Session   SessionConfig   `yaml:"session"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
}

// ProviderConfig configures the single model backend the relay talks to.
type ProviderConfig struct {
	// Kind selects the backend variant: "local" or "cloud".
	Kind string `yaml:"kind"`

	// Name is a label used in logs, metrics and error messages.
	Name string `yaml:"name"`

	// Endpoint is the backend base URL.
	Endpoint string `yaml:"endpoint"`

	// Model is the model identifier (local) or deployment name (cloud).
	Model string `yaml:"model"`

	// Credential is the API key; required for cloud, ignored for local.
	Credential string `yaml:"credential"`

	// APIVersion is the cloud service api-version query parameter.
	APIVersion string `yaml:"api_version"`

	// Temperature is the sampling temperature. Absent applies the
	// default; an explicit 0 is a valid value.
	Temperature *float64 `yaml:"temperature"`

	MaxTokens int `yaml:"max_tokens"`

	Timeout             time.Duration `yaml:"timeout"`
	MaxRetries          int           `yaml:"max_retries"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// MaskingConfig configures the PII masking pipeline.
type MaskingConfig struct {
	// Enabled toggles masking. When disabled, text passes through
	// unchanged and the health surface reports it.
	Enabled *bool `yaml:"enabled"`

	// ScoreThreshold is the minimum detection confidence kept.
	ScoreThreshold float64 `yaml:"score_threshold"`

	// OnUnavailable decides startup behavior when the pipeline cannot
	// initialize: "block" refuses to start, "bypass" runs unmasked.
	OnUnavailable string `yaml:"on_unavailable"`

	// Rules maps entity types to masking rules; empty means built-in
	// defaults. A DEFAULT entry is required when rules are supplied.
	Rules masking.RuleSet `yaml:"rules"`
}

// SessionConfig configures the in-memory conversation store.
type SessionConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// PromptConfig configures the system prompt source.
type PromptConfig struct {
	// Path is a file holding the system prompt; empty uses the
	// built-in default.
	Path string `yaml:"path"`

	// Watch reloads the prompt file on change.
	Watch bool `yaml:"watch"`
}

// AuditConfig configures turn-record persistence.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"` // "memory" or "sqlite"

	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite audit backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RetentionConfig configures periodic pruning of old turn records.
type RetentionConfig struct {
	// Days is the retention window. Absent applies the default; an
	// explicit 0 disables pruning.
	Days *int `yaml:"days"`

	// Schedule is a cron expression; empty uses a daily run.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig configures logging, metrics and tracing.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MaskingEnabled reports the effective masking toggle (default on).
func (c *MaskingConfig) MaskingEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
