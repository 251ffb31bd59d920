package config

import (
	"time"

	"veil-hq/relay/pkg/session"
)

// Default values applied to any field left unset in the YAML file.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1MB

	DefaultProviderTimeout     = 60 * time.Second
	DefaultProviderMaxRetries  = 2
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultTemperature         = 0.7

	DefaultScoreThreshold = 0.5
	DefaultOnUnavailable  = "block"

	DefaultAuditBackend      = "memory"
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
	DefaultSampleRatio = 0.1
)

// ApplyDefaults fills in default values for any zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = cfg.Provider.Kind
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = DefaultProviderMaxRetries
	}
	if cfg.Provider.HealthCheckInterval == 0 {
		cfg.Provider.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if cfg.Provider.MaxIdleConns == 0 {
		cfg.Provider.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Provider.MaxIdleConnsPerHost == 0 {
		cfg.Provider.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.Provider.IdleConnTimeout == 0 {
		cfg.Provider.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if cfg.Provider.Temperature == nil {
		t := DefaultTemperature
		cfg.Provider.Temperature = &t
	}

	if cfg.Masking.ScoreThreshold == 0 {
		cfg.Masking.ScoreThreshold = DefaultScoreThreshold
	}
	if cfg.Masking.OnUnavailable == "" {
		cfg.Masking.OnUnavailable = DefaultOnUnavailable
	}

	if cfg.Session.MaxTurns == 0 {
		cfg.Session.MaxTurns = session.DefaultMaxTurns
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.Retention.Days == nil {
		d := DefaultRetentionDays
		cfg.Audit.Retention.Days = &d
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultSampleRatio
	}
}
