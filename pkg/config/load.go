package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file, applies defaults and validates.
// Environment variables are not consulted; use LoadWithEnvOverrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads the YAML file and then applies environment
// variable overrides named VEIL_SECTION_FIELD (e.g. VEIL_SERVER_LISTEN_ADDRESS).
// Environment values always win over the file.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server
	if val := os.Getenv("VEIL_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("VEIL_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("VEIL_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Provider
	if val := os.Getenv("VEIL_PROVIDER_KIND"); val != "" {
		cfg.Provider.Kind = val
	}
	if val := os.Getenv("VEIL_PROVIDER_ENDPOINT"); val != "" {
		cfg.Provider.Endpoint = val
	}
	if val := os.Getenv("VEIL_PROVIDER_MODEL"); val != "" {
		cfg.Provider.Model = val
	}
	if val := os.Getenv("VEIL_PROVIDER_CREDENTIAL"); val != "" {
		cfg.Provider.Credential = val
	}
	if val := os.Getenv("VEIL_PROVIDER_API_VERSION"); val != "" {
		cfg.Provider.APIVersion = val
	}
	if val := os.Getenv("VEIL_PROVIDER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Provider.Timeout = d
		}
	}
	if val := os.Getenv("VEIL_PROVIDER_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Provider.MaxRetries = i
		}
	}
	if val := os.Getenv("VEIL_PROVIDER_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Provider.Temperature = &f
		}
	}

	// Masking
	if val := os.Getenv("VEIL_MASKING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Masking.Enabled = &b
		}
	}
	if val := os.Getenv("VEIL_MASKING_SCORE_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Masking.ScoreThreshold = f
		}
	}
	if val := os.Getenv("VEIL_MASKING_ON_UNAVAILABLE"); val != "" {
		cfg.Masking.OnUnavailable = val
	}

	// Session
	if val := os.Getenv("VEIL_SESSION_MAX_TURNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Session.MaxTurns = i
		}
	}

	// Prompt
	if val := os.Getenv("VEIL_PROMPT_PATH"); val != "" {
		cfg.Prompt.Path = val
	}
	if val := os.Getenv("VEIL_PROMPT_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Prompt.Watch = b
		}
	}

	// Audit
	if val := os.Getenv("VEIL_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("VEIL_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("VEIL_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := os.Getenv("VEIL_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = &i
		}
	}

	// Telemetry
	if val := os.Getenv("VEIL_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("VEIL_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("VEIL_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("VEIL_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("VEIL_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("VEIL_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}
