package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_address: ":9090"
provider:
  kind: local
  name: local-ollama
  endpoint: http://localhost:11434
  model: llama3.1:8b
masking:
  score_threshold: 0.5
session:
  max_turns: 20
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("ListenAddress = %q, want :9090", cfg.Server.ListenAddress)
	}
	if cfg.Provider.Kind != "local" {
		t.Errorf("Kind = %q, want local", cfg.Provider.Kind)
	}
	if cfg.Session.MaxTurns != 20 {
		t.Errorf("MaxTurns = %d, want 20", cfg.Session.MaxTurns)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Provider.Timeout != DefaultProviderTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Provider.Timeout, DefaultProviderTimeout)
	}
	if cfg.Provider.Temperature == nil || *cfg.Provider.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", cfg.Provider.Temperature, DefaultTemperature)
	}
	if cfg.Audit.Retention.Days == nil || *cfg.Audit.Retention.Days != DefaultRetentionDays {
		t.Errorf("Retention.Days = %v, want %v", cfg.Audit.Retention.Days, DefaultRetentionDays)
	}
	if cfg.Masking.OnUnavailable != "block" {
		t.Errorf("OnUnavailable = %q, want block", cfg.Masking.OnUnavailable)
	}
	if !cfg.Masking.MaskingEnabled() {
		t.Error("masking should default to enabled")
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Telemetry.Logging)
	}
	if cfg.Audit.Backend != "memory" {
		t.Errorf("audit backend = %q, want memory", cfg.Audit.Backend)
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	full := validYAML + `
audit:
  enabled: true
  backend: memory
  retention:
    days: 0
`
	full = strings.Replace(full, "provider:\n", "provider:\n  temperature: 0\n", 1)

	cfg, err := Load(writeConfig(t, full))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Provider.Temperature == nil || *cfg.Provider.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit 0", cfg.Provider.Temperature)
	}
	if cfg.Audit.Retention.Days == nil || *cfg.Audit.Retention.Days != 0 {
		t.Errorf("Retention.Days = %v, want explicit 0", cfg.Audit.Retention.Days)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Provider.Kind = "mainframe"
	cfg.Provider.Endpoint = "not a url"
	cfg.Masking.ScoreThreshold = 3

	err := Validate(cfg)
	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(vErr.Errors) < 3 {
		t.Errorf("expected at least 3 field errors, got %d: %v", len(vErr.Errors), vErr)
	}

	msg := err.Error()
	for _, field := range []string{"provider.kind", "provider.endpoint", "masking.score_threshold"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error message missing field %q: %s", field, msg)
		}
	}
}

func TestValidateCloudRequiresCredential(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Provider.Kind = "cloud"
	cfg.Provider.Endpoint = "https://example.openai.azure.com"
	cfg.Provider.Model = "gpt-4o"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "provider.credential") {
		t.Fatalf("expected credential error, got %v", err)
	}

	cfg.Provider.Credential = "key"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateAuditSQLiteNeedsPath(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Provider.Kind = "local"
	cfg.Provider.Endpoint = "http://localhost:11434"
	cfg.Provider.Model = "m"
	cfg.Audit.Enabled = true
	cfg.Audit.Backend = "sqlite"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "audit.sqlite.path") {
		t.Fatalf("expected sqlite path error, got %v", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("VEIL_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("VEIL_PROVIDER_MODEL", "mistral:7b")
	t.Setenv("VEIL_PROVIDER_TIMEOUT", "90s")
	t.Setenv("VEIL_MASKING_ENABLED", "false")
	t.Setenv("VEIL_SESSION_MAX_TURNS", "40")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("ListenAddress = %q, want :7070", cfg.Server.ListenAddress)
	}
	if cfg.Provider.Model != "mistral:7b" {
		t.Errorf("Model = %q, want mistral:7b", cfg.Provider.Model)
	}
	if cfg.Provider.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Provider.Timeout)
	}
	if cfg.Masking.MaskingEnabled() {
		t.Error("masking should be disabled via env")
	}
	if cfg.Session.MaxTurns != 40 {
		t.Errorf("MaxTurns = %d, want 40", cfg.Session.MaxTurns)
	}
}

func TestLoadWithEnvOverridesRevalidates(t *testing.T) {
	t.Setenv("VEIL_MASKING_ON_UNAVAILABLE", "shrug")

	_, err := LoadWithEnvOverrides(writeConfig(t, validYAML))
	if err == nil || !strings.Contains(err.Error(), "masking.on_unavailable") {
		t.Fatalf("expected on_unavailable error, got %v", err)
	}
}

func TestLoadCustomRules(t *testing.T) {
	full := strings.Replace(validYAML, "masking:\n  score_threshold: 0.5\n", `masking:
  score_threshold: 0.5
  rules:
    DEFAULT:
      strategy: replace
      replace_with: "[HIDDEN]"
    CREDIT_CARD:
      strategy: partial_mask
      masking_char: "*"
      chars_to_mask: 4
      from_end: true
`, 1)

	cfg, err := Load(writeConfig(t, full))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Masking.Rules["DEFAULT"].ReplaceWith; got != "[HIDDEN]" {
		t.Errorf("DEFAULT replace_with = %q, want [HIDDEN]", got)
	}
	if got := cfg.Masking.Rules["CREDIT_CARD"].CharsToMask; got != 4 {
		t.Errorf("CREDIT_CARD chars_to_mask = %d, want 4", got)
	}
}
