package providerfactory

import (
	"errors"
	"testing"
	"time"

	"veil-hq/relay/pkg/providers"
)

func TestNewLocal(t *testing.T) {
	p, err := New(providers.Config{
		Kind:     providers.KindLocal,
		Name:     "local-ollama",
		Endpoint: "http://localhost:11434",
		Model:    "llama3.1:8b",
		Timeout:  30 * time.Second,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if p.Kind() != providers.KindLocal {
		t.Errorf("Kind = %q, want %q", p.Kind(), providers.KindLocal)
	}
	if p.Model() != "llama3.1:8b" {
		t.Errorf("Model = %q", p.Model())
	}
}

func TestNewCloud(t *testing.T) {
	p, err := New(providers.Config{
		Kind:       providers.KindCloud,
		Name:       "azure-gpt4",
		Endpoint:   "https://example.openai.azure.com",
		Model:      "gpt-4o",
		Credential: "key",
		Timeout:    30 * time.Second,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if p.Kind() != providers.KindCloud {
		t.Errorf("Kind = %q, want %q", p.Kind(), providers.KindCloud)
	}
}

func TestNewCloudRequiresCredential(t *testing.T) {
	_, err := New(providers.Config{
		Kind:     providers.KindCloud,
		Name:     "azure-gpt4",
		Endpoint: "https://example.openai.azure.com",
		Model:    "gpt-4o",
	})
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "credential" {
		t.Errorf("Field = %q, want credential", cfgErr.Field)
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(providers.Config{
		Kind:     "mainframe",
		Name:     "p",
		Endpoint: "http://localhost",
		Model:    "m",
	})
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "kind" {
		t.Errorf("Field = %q, want kind", cfgErr.Field)
	}
}
