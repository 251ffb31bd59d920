// Package providerfactory resolves the configured backend kind into a
// concrete Provider exactly once at startup. The rest of the relay holds
// the returned handle and never branches on the kind again.
package providerfactory

import (
	"fmt"
	"log/slog"

	"veil-hq/relay/pkg/providers"
	"veil-hq/relay/pkg/providers/cloud"
	"veil-hq/relay/pkg/providers/local"
)

// New creates a provider for the configured backend kind.
//
// Supported kinds:
//   - "local": OpenAI-compatible local runtimes (Ollama, LM Studio, vLLM)
//   - "cloud": Azure OpenAI deployments
func New(config providers.Config) (providers.Provider, error) {
	slog.Debug("creating provider",
		"name", config.Name,
		"kind", config.Kind,
		"endpoint", config.Endpoint,
	)

	var provider providers.Provider
	var err error

	switch config.Kind {
	case providers.KindLocal:
		provider, err = local.New(config)
	case providers.KindCloud:
		provider, err = cloud.New(config)
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "kind",
			Message:  fmt.Sprintf("unsupported backend kind: %q (supported: local, cloud)", config.Kind),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}

	if config.HealthCheckInterval > 0 {
		if hc, ok := provider.(healthCheckable); ok {
			hc.StartHealthChecker(provider)
		}
	}
	return provider, nil
}

// healthCheckable is satisfied by adapters built on the shared HTTP base.
type healthCheckable interface {
	StartHealthChecker(providers.Provider)
}
