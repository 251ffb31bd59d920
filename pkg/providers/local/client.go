package local

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"veil-hq/relay/pkg/providers"
)

// Client is the provider adapter for OpenAI-compatible local runtimes
// such as Ollama, LM Studio and vLLM. No credential is sent; the runtime
// is assumed to live on a trusted network segment.
type Client struct {
	*providers.HTTPClient
	baseURL string
}

// New creates a local provider adapter.
func New(config providers.Config) (*Client, error) {
	if config.Name == "" {
		config.Name = "local"
	}
	if config.Endpoint == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "endpoint",
			Message:  "endpoint is required for the local backend",
		}
	}
	if config.Model == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "model",
			Message:  "model is required",
		}
	}
	config.Kind = providers.KindLocal

	c := &Client{
		HTTPClient: providers.NewHTTPClient(config),
		baseURL:    strings.TrimRight(config.Endpoint, "/"),
	}

	slog.Info("local provider initialized",
		"provider", config.Name,
		"endpoint", c.baseURL,
		"model", config.Model,
	)
	return c, nil
}

// Generate sends a chat completion request and returns the assistant reply.
func (c *Client) Generate(ctx context.Context, req *providers.Request) (*providers.Reply, error) {
	wireReq := transformRequest(c.Model(), req)

	var wireResp chatResponse
	url := c.baseURL + "/v1/chat/completions"
	if err := c.DoJSONRequest(ctx, http.MethodPost, url, wireReq, &wireResp, nil); err != nil {
		return nil, err
	}

	return transformResponse(c.Name(), &wireResp)
}

// HealthCheck probes the runtime's model listing endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Probe(ctx, c.baseURL+"/v1/models", nil)
}
