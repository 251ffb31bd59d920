package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"veil-hq/relay/pkg/providers"
)

const defaultAPIVersion = "2024-02-15-preview"

// Client is the provider adapter for Azure OpenAI deployments. Requests
// are authenticated with an api-key header and routed per deployment,
// with the service api-version carried as a query parameter.
type Client struct {
	*providers.HTTPClient
	baseURL    string
	apiVersion string
}

// New creates a cloud provider adapter. A credential is mandatory: the
// relay refuses to talk to a cloud backend anonymously.
func New(config providers.Config) (*Client, error) {
	if config.Name == "" {
		config.Name = "cloud"
	}
	if config.Endpoint == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "endpoint",
			Message:  "endpoint is required for the cloud backend",
		}
	}
	if config.Model == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "model",
			Message:  "deployment name is required",
		}
	}
	if config.Credential == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "credential",
			Message:  "api key is required for the cloud backend",
		}
	}
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
	}
	config.Kind = providers.KindCloud

	c := &Client{
		HTTPClient: providers.NewHTTPClient(config),
		baseURL:    strings.TrimRight(config.Endpoint, "/"),
		apiVersion: config.APIVersion,
	}

	slog.Info("cloud provider initialized",
		"provider", config.Name,
		"endpoint", c.baseURL,
		"deployment", config.Model,
		"api_version", c.apiVersion,
	)
	return c, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"api-key": c.Config().Credential,
	}
}

func (c *Client) completionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.baseURL, url.PathEscape(c.Model()), url.QueryEscape(c.apiVersion))
}

// Generate sends a chat completion request to the deployment.
func (c *Client) Generate(ctx context.Context, req *providers.Request) (*providers.Reply, error) {
	wireReq := transformRequest(req)

	var wireResp chatResponse
	if err := c.DoJSONRequest(ctx, http.MethodPost, c.completionsURL(), wireReq, &wireResp, c.headers()); err != nil {
		return nil, err
	}

	return transformResponse(c.Name(), c.Model(), &wireResp)
}

// HealthCheck probes the deployment listing endpoint with the api key.
func (c *Client) HealthCheck(ctx context.Context) error {
	probeURL := fmt.Sprintf("%s/openai/deployments?api-version=%s", c.baseURL, url.QueryEscape(c.apiVersion))
	return c.Probe(ctx, probeURL, c.headers())
}
