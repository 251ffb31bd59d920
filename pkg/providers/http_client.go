package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// unhealthyAfter is the number of consecutive failures before a provider
// is marked unhealthy.
const unhealthyAfter = 3

// HTTPClient is the shared base for HTTP-backed provider adapters. It
// provides connection pooling, retry with exponential backoff, timeout
// handling, taxonomy-mapped error reporting, and health tracking.
//
// Concrete adapters (local, cloud) embed this struct and implement the
// Provider interface on top of it.
type HTTPClient struct {
	config Config
	client *http.Client

	health   Health
	healthMu sync.RWMutex

	stopHealthCheck    chan struct{}
	healthCheckStopped chan struct{}
	healthCheckOnce    sync.Once
	closeOnce          sync.Once
}

// NewHTTPClient creates the base client with a pooled transport.
func NewHTTPClient(config Config) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: Health{
			// Start optimistic; the first failed request or probe
			// flips the state.
			IsHealthy: true,
			LastCheck: time.Now(),
		},
		stopHealthCheck:    make(chan struct{}),
		healthCheckStopped: make(chan struct{}),
	}
}

// Name returns the configured provider name.
func (c *HTTPClient) Name() string { return c.config.Name }

// Kind returns the configured backend variant.
func (c *HTTPClient) Kind() Kind { return c.config.Kind }

// Model returns the configured model identifier.
func (c *HTTPClient) Model() string { return c.config.Model }

// Config returns the provider configuration.
func (c *HTTPClient) Config() Config { return c.config }

// IsHealthy reports the current health status.
func (c *HTTPClient) IsHealthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.IsHealthy
}

// Health returns detailed health information.
func (c *HTTPClient) Health() Health {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

// updateHealth records the outcome of a request or probe.
func (c *HTTPClient) updateHealth(success bool, err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.LastCheck = time.Now()

	if success {
		c.health.IsHealthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		return
	}

	c.health.ConsecutiveFailures++
	c.health.LastError = err
	if c.health.ConsecutiveFailures >= unhealthyAfter {
		if c.health.IsHealthy {
			slog.Warn("provider marked unhealthy",
				"provider", c.config.Name,
				"consecutive_failures", c.health.ConsecutiveFailures,
				"error", err,
			)
		}
		c.health.IsHealthy = false
	}
}

// recordRequest updates request counters.
func (c *HTTPClient) recordRequest(success bool) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.health.TotalRequests++
	if !success {
		c.health.FailedRequests++
	}
}

// DoRequest performs an HTTP request with retry and taxonomy mapping.
// Transient failures (network errors, 5xx) are retried with exponential
// backoff up to the configured budget; auth failures, throttling and bad
// requests are returned immediately.
func (c *HTTPClient) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying request",
				"provider", c.config.Name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		attemptStart := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			c.recordRequest(false)

			// A finished context ends the retry loop. A caller cancel is
			// returned as-is; only an expired deadline is a timeout.
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{Provider: c.config.Name, Timeout: time.Since(attemptStart)}
			}

			lastErr = &ConnectionError{Provider: c.config.Name, Cause: err}
			slog.Warn("request failed, will retry",
				"provider", c.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.recordRequest(true)
			c.updateHealth(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			c.recordRequest(false)
			c.updateHealth(false, fmt.Errorf("authentication failed"))
			return nil, &AuthError{Provider: c.config.Name, Message: string(errorBody)}

		case http.StatusTooManyRequests:
			c.recordRequest(false)
			return nil, &RateLimitError{
				Provider:   c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
			// Malformed request or unknown model; retrying cannot help.
			c.recordRequest(false)
			return nil, &ModelError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			lastErr = &ModelError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			c.recordRequest(false)
			slog.Warn("request returned error status, will retry",
				"provider", c.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	c.updateHealth(false, lastErr)
	return nil, lastErr
}

// DoJSONRequest performs a JSON request and decodes the response body.
func (c *HTTPClient) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: c.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    c.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}
	return nil
}

// Probe performs a single health probe against the given URL and records
// the outcome. Variants call it from their HealthCheck implementations.
func (c *HTTPClient) Probe(ctx context.Context, url string, headers map[string]string) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.DoRequest(checkCtx, http.MethodGet, url, nil, headers)
	if err != nil {
		c.updateHealth(false, err)
		return err
	}
	resp.Body.Close()
	c.updateHealth(true, nil)
	return nil
}

// Close stops the health prober and releases idle connections.
func (c *HTTPClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopHealthCheck)
		c.client.CloseIdleConnections()
		slog.Info("provider closed", "provider", c.config.Name)
	})
	return nil
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
