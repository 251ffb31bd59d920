package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(endpoint string) Config {
	return Config{
		Kind:                KindLocal,
		Name:                "test-provider",
		Endpoint:            endpoint,
		Model:               "test-model",
		Timeout:             5 * time.Second,
		MaxRetries:          2,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
}

func TestDoRequestSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	resp, err := c.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	resp.Body.Close()

	if !c.IsHealthy() {
		t.Error("provider should be healthy after a successful request")
	}
	if h := c.Health(); h.TotalRequests != 1 || h.FailedRequests != 0 {
		t.Errorf("unexpected counters: total=%d failed=%d", h.TotalRequests, h.FailedRequests)
	}
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	resp, err := c.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("DoRequest should succeed after retries: %v", err)
	}
	resp.Body.Close()

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestDoRequestAuthFailureNoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	_, err := c.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("auth failures must not be retried, got %d attempts", got)
	}
}

func TestDoRequestRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	_, err := c.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rlErr.RetryAfter != 15*time.Second {
		t.Errorf("RetryAfter = %v, want 15s", rlErr.RetryAfter)
	}
}

func TestDoRequestBadRequestNoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	_, err := c.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError, got %T: %v", err, err)
	}
	if Retryable(err) {
		t.Error("400 responses should not be retryable")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("4xx failures must not be retried, got %d attempts", got)
	}
}

func TestConnectionRefusedMapsToConnectionError(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.MaxRetries = 0
	c := NewHTTPClient(cfg)
	defer c.Close()

	_, err := c.DoRequest(context.Background(), http.MethodGet, cfg.Endpoint, nil, nil)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %T: %v", err, err)
	}
}

func TestDoRequestCallerCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %T: %v", err, err)
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Error("a caller cancel must not be reported as a timeout")
	}
}

func TestDoRequestDeadlineMapsToTimeoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	// The reported wait reflects the expired deadline, not the
	// configured per-request timeout.
	if timeoutErr.Timeout >= testConfig(server.URL).Timeout {
		t.Errorf("Timeout = %s, want the short deadline wait", timeoutErr.Timeout)
	}
}

func TestHealthDegradesAfterConsecutiveFailures(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.MaxRetries = 0
	c := NewHTTPClient(cfg)
	defer c.Close()

	for i := 0; i < unhealthyAfter; i++ {
		c.DoRequest(context.Background(), http.MethodGet, cfg.Endpoint, nil, nil)
	}

	if c.IsHealthy() {
		t.Error("provider should be unhealthy after consecutive failures")
	}

	h := c.Health()
	if h.ConsecutiveFailures < unhealthyAfter {
		t.Errorf("ConsecutiveFailures = %d, want >= %d", h.ConsecutiveFailures, unhealthyAfter)
	}
	if h.LastError == nil {
		t.Error("LastError should be populated")
	}
}

func TestHealthRecoversOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	// Force unhealthy, then recover with one success.
	for i := 0; i < unhealthyAfter; i++ {
		c.updateHealth(false, errors.New("down"))
	}
	if c.IsHealthy() {
		t.Fatal("setup: provider should be unhealthy")
	}

	resp, err := c.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	resp.Body.Close()

	if !c.IsHealthy() {
		t.Error("a single success should restore health")
	}
	if h := c.Health(); h.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", h.ConsecutiveFailures)
	}
}

func TestDoJSONRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		w.Write([]byte(`{"answer": 42}`))
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	var out struct {
		Answer int `json:"answer"`
	}
	err := c.DoJSONRequest(context.Background(), http.MethodPost, server.URL, map[string]string{"q": "?"}, &out, nil)
	if err != nil {
		t.Fatalf("DoJSONRequest failed: %v", err)
	}
	if out.Answer != 42 {
		t.Errorf("answer = %d, want 42", out.Answer)
	}
}

func TestDoJSONRequestParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	c := NewHTTPClient(testConfig(server.URL))
	defer c.Close()

	var out map[string]any
	err := c.DoJSONRequest(context.Background(), http.MethodGet, server.URL, nil, &out, nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if parseErr.RawResponse == "" {
		t.Error("ParseError should carry the raw response")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "30", 30 * time.Second},
		{"empty", "", 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
