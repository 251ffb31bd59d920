package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"veil-hq/relay/pkg/config"
	"veil-hq/relay/pkg/conversation"
	"veil-hq/relay/pkg/masking"
	"veil-hq/relay/pkg/prompt"
	"veil-hq/relay/pkg/providers"
	"veil-hq/relay/pkg/session"
	"veil-hq/relay/pkg/telemetry/metrics"
)

// fakeProvider scripts Generate responses for handler tests.
type fakeProvider struct {
	reply   *providers.Reply
	err     error
	healthy bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		reply: &providers.Reply{
			Text:  "hello!",
			Model: "test-model",
			Usage: providers.Usage{InputTokens: 10, OutputTokens: 3},
		},
		healthy: true,
	}
}

func (p *fakeProvider) Generate(context.Context, *providers.Request) (*providers.Reply, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.reply, nil
}

func (p *fakeProvider) HealthCheck(context.Context) error { return nil }
func (p *fakeProvider) Name() string                      { return "fake" }
func (p *fakeProvider) Kind() providers.Kind              { return providers.KindLocal }
func (p *fakeProvider) Model() string                     { return "test-model" }
func (p *fakeProvider) IsHealthy() bool                   { return p.healthy }
func (p *fakeProvider) Health() providers.Health          { return providers.Health{IsHealthy: p.healthy} }
func (p *fakeProvider) Close() error                      { return nil }

func newTestServer(t *testing.T, provider providers.Provider, collector *metrics.Collector) *Server {
	t.Helper()
	pipeline, err := masking.NewPipeline(nil, 0.5, true)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	service := conversation.New(
		pipeline,
		session.NewStore(session.DefaultMaxTurns),
		provider,
		prompt.NewStatic("be helpful"),
		nil, collector, nil,
		conversation.Config{Temperature: 0.7},
	)
	return New(config.ServerConfig{ShutdownTimeout: time.Second}, service, collector, "/metrics")
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return resp.Error
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)
	handler := srv.Handler()

	rec := postChat(t, handler, `{"user_message": "hi there"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a generated session_id")
	}
	if resp.Reply != "hello!" {
		t.Errorf("reply = %q, want %q", resp.Reply, "hello!")
	}
	if resp.Model != "test-model" {
		t.Errorf("model = %q, want %q", resp.Model, "test-model")
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v, want 10/3", resp.Usage)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestChatSessionContinuity(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)
	handler := srv.Handler()

	rec := postChat(t, handler, `{"user_message": "first"}`)
	var first chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	body, _ := json.Marshal(chatRequest{SessionID: first.SessionID, UserMessage: "second"})
	rec = postChat(t, handler, string(body))
	var second chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session_id changed: %q then %q", first.SessionID, second.SessionID)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/count", nil))
	var count map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&count); err != nil {
		t.Fatalf("decoding count: %v", err)
	}
	if count["count"] != 1 {
		t.Errorf("session count = %d, want 1", count["count"])
	}
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)
	handler := srv.Handler()

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"user_message": `, "invalid_request"},
		{"empty message", `{"user_message": ""}`, "validation"},
		{"message too long", `{"user_message": "` + strings.Repeat("a", 10001) + `"}`, "validation"},
		{"session id too long", `{"session_id": "` + strings.Repeat("s", 101) + `", "user_message": "hi"}`, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("error code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestChatProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"backend unreachable",
			&providers.ConnectionError{Provider: "fake", Cause: context.DeadlineExceeded},
			http.StatusBadGateway,
			"connection",
		},
		{
			"backend throttling",
			&providers.RateLimitError{Provider: "fake", RetryAfter: 30 * time.Second},
			http.StatusTooManyRequests,
			"rate_limit",
		},
		{
			"backend timeout",
			&providers.TimeoutError{Provider: "fake", Timeout: time.Minute},
			http.StatusGatewayTimeout,
			"timeout",
		},
		{
			"bad credentials",
			&providers.AuthError{Provider: "fake", Message: "invalid api key"},
			http.StatusBadGateway,
			"auth",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.err = tt.err
			srv := newTestServer(t, provider, nil)

			rec := postChat(t, srv.Handler(), `{"user_message": "hi"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", body.Code, tt.wantCode)
			}
			if strings.Contains(body.Message, "fake") {
				t.Errorf("provider detail leaked into client message: %q", body.Message)
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	provider := newFakeProvider()
	srv := newTestServer(t, provider, nil)
	handler := srv.Handler()

	t.Run("healthz reports status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var st conversation.Status
		if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
			t.Fatalf("decoding status: %v", err)
		}
		if st.Status != "healthy" {
			t.Errorf("status = %q, want healthy", st.Status)
		}
		if !st.PIIMaskingEnabled {
			t.Error("expected pii_masking_enabled true")
		}
	})

	t.Run("readyz degrades with provider", func(t *testing.T) {
		provider.healthy = false
		defer func() { provider.healthy = true }()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}

		// healthz keeps answering 200 so orchestrators see the process alive.
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("healthz status = %d, want 200", rec.Code)
		}
	})
}

func TestSessionReset(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)
	handler := srv.Handler()

	postChat(t, handler, `{"user_message": "one"}`)
	postChat(t, handler, `{"user_message": "two"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["cleared"] != 2 {
		t.Errorf("cleared = %d, want 2", resp["cleared"])
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/count", nil))
	var count map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&count); err != nil {
		t.Fatalf("decoding count: %v", err)
	}
	if count["count"] != 0 {
		t.Errorf("count after reset = %d, want 0", count["count"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	srv := newTestServer(t, newFakeProvider(), collector)
	handler := srv.Handler()

	postChat(t, handler, `{"user_message": "hi"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("relay_turns_total")) {
		t.Error("expected relay_turns_total in metrics output")
	}
}

func TestMetricsUnmountedWithoutCollector(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, newFakeProvider(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}
