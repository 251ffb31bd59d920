package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTurn(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordTurn("local-ollama", "llama3.1:8b", "completed", 800*time.Millisecond)
	c.RecordTurn("local-ollama", "llama3.1:8b", "completed", 1200*time.Millisecond)
	c.RecordTurn("local-ollama", "llama3.1:8b", "failed", 100*time.Millisecond)

	completed := testutil.ToFloat64(c.turnsTotal.WithLabelValues("local-ollama", "llama3.1:8b", "completed"))
	if completed != 2 {
		t.Errorf("completed turns = %v, want 2", completed)
	}
	failed := testutil.ToFloat64(c.turnsTotal.WithLabelValues("local-ollama", "llama3.1:8b", "failed"))
	if failed != 1 {
		t.Errorf("failed turns = %v, want 1", failed)
	}
}

func TestRecordTokens(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordTokens(120, 40)
	c.RecordTokens(80, 0)

	if got := testutil.ToFloat64(c.turnTokens.WithLabelValues("input")); got != 200 {
		t.Errorf("input tokens = %v, want 200", got)
	}
	if got := testutil.ToFloat64(c.turnTokens.WithLabelValues("output")); got != 40 {
		t.Errorf("output tokens = %v, want 40", got)
	}
}

func TestRecordMaskedEntity(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordMaskedEntity("EMAIL_ADDRESS")
	c.RecordMaskedEntity("EMAIL_ADDRESS")
	c.RecordMaskedEntity("US_SSN")

	if got := testutil.ToFloat64(c.maskedEntities.WithLabelValues("EMAIL_ADDRESS")); got != 2 {
		t.Errorf("EMAIL_ADDRESS = %v, want 2", got)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.SetActiveSessions(7)
	if got := testutil.ToFloat64(c.activeSessions); got != 7 {
		t.Errorf("active sessions = %v, want 7", got)
	}
	c.SetActiveSessions(0)
	if got := testutil.ToFloat64(c.activeSessions); got != 0 {
		t.Errorf("active sessions = %v, want 0", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordTurn("azure-gpt4", "gpt-4o", "completed", time.Second)
	c.RecordProviderError("azure-gpt4", "rate_limit")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, metric := range []string{"relay_turns_total", "relay_turn_duration_seconds", "relay_provider_errors_total"} {
		if !strings.Contains(body, metric) {
			t.Errorf("scrape output missing %s", metric)
		}
	}
}
