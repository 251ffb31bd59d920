// Package metrics exposes the relay's Prometheus metrics: turn outcomes
// and latency, token throughput, masking activity, session population,
// and provider error codes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Collector owns every metric instrument and the registry they live in.
// All Record methods are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	turnsTotal     *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	turnTokens     *prometheus.CounterVec
	maskedEntities *prometheus.CounterVec
	activeSessions prometheus.Gauge
	providerErrors *prometheus.CounterVec
}

// NewCollector builds a collector on the given registry. A nil registry
// gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns processed, by outcome.",
		}, []string{"provider", "model", "status"}),

		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency including generation.",
			// LLM latencies run from sub-second to tens of seconds.
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		}, []string{"provider", "model"}),

		turnTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_tokens_total",
			Help:      "Tokens consumed and produced, by direction.",
		}, []string{"type"}),

		maskedEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "masked_entities_total",
			Help:      "PII entities masked before leaving the relay.",
		}, []string{"entity_type"}),

		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),

		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider failures, by error classification.",
		}, []string{"provider", "code"}),
	}

	registry.MustRegister(
		c.turnsTotal,
		c.turnDuration,
		c.turnTokens,
		c.maskedEntities,
		c.activeSessions,
		c.providerErrors,
	)
	return c
}

// RecordTurn records a completed or failed conversation turn.
func (c *Collector) RecordTurn(provider, model, status string, duration time.Duration) {
	c.turnsTotal.WithLabelValues(provider, model, status).Inc()
	c.turnDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordTokens records token usage for one turn.
func (c *Collector) RecordTokens(input, output int) {
	if input > 0 {
		c.turnTokens.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		c.turnTokens.WithLabelValues("output").Add(float64(output))
	}
}

// RecordMaskedEntity counts one masked span of the given entity type.
func (c *Collector) RecordMaskedEntity(entityType string) {
	c.maskedEntities.WithLabelValues(entityType).Inc()
}

// SetActiveSessions updates the session population gauge.
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// RecordProviderError counts a provider failure by classification.
func (c *Collector) RecordProviderError(provider, code string) {
	c.providerErrors.WithLabelValues(provider, code).Inc()
}

// Handler returns the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional registration.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
