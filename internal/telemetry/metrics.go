package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay gateway.
type Metrics struct {
	DispatchTotal      *prometheus.CounterVec
	DispatchDurationMs *prometheus.HistogramVec
	AttemptTotal       *prometheus.CounterVec
	ExhaustedTotal     *prometheus.CounterVec
	RateLimitHitTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		DispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_dispatch_total",
			Help: "Provider dispatches by route, provider and final status.",
		}, []string{"route", "provider", "status"}),

		DispatchDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_dispatch_duration_ms",
			Help:    "Time spent on one provider including its retries, in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"route", "provider"}),

		AttemptTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_attempt_total",
			Help: "Individual upstream attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),

		ExhaustedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_chain_exhausted_total",
			Help: "Requests for which every provider in the chain failed.",
		}, []string{"route"}),

		RateLimitHitTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_ratelimit_hit_total",
			Help: "Requests rejected by the inbound rate limiter.",
		}, []string{"dimension"}),
	}
}

// RecordDispatch records the final outcome of one provider in a chain.
func (m *Metrics) RecordDispatch(route, provider, status string, durationMs float64) {
	m.DispatchTotal.WithLabelValues(route, provider, status).Inc()
	m.DispatchDurationMs.WithLabelValues(route, provider).Observe(durationMs)
}

// RecordAttempt records a single upstream attempt.
func (m *Metrics) RecordAttempt(provider, outcome string) {
	m.AttemptTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordExhausted records a request that ran out of providers.
func (m *Metrics) RecordExhausted(route string) {
	m.ExhaustedTotal.WithLabelValues(route).Inc()
}

// RecordRateLimitHit records an inbound request rejected by rate limiting.
func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}
