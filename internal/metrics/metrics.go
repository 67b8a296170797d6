// Package metrics provides Prometheus metrics for the serving mode:
// classification throughput, per-call latency, and WebSocket session
// counts, exposed on the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the classification server.
type Metrics struct {
	ClassificationsTotal prometheus.Counter   // Total head evaluations performed
	ClassificationErrors prometheus.Counter   // Total failed head evaluations
	HeadLatency          prometheus.Histogram // Per-head evaluation latency in seconds
	RequestsTotal        prometheus.Counter   // Total HTTP classification requests
	WSConnections        prometheus.Gauge     // Currently open WebSocket sessions
	BundlesLoaded        prometheus.Gauge     // Number of loaded model bundles
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing without touching the global registry).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ClassificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Total number of head evaluations performed",
		}),
		ClassificationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "classification_errors_total",
			Help: "Total number of failed head evaluations",
		}),
		HeadLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "head_latency_seconds",
			Help:    "Per-head evaluation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		RequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "classify_requests_total",
			Help: "Total number of HTTP classification requests",
		}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Currently open WebSocket sessions",
		}),
		BundlesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bundles_loaded",
			Help: "Number of loaded model bundles",
		}),
	}
}

// ClassificationsInc implements the engine metrics sink.
func (m *Metrics) ClassificationsInc() { m.ClassificationsTotal.Inc() }

// ClassificationErrorsInc implements the engine metrics sink.
func (m *Metrics) ClassificationErrorsInc() { m.ClassificationErrors.Inc() }

// HeadLatencyObserve implements the engine metrics sink.
func (m *Metrics) HeadLatencyObserve(seconds float64) { m.HeadLatency.Observe(seconds) }
