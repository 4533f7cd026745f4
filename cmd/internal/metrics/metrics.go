// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors registered for one service instance.
type Metrics struct {
	registry *prometheus.Registry

	transfersTotal   *prometheus.CounterVec
	transferDuration prometheus.Histogram
	sessionsTotal    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New creates a fresh registry with the standard Go and process
// collectors plus the service's own.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		transfersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Transfer attempts by outcome.",
		}, []string{"outcome"}),
		transferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tally",
			Subsystem: "ledger",
			Name:      "transfer_duration_seconds",
			Help:      "Wall time of transfer execution, including lock waits.",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "status_class"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveTransfer records one transfer attempt. outcome is "ok" or a
// rejection/failure label.
func (m *Metrics) ObserveTransfer(outcome string, elapsed time.Duration) {
	m.transfersTotal.WithLabelValues(outcome).Inc()
	m.transferDuration.Observe(elapsed.Seconds())
}

// ObserveSession records one session operation, e.g. ("rotate", "ok").
func (m *Metrics) ObserveSession(operation, outcome string) {
	m.sessionsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, statusClass string) {
	m.httpRequests.WithLabelValues(method, statusClass).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
