// Package obsmetrics exposes the server's backpressure and
// rate-limit instrumentation as Prometheus collectors, built the way
// fyrsmithlabs-contextd's pkg/prefetch/metrics.go defines a Metrics
// struct of promauto-registered collectors behind a sync.Once guard
// to avoid "duplicate metrics collector registration" panics if New
// is ever called more than once in a process.
package obsmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global     *Metrics
	globalOnce sync.Once
)

// Metrics holds the collectors SPEC_FULL.md's backpressure and
// rate-limit requirements call for: in-flight request concurrency,
// 429 rejections, and session table occupancy.
type Metrics struct {
	// RequestsInFlight is the current number of concurrently dispatched
	// requests, labeled by transport ("http" or "stdio").
	RequestsInFlight *prometheus.GaugeVec

	// RateLimitRejectionsTotal counts requests rejected with HTTP 429
	// for exceeding the per-session or global concurrency limit.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// SessionTableSize is the current number of live sessions.
	SessionTableSize prometheus.Gauge

	// SessionTableFullTotal counts session creations refused because
	// the table was at capacity.
	SessionTableFullTotal prometheus.Counter
}

// New constructs and registers the collectors against the default
// Prometheus registry. Safe to call more than once; subsequent calls
// return the first-constructed instance.
func New() *Metrics {
	globalOnce.Do(func() {
		global = &Metrics{
			RequestsInFlight: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "mcp_runtime_requests_in_flight",
					Help: "Current number of concurrently dispatched MCP requests.",
				},
				[]string{"transport"},
			),
			RateLimitRejectionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mcp_runtime_rate_limit_rejections_total",
					Help: "Total number of requests rejected for exceeding a concurrency limit.",
				},
				[]string{"transport"},
			),
			SessionTableSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "mcp_runtime_session_table_size",
					Help: "Current number of live sessions.",
				},
			),
			SessionTableFullTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "mcp_runtime_session_table_full_total",
					Help: "Total number of session creations refused because the table was full.",
				},
			),
		}
	})
	return global
}

// RecordRequestStart increments the in-flight gauge for transport and
// returns a func that decrements it when the request completes.
func (m *Metrics) RecordRequestStart(transport string) func() {
	g := m.RequestsInFlight.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}

// RecordRateLimitRejection increments the 429 counter for transport.
func (m *Metrics) RecordRateLimitRejection(transport string) {
	m.RateLimitRejectionsTotal.WithLabelValues(transport).Inc()
}

// SetSessionTableSize updates the session table occupancy gauge.
func (m *Metrics) SetSessionTableSize(size int) {
	m.SessionTableSize.Set(float64(size))
}

// RecordSessionTableFull increments the table-full counter.
func (m *Metrics) RecordSessionTableFull() {
	m.SessionTableFullTotal.Inc()
}
