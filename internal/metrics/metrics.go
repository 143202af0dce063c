// Package metrics provides Prometheus metrics for the sync loop, detection,
// alerting and HTTP layers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects and exposes service metrics on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Sync metrics
	SyncRuns       *prometheus.CounterVec
	SyncDuration   *prometheus.HistogramVec
	QuotesIngested *prometheus.CounterVec

	// Detection metrics
	OpportunitiesDetected *prometheus.CounterVec
	OpportunityProfit     prometheus.Histogram
	ActiveOpportunities   prometheus.Gauge

	// Alert metrics
	AlertsSent       *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	StreamClients prometheus.Gauge
}

// New creates a metrics collector with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsradar_sync_runs_total",
				Help: "Total number of provider sync runs",
			},
			[]string{"provider", "status"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oddsradar_sync_duration_seconds",
				Help:    "Duration of a full sync cycle",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"source"},
		),
		QuotesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsradar_quotes_ingested_total",
				Help: "Odds snapshots stored per provider",
			},
			[]string{"provider"},
		),

		OpportunitiesDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsradar_opportunities_detected_total",
				Help: "Arbitrage opportunities detected",
			},
			[]string{"grade"},
		),
		OpportunityProfit: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oddsradar_opportunity_profit_percentage",
				Help:    "Profit percentage of detected opportunities",
				Buckets: []float64{0.01, 0.015, 0.02, 0.03, 0.05, 0.075, 0.1, 0.2},
			},
		),
		ActiveOpportunities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oddsradar_active_opportunities",
				Help: "Opportunities currently in the active state",
			},
		),

		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsradar_alerts_total",
				Help: "Alert deliveries by channel and result",
			},
			[]string{"channel", "status"},
		),
		AlertsSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsradar_alerts_suppressed_total",
				Help: "Opportunities not alerted, by filter reason",
			},
			[]string{"reason"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsradar_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oddsradar_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		StreamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oddsradar_stream_clients",
				Help: "Connected websocket clients",
			},
		),
	}

	registry.MustRegister(
		m.SyncRuns,
		m.SyncDuration,
		m.QuotesIngested,
		m.OpportunitiesDetected,
		m.OpportunityProfit,
		m.ActiveOpportunities,
		m.AlertsSent,
		m.AlertsSuppressed,
		m.HTTPRequests,
		m.HTTPDuration,
		m.StreamClients,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSync records the outcome of one provider fetch.
func (m *Metrics) RecordSync(provider string, success bool, quotes int) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.SyncRuns.WithLabelValues(provider, status).Inc()
	if quotes > 0 {
		m.QuotesIngested.WithLabelValues(provider).Add(float64(quotes))
	}
}

// ObserveSyncDuration records the duration of a sync cycle.
func (m *Metrics) ObserveSyncDuration(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordOpportunity records a detected opportunity.
func (m *Metrics) RecordOpportunity(grade string, profitPct float64) {
	if m == nil {
		return
	}
	m.OpportunitiesDetected.WithLabelValues(grade).Inc()
	m.OpportunityProfit.Observe(profitPct)
}

// SetActiveOpportunities sets the active opportunity gauge.
func (m *Metrics) SetActiveOpportunities(n int) {
	if m == nil {
		return
	}
	m.ActiveOpportunities.Set(float64(n))
}

// RecordAlert records one channel delivery.
func (m *Metrics) RecordAlert(channel string, success bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !success {
		status = "failed"
	}
	m.AlertsSent.WithLabelValues(channel, status).Inc()
}

// RecordAlertSuppressed records an opportunity dropped by an alert filter.
func (m *Metrics) RecordAlertSuppressed(reason string) {
	if m == nil {
		return
	}
	m.AlertsSuppressed.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StreamClientConnected adjusts the websocket client gauge by delta.
func (m *Metrics) StreamClientConnected(delta int) {
	if m == nil {
		return
	}
	m.StreamClients.Add(float64(delta))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
