// Package metrics owns the Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement results.
const (
	SettlementCompleted = "completed"
	SettlementRejected  = "rejected"
	SettlementFailed    = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	settlements    *prometheus.CounterVec
	securityAlerts *prometheus.CounterVec
	logins         *prometheus.CounterVec
	rateLimited    prometheus.Counter
	httpDuration   *prometheus.HistogramVec
}

// New registers every collector on a private registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thrift_settlements_total",
			Help: "Order confirmations by result.",
		}, []string{"result"}),
		securityAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thrift_security_alerts_total",
			Help: "Security-class audit events by action.",
		}, []string{"kind"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thrift_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thrift_rate_limited_total",
			Help: "API requests refused by the per-IP rate limit.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thrift_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.settlements, m.securityAlerts, m.logins, m.rateLimited, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// The methods below accept a nil receiver so callers can run without metrics.

func (m *Metrics) Settlement(result string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(result).Inc()
}

func (m *Metrics) SecurityAlert(kind string) {
	if m == nil {
		return
	}
	m.securityAlerts.WithLabelValues(kind).Inc()
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
