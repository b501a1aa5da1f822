package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	guardOutcomes *prometheus.CounterVec
	pollerTicks   *prometheus.CounterVec
	alerts        prometheus.Counter
	acks          *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests served by the portal.",
		}, []string{"method", "status"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_errors_total",
			Help: "HTTP errors by domain error code.",
		}, []string{"method", "code"}),
		guardOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_guard_outcomes_total",
			Help: "Session guard evaluations by area and final state.",
		}, []string{"area", "state"}),
		pollerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_poller_ticks_total",
			Help: "Notification poller ticks by result.",
		}, []string{"result"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_alerts_emitted_total",
			Help: "Notifications surfaced as alerts.",
		}),
		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_notification_acks_total",
			Help: "Mark-read acknowledgements by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.requests, m.requestTime, m.errors, m.guardOutcomes, m.pollerTicks, m.alerts, m.acks)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestTime.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, code).Inc()
}

// RecordGuardOutcome counts a finished guard evaluation.
func (m *Metrics) RecordGuardOutcome(area, state string) {
	if m == nil {
		return
	}
	m.guardOutcomes.WithLabelValues(area, state).Inc()
}

// RecordTick counts a poller tick; result is one of ok, skipped, failed.
func (m *Metrics) RecordTick(result string) {
	if m == nil {
		return
	}
	m.pollerTicks.WithLabelValues(result).Inc()
}

// RecordAlert counts an alert surfaced to a viewer.
func (m *Metrics) RecordAlert() {
	if m == nil {
		return
	}
	m.alerts.Inc()
}

// RecordAck counts a mark-read acknowledgement.
func (m *Metrics) RecordAck(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.acks.WithLabelValues(result).Inc()
}
