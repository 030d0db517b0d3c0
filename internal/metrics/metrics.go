package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "session_auth"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	Outcomes        *prometheus.CounterVec
	ReuseDetections prometheus.Counter
	Deliveries      *prometheus.CounterVec
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_outcomes_total",
				Help:      "Auth operations by outcome code.",
			},
			[]string{"operation", "code"},
		),
		ReuseDetections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_reuse_detections_total",
				Help:      "Refresh token reuses that revoked a session family.",
			},
		),
		Deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "email_deliveries_total",
				Help:      "Challenge code deliveries by purpose and result.",
			},
			[]string{"purpose", "result"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	registry.MustRegister(m.Outcomes, m.ReuseDetections, m.Deliveries, m.RequestCount, m.RequestDuration)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOutcome counts one operation result; code is "OK" on success.
func (m *Metrics) ObserveOutcome(operation, code string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveReuse() {
	if m == nil {
		return
	}
	m.ReuseDetections.Inc()
}

func (m *Metrics) ObserveDelivery(purpose string, delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.Deliveries.WithLabelValues(purpose, result).Inc()
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.RequestCount.WithLabelValues(method, path, code).Inc()
	m.RequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}
