package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the API's prometheus collectors on a private registry so
// two handlers in one process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	operations *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, path, and status code.",
	}, []string{"method", "path", "code"})

	m.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "registry",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and path.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Engine operations by name and outcome.",
	}, []string{"op", "outcome"})

	m.registry.MustRegister(m.requests, m.durations, m.operations)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(method, path string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.durations.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) countOperation(op, outcome string) {
	m.operations.WithLabelValues(op, outcome).Inc()
}
