package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is safe to use so
// tests can construct services without a registry.
type Metrics struct {
	OrdersPlaced     prometheus.Counter
	OrderTransitions *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPLatencyMS    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders placed.",
		}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Total number of order status transitions.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "status"}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cafe",
			Subsystem: "api",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method"}),
	}
	reg.MustRegister(m.OrdersPlaced, m.OrderTransitions, m.HTTPRequests, m.HTTPLatencyMS)
	return m
}

func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
}

func (m *Metrics) OrderTransitioned(status string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(status).Inc()
}

// Handler exposes the default registry, which New registers into when
// passed prometheus.DefaultRegisterer.
func Handler() http.Handler {
	return promhttp.Handler()
}
