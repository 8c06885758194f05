package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the broker.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	EntitiesCreated prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hiascdi_requests_total",
			Help: "Total HTTP requests handled, by method and status code",
		}, []string{"method", "code"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hiascdi_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		EntitiesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hiascdi_entities_created_total",
			Help: "Total number of context entities created",
		}),
	}
}

// IncrementEntitiesCreated increments the entities created counter by 1.
func (m *Metrics) IncrementEntitiesCreated() {
	if m != nil {
		m.EntitiesCreated.Inc()
	}
}
