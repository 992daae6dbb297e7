package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes per-path recommendation instrumentation.
type Metrics struct {
	requests     prometheus.Counter
	pathDuration *prometheus.HistogramVec
	pathFailures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounter(prometheus.CounterOpts{
			Name: "readnext_recommendation_requests_total",
			Help: "Total recommendation requests served.",
		}),
		pathDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readnext_recall_path_duration_seconds",
			Help:    "Latency of each recall path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		pathFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "readnext_recall_path_failures_total",
			Help: "Recall path executions that produced no result.",
		}, []string{"path"}),
	}
}

func (m *Metrics) ObserveRequest() {
	if m == nil {
		return
	}
	m.requests.Inc()
}

func (m *Metrics) ObservePath(path string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.pathDuration.WithLabelValues(path).Observe(d.Seconds())
	if err != nil {
		m.pathFailures.WithLabelValues(path).Inc()
	}
}
