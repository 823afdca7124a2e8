package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"idcard/internal/core"
)

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder counts and times registry operations.
type PrometheusRecorder struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusRecorder registers its collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_operations_total",
			Help: "Registry operations by outcome.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idcard_operation_duration_seconds",
			Help:    "Registry operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.ops, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	result := "ok"
	if !success {
		result = "error"
	}
	r.ops.WithLabelValues(operation, result).Inc()
	r.duration.WithLabelValues(operation).Observe(d.Seconds())
}
