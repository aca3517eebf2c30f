package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records backend call outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
	revokes prometheus.Counter
	sweeps  prometheus.Counter
}

// NewMetrics registers the refresh store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "refresh_store",
			Name:      "operations_total",
			Help:      "Refresh store backend calls by operation and result.",
		}, []string{"op", "result"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authgate",
			Subsystem: "refresh_store",
			Name:      "operation_duration_seconds",
			Help:      "Refresh store backend call latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		revokes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "refresh_store",
			Name:      "revoked_handles_total",
			Help:      "Handles removed by per-user deletion.",
		}),
		sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "refresh_store",
			Name:      "swept_handles_total",
			Help:      "Expired handles removed by the sweeper.",
		}),
	}
}

func (m *Metrics) observe(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) revoked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revokes.Add(float64(n))
}

func (m *Metrics) swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweeps.Add(float64(n))
}
