package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts bearer rejections and rate-limited requests. A nil *Metrics is a no-op.
type Metrics struct {
	rejects     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

// NewMetrics registers the auth API collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rejects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "authapi",
			Name:      "bearer_rejected_total",
			Help:      "Bearer credentials that did not yield a principal, by reason.",
		}, []string{"reason"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "authapi",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP limiter, by endpoint.",
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) bearerRejected(reason string) {
	if m != nil {
		m.rejects.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) limited(endpoint string) {
	if m != nil {
		m.rateLimited.WithLabelValues(endpoint).Inc()
	}
}
