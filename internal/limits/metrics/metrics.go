package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LimitChecksTotal    *prometheus.CounterVec
	LimitDeniedTotal    *prometheus.CounterVec
	VelocityChecksTotal prometheus.Counter
	VelocityDeniedTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		LimitChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_limits_checks_total",
			Help: "Total number of spend limit checks by transaction type",
		}, []string{"type"}),
		LimitDeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_limits_denied_total",
			Help: "Total number of denied spend limit checks by ceiling",
		}, []string{"ceiling"}),
		VelocityChecksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_velocity_checks_total",
			Help: "Total number of transaction velocity checks",
		}),
		VelocityDeniedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_velocity_denied_total",
			Help: "Total number of denied transaction velocity checks",
		}),
	}
}

func (m *Metrics) IncrementLimitChecks(txType string) {
	m.LimitChecksTotal.WithLabelValues(txType).Inc()
}

func (m *Metrics) IncrementLimitDenied(ceiling string) {
	m.LimitDeniedTotal.WithLabelValues(ceiling).Inc()
}
