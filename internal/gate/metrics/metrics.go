// Package metrics exposes Prometheus collectors for gate decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DecisionsTotal    *prometheus.CounterVec
	StepUpRequired    prometheus.Counter
	FailClosedTotal   prometheus.Counter
	EvaluationSeconds prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_gate_decisions_total",
			Help: "Gate decisions by outcome and the stage that produced them.",
		}, []string{"outcome", "stage"}),
		StepUpRequired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_gate_step_up_required_total",
			Help: "Evaluations that demanded OTP step-up.",
		}),
		FailClosedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_gate_fail_closed_total",
			Help: "Evaluations denied because a mandatory stage or the audit write failed.",
		}),
		EvaluationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankguard_gate_evaluation_duration_seconds",
			Help:    "End-to-end gate evaluation latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
