package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AssessmentsTotal     *prometheus.CounterVec
	SuspiciousTotal      prometheus.Counter
	RuleTriggersTotal    *prometheus.CounterVec
	RuleErrorsTotal      *prometheus.CounterVec
	PatternFindingsTotal *prometheus.CounterVec
	ScoreDistribution    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_fraud_assessments_total",
			Help: "Total number of fraud assessments by severity",
		}, []string{"severity"}),
		SuspiciousTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_fraud_suspicious_total",
			Help: "Total number of assessments at or above the suspicious threshold",
		}),
		RuleTriggersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_fraud_rule_triggers_total",
			Help: "Total number of rule triggers by rule name",
		}, []string{"rule"}),
		RuleErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_fraud_rule_errors_total",
			Help: "Total number of rule evaluation errors by rule name",
		}, []string{"rule"}),
		PatternFindingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_fraud_pattern_findings_total",
			Help: "Total number of behavioral pattern findings by pattern",
		}, []string{"pattern"}),
		ScoreDistribution: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankguard_fraud_score",
			Help:    "Distribution of fraud assessment scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}
