package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitChecksTotal            *prometheus.CounterVec
	RateLimitDeniedTotal            *prometheus.CounterVec
	RateLimitCleanupRunsTotal       *prometheus.CounterVec
	RateLimitCleanupWindowsPurged   prometheus.Counter
	RateLimitCleanupDurationSeconds prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RateLimitChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_ratelimit_checks_total",
			Help: "Total number of rate limit checks by action class",
		}, []string{"class"}),
		RateLimitDeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_ratelimit_denied_total",
			Help: "Total number of denied rate limit checks by action class",
		}, []string{"class"}),
		RateLimitCleanupRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_ratelimit_cleanup_runs_total",
			Help: "Total number of window cleanup runs",
		}, []string{"status"}),
		RateLimitCleanupWindowsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_ratelimit_cleanup_windows_purged_total",
			Help: "Total number of expired windows purged by the cleanup worker",
		}),
		RateLimitCleanupDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "bankguard_ratelimit_cleanup_duration_seconds",
			Help: "Duration of window cleanup runs in seconds",
		}),
	}
}

func (m *Metrics) IncrementChecks(class string) {
	m.RateLimitChecksTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementDenied(class string) {
	m.RateLimitDeniedTotal.WithLabelValues(class).Inc()
}
