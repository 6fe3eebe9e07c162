package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	IssuedTotal            *prometheus.CounterVec
	VerifiedTotal          *prometheus.CounterVec
	ResendThrottledTotal   prometheus.Counter
	DeliveryFailuresTotal  *prometheus.CounterVec
	CleanupRunsTotal       *prometheus.CounterVec
	CleanupDeletedTotal    prometheus.Counter
	CleanupDurationSeconds prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		IssuedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_otp_issued_total",
			Help: "Total number of OTP codes issued by purpose",
		}, []string{"purpose"}),
		VerifiedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_otp_verified_total",
			Help: "Total number of OTP verify calls by outcome",
		}, []string{"outcome"}),
		ResendThrottledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_otp_resend_throttled_total",
			Help: "Total number of issuances rejected by the resend cooldown",
		}),
		DeliveryFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_otp_delivery_failures_total",
			Help: "Total number of OTP delivery failures by channel",
		}, []string{"channel"}),
		CleanupRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_otp_cleanup_runs_total",
			Help: "Total number of expired-code cleanup runs",
		}, []string{"status"}),
		CleanupDeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_otp_cleanup_deleted_total",
			Help: "Total number of expired codes deleted by the cleanup worker",
		}),
		CleanupDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "bankguard_otp_cleanup_duration_seconds",
			Help: "Duration of expired-code cleanup runs in seconds",
		}),
	}
}
