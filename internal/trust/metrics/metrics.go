package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DevicesRegisteredTotal prometheus.Counter
	DevicesTouchedTotal    prometheus.Counter
	TrustChangesTotal      *prometheus.CounterVec
	SessionFlagsTotal      *prometheus.CounterVec
	PurgeRunsTotal         *prometheus.CounterVec
	PurgeDeletedTotal      prometheus.Counter
	PurgeDurationSeconds   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		DevicesRegisteredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_trust_devices_registered_total",
			Help: "Total number of new device registrations",
		}),
		DevicesTouchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_trust_devices_touched_total",
			Help: "Total number of repeat sightings of known devices",
		}),
		TrustChangesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_trust_changes_total",
			Help: "Total number of explicit trust grants and revocations",
		}, []string{"action"}),
		SessionFlagsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_trust_session_flags_total",
			Help: "Total number of suspicious-session flags by reason",
		}, []string{"reason"}),
		PurgeRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_trust_purge_runs_total",
			Help: "Total number of idle-device purge runs",
		}, []string{"status"}),
		PurgeDeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_trust_purge_deleted_total",
			Help: "Total number of idle devices purged",
		}),
		PurgeDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "bankguard_trust_purge_duration_seconds",
			Help: "Duration of idle-device purge runs in seconds",
		}),
	}
}
