package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	AlertsTotal        prometheus.Counter
	AlertFailuresTotal prometheus.Counter
	EscalationsTotal   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_security_events_total",
			Help: "Total number of security events recorded by action and severity",
		}, []string{"action", "severity"}),
		AlertsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_security_admin_alerts_total",
			Help: "Total number of admin alert notifications created",
		}),
		AlertFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankguard_security_admin_alert_failures_total",
			Help: "Total number of admin alert deliveries that failed",
		}),
		EscalationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bankguard_security_escalations_total",
			Help: "Total number of severity escalations by trigger",
		}, []string{"trigger"}),
	}
}
