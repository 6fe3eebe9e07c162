package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bankguard/internal/ledger"
	"bankguard/internal/notify"
	"bankguard/internal/platform/privacy"
	"bankguard/internal/security/metrics"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
)

const (
	// failedLoginWindow is the trailing window for login-failure escalation.
	failedLoginWindow = 15 * time.Minute

	// failedLoginHighAt and failedLoginCriticalAt are the attempt counts
	// (including the current one) at which severity escalates.
	failedLoginHighAt     = 4
	failedLoginCriticalAt = 9
)

// Monitor layers domain semantics on the raw event log: specialized trackers
// pick severities, and high or critical events fan out to admins.
type Monitor struct {
	store     Store
	publisher *Publisher
	admins    ledger.AdminDirectory
	notifier  notify.Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type MonitorOption func(*Monitor)

func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mx *metrics.Metrics) MonitorOption {
	return func(m *Monitor) {
		m.metrics = mx
	}
}

func WithNotifier(n notify.Notifier) MonitorOption {
	return func(m *Monitor) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMonitor(store Store, publisher *Publisher, admins ledger.AdminDirectory, opts ...MonitorOption) (*Monitor, error) {
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin directory is required")
	}

	m := &Monitor{
		store:     store,
		publisher: publisher,
		admins:    admins,
		notifier:  notify.NewLogNotifier(nil),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Record writes an event fire-and-forget. Nothing escalates from here; use
// TrackSecurityEvent when the severity should be able to alert.
func (m *Monitor) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	m.count(event)
	m.publisher.Emit(ctx, event)
}

// RecordSync writes an event and confirms the append. The gate's decision
// record uses this: a failed write must fail the caller, not vanish into a
// buffer.
func (m *Monitor) RecordSync(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	m.count(event)
	if err := m.publisher.EmitSync(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to write security event")
	}
	return nil
}

// TrackSecurityEvent writes the event and, for high or critical severity,
// alerts every active admin.
func (m *Monitor) TrackSecurityEvent(ctx context.Context, event Event) error {
	if err := m.RecordSync(ctx, event); err != nil {
		return err
	}
	if event.Severity.Alertable() {
		m.AlertAdmins(ctx, event)
	}
	return nil
}

// TrackFailedLogin records a login failure, escalating severity on the
// trailing-window attempt count. The current failure counts toward its own
// escalation, so the 4th rapid failure is already high.
func (m *Monitor) TrackFailedLogin(ctx context.Context, actorID, ipAddress, userAgent string) (Severity, error) {
	prior, err := m.store.CountByActorActionSince(ctx, actorID, ActionLoginFailed, m.now().Add(-failedLoginWindow))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to count login failures")
	}

	attempts := prior + 1
	severity := SeverityLow
	switch {
	case attempts >= failedLoginCriticalAt:
		severity = SeverityCritical
	case attempts >= failedLoginHighAt:
		severity = SeverityHigh
	}
	if severity != SeverityLow && m.metrics != nil {
		m.metrics.EscalationsTotal.WithLabelValues("failed_login").Inc()
	}

	event := Event{
		Severity:    severity,
		Action:      ActionLoginFailed,
		ActorID:     actorID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Description: fmt.Sprintf("failed login attempt %d within %d minutes", attempts, int(failedLoginWindow.Minutes())),
	}
	if err := m.TrackSecurityEvent(ctx, event); err != nil {
		return "", err
	}
	return severity, nil
}

// TrackSuspiciousTransaction records a flagged transaction with severity
// derived from the fraud score.
func (m *Monitor) TrackSuspiciousTransaction(ctx context.Context, actorID, transactionID string, score int, meta Metadata) error {
	severity := SeverityMedium
	switch {
	case score >= 75:
		severity = SeverityCritical
	case score >= 50:
		severity = SeverityHigh
	}
	if m.metrics != nil {
		m.metrics.EscalationsTotal.WithLabelValues("suspicious_transaction").Inc()
	}

	meta.Score = score
	event := Event{
		Severity:    severity,
		Action:      ActionSuspiciousTransaction,
		ActorID:     actorID,
		EntityType:  "transaction",
		EntityID:    transactionID,
		Description: fmt.Sprintf("transaction flagged with fraud score %d", score),
		Metadata:    meta,
	}
	return m.TrackSecurityEvent(ctx, event)
}

// TrackSuspiciousPattern records a cross-transaction behavioral finding
// against an account. Severity comes from the pattern detector.
func (m *Monitor) TrackSuspiciousPattern(ctx context.Context, actorID, accountID, pattern, description string, severity Severity) error {
	if m.metrics != nil {
		m.metrics.EscalationsTotal.WithLabelValues("suspicious_pattern").Inc()
	}

	event := Event{
		Severity:    severity,
		Action:      ActionSuspiciousPattern,
		ActorID:     actorID,
		EntityType:  "account",
		EntityID:    accountID,
		Description: description,
		Metadata:    Metadata{Extra: map[string]string{"pattern": pattern}},
	}
	return m.TrackSecurityEvent(ctx, event)
}

// AlertAdmins creates one notification per active admin. A delivery failure
// for one admin never stops delivery to the rest.
func (m *Monitor) AlertAdmins(ctx context.Context, event Event) {
	admins, err := m.admins.ListActiveAdmins(ctx)
	if err != nil {
		m.logger.Error("failed to list admins for security alert",
			"error", err,
			"action", event.Action,
		)
		return
	}

	subject := fmt.Sprintf("[%s] security alert: %s", event.Severity, event.Action)
	body := event.Description
	if body == "" {
		body = string(event.Action)
	}

	delivered := 0
	for _, admin := range admins {
		if err := m.notifier.SendEmail(ctx, admin.Email, subject, body); err != nil {
			if m.metrics != nil {
				m.metrics.AlertFailuresTotal.Inc()
			}
			m.logger.Error("failed to alert admin",
				"error", err,
				"admin_email", privacy.MaskEmail(admin.Email),
				"action", event.Action,
			)
			continue
		}
		delivered++
		if m.metrics != nil {
			m.metrics.AlertsTotal.Inc()
		}
	}

	m.logAudit(ctx, "admins_alerted",
		"action", event.Action,
		"severity", event.Severity,
		"admins_total", len(admins),
		"delivered", delivered,
	)
}

// List exposes filtered event reads for the admin surface.
func (m *Monitor) List(ctx context.Context, filter Filter) ([]Event, error) {
	events, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to list security events")
	}
	return events, nil
}

// Stats exposes read-side aggregation for the admin surface.
func (m *Monitor) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	stats, err := m.store.Stats(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to aggregate security events")
	}
	return stats, nil
}

func (m *Monitor) count(event Event) {
	if m.metrics != nil {
		m.metrics.EventsTotal.WithLabelValues(string(event.Action), string(event.Severity)).Inc()
	}
}

func (m *Monitor) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	m.logger.InfoContext(ctx, event, args...)
}
