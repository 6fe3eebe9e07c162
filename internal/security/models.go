// Package security owns the append-only security event log and the monitor
// that escalates events into admin alerts. Events are never mutated after
// write; statistics are derived read-side.
package security

import (
	"time"

	id "bankguard/pkg/domain"
)

// Severity ranks an event for alert routing. High and critical events fan
// out to admins.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alertable reports whether the severity triggers admin notification.
func (s Severity) Alertable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Action classifies what happened.
type Action string

const (
	ActionLoginFailed           Action = "login_failed"
	ActionLoginSucceeded        Action = "login_succeeded"
	ActionRateLimited           Action = "rate_limited"
	ActionVelocityExceeded      Action = "velocity_exceeded"
	ActionLimitExceeded         Action = "limit_exceeded"
	ActionSuspiciousTransaction Action = "suspicious_transaction"
	ActionSuspiciousPattern     Action = "suspicious_pattern"
	ActionSuspiciousSession     Action = "suspicious_session"
	ActionOTPIssued             Action = "otp_issued"
	ActionOTPVerified           Action = "otp_verified"
	ActionOTPFailed             Action = "otp_failed"
	ActionDeviceTrusted         Action = "device_trusted"
	ActionDeviceTrustRevoked    Action = "device_trust_revoked"
	ActionGateDecision          Action = "gate_decision"
)

// Metadata carries the structured details of an event. The typed fields
// cover what the monitor and reports query on; Extra holds anything else a
// producer wants retained.
type Metadata struct {
	Score       int               `json:"score,omitempty"`
	Amount      string            `json:"amount,omitempty"`
	Tier        string            `json:"tier,omitempty"`
	Location    string            `json:"location,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Event is one append-only security log record.
type Event struct {
	ID          id.EventID `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Severity    Severity   `json:"severity"`
	Action      Action     `json:"action"`
	ActorID     string     `json:"actor_id,omitempty"`
	EntityType  string     `json:"entity_type,omitempty"`
	EntityID    string     `json:"entity_id,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	Description string     `json:"description,omitempty"`
	Metadata    Metadata   `json:"metadata,omitzero"`
}

// Filter narrows event list queries. Zero fields match everything.
type Filter struct {
	ActorID    string
	Action     Action
	EntityType string
	EntityID   string
	From       time.Time
	To         time.Time
	Limit      int
}

// Stats is a read-side aggregation over a time range.
type Stats struct {
	Total    int            `json:"total"`
	ByAction map[Action]int `json:"by_action"`
	// ByDay keys are YYYY-MM-DD in the process timezone.
	ByDay map[string]int `json:"by_day"`
}
