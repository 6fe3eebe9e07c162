package models

import (
	"time"

	id "bankguard/pkg/domain"
)

// IdleRetention is how long an unused device stays registered before the
// purge worker drops it.
const IdleRetention = 90 * 24 * time.Hour

// Device is one (user, fingerprint) registration. Trust is never granted by
// repeated use; only an explicit Trust call sets Trusted.
type Device struct {
	ID          id.DeviceID `json:"id"`
	UserID      id.UserID   `json:"user_id"`
	Fingerprint string      `json:"fingerprint"`
	Name        string      `json:"name"`
	IPAddress   string      `json:"ip_address"`
	Trusted     bool        `json:"trusted"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUsedAt  time.Time   `json:"last_used_at"`
}

// Session is one observed login session, kept for behavioral heuristics.
type Session struct {
	UserID    id.UserID
	IPAddress string
	Location  string
	CreatedAt time.Time
}

// SuspicionReason labels why a session looked suspicious.
type SuspicionReason string

const (
	ReasonMultipleLocations SuspicionReason = "multiple_locations"
	ReasonRapidNewSessions  SuspicionReason = "rapid_new_sessions"
	ReasonUnseenIP          SuspicionReason = "unseen_ip"
)

// SessionFlag is one triggered suspicious-session heuristic.
type SessionFlag struct {
	Reason SuspicionReason `json:"reason"`
	Detail string          `json:"detail"`
}
