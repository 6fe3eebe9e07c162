package models

import "time"

// ActionClass selects which named rate limit configuration applies. The gate
// picks the class from the action category.
type ActionClass string

const (
	// ClassAuth: login and OTP endpoints - long window, low ceiling.
	ClassAuth ActionClass = "auth"
	// ClassTransaction: money-moving operations.
	ClassTransaction ActionClass = "transaction"
	// ClassSensitive: step-up issuance, trust changes, admin reads.
	ClassSensitive ActionClass = "sensitive"
	// ClassDefault: everything else.
	ClassDefault ActionClass = "default"
)

func (c ActionClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassTransaction, ClassSensitive, ClassDefault:
		return true
	}
	return false
}

// Result reports the outcome of one rate limit check. Remaining is clamped
// to zero externally even though the window keeps counting denied requests.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}
