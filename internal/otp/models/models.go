package models

import (
	"time"

	id "bankguard/pkg/domain"
)

const (
	// CodeLength is the number of digits in a generated code.
	CodeLength = 6

	// CodeTTL is the fixed lifetime of a code from issuance.
	CodeTTL = 10 * time.Minute

	// MaxAttempts is the verify-attempt cap per issued code.
	MaxAttempts = 3

	// ResendCooldown is the minimum gap between issuances for one
	// (user, purpose) pair. A business rule, separate from the network
	// rate limiter.
	ResendCooldown = 60 * time.Second
)

// Purpose scopes a code to the operation it protects. A code issued for one
// purpose never verifies another.
type Purpose string

const (
	PurposeTransaction       Purpose = "transaction"
	PurposeTwoFactor         Purpose = "2fa"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeTransaction, PurposeTwoFactor, PurposePasswordReset, PurposeEmailVerification:
		return true
	}
	return false
}

// Channel selects the delivery transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Code is one issued one-time password. Only the bcrypt hash is stored; the
// cleartext exists in memory just long enough to deliver. Used covers every
// terminal state: consumed by a successful verify, voided by expiry or
// attempt exhaustion, or superseded by a newer issuance.
type Code struct {
	ID        id.CodeID
	UserID    id.UserID
	Purpose   Purpose
	Channel   Channel
	CodeHash  string
	Attempts  int
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the code is past its lifetime at the given instant.
func (c *Code) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IssueResult reports a successful issuance. Code is the cleartext; callers
// hand it to delivery and must not persist it.
type IssueResult struct {
	CodeID    id.CodeID
	Code      string
	Channel   Channel
	ExpiresAt time.Time
}

// VerifyResult reports a verification outcome. Reason is user-presentable.
// On success, Assertion carries a signed short-lived step-up token the gate
// accepts as proof of verification.
type VerifyResult struct {
	Valid              bool      `json:"valid"`
	Reason             string    `json:"reason,omitempty"`
	AttemptsRemaining  int       `json:"attempts_remaining,omitempty"`
	Assertion          string    `json:"assertion,omitempty"`
	AssertionExpiresAt time.Time `json:"assertion_expires_at,omitzero"`
}
