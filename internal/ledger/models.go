// Package ledger exposes read-only views of the banking ledger: transaction
// history and account metadata. The ledger itself is owned by an external
// system; this package only defines the ports the risk pipeline consumes and
// the reference implementations used in tests and dev mode.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	id "bankguard/pkg/domain"
)

// TransactionType categorizes money movement.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeTransfer   TransactionType = "transfer"
	TypePayment    TransactionType = "payment"
	TypeWire       TransactionType = "wire"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer, TypePayment, TypeWire:
		return true
	}
	return false
}

// Outbound reports whether the type moves money out of the account.
func (t TransactionType) Outbound() bool {
	switch t {
	case TypeWithdrawal, TypeTransfer, TypePayment, TypeWire:
		return true
	}
	return false
}

// TransactionStatus is the ledger-side lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is a read-only ledger record. The risk pipeline never mutates
// these; they are the source of truth for all aggregation queries.
type Transaction struct {
	ID        string
	AccountID id.AccountID
	Type      TransactionType
	Amount    decimal.Decimal
	Location  string
	CreatedAt time.Time
	Status    TransactionStatus
}

// Tier identifies an account's limit profile.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierPremium  Tier = "premium"
	TierBusiness Tier = "business"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierBasic, TierPremium, TierBusiness:
		return true
	}
	return false
}

// Account is the account metadata the pipeline needs: tier, age, balance and
// the failed-login counter maintained by the auth layer.
type Account struct {
	ID             id.AccountID
	UserID         id.UserID
	Tier           Tier
	Balance        decimal.Decimal
	OpenedAt       time.Time
	FailedLogins   int
	FailedLoginsAt time.Time
	Active         bool
}

// Age returns how long the account has existed as of now.
func (a *Account) Age(now time.Time) time.Duration {
	return now.Sub(a.OpenedAt)
}

// Admin is a minimal operator identity used for alert fan-out.
type Admin struct {
	UserID id.UserID
	Email  string
	Active bool
}
