package ledger

import (
	"context"
	"time"

	id "bankguard/pkg/domain"
)

// Error Contract:
// All store methods follow this pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// TransactionStore is the read port over ledger transaction history.
type TransactionStore interface {
	// ListByAccountSince returns transactions for the account created at or
	// after since, newest first.
	ListByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) ([]Transaction, error)

	// ListByAccountTypeSince narrows ListByAccountSince to one transaction type.
	ListByAccountTypeSince(ctx context.Context, accountID id.AccountID, txType TransactionType, since time.Time) ([]Transaction, error)

	// CountByAccountSince returns how many transactions the account created
	// at or after since.
	CountByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) (int, error)
}

// AccountStore is the read port over account metadata.
type AccountStore interface {
	Get(ctx context.Context, accountID id.AccountID) (*Account, error)
}

// AdminDirectory lists operators that receive high-severity alerts.
type AdminDirectory interface {
	ListActiveAdmins(ctx context.Context) ([]Admin, error)
}
