package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
)

// PostgresStore reads ledger data from the shared Postgres database. The
// pipeline has read-only access to these tables; writes belong to the ledger
// system.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed ledger view.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) ([]Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, location, created_at, status
		FROM transactions
		WHERE account_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`
	return s.queryTransactions(ctx, query, uuid.UUID(accountID), since)
}

func (s *PostgresStore) ListByAccountTypeSince(ctx context.Context, accountID id.AccountID, txType TransactionType, since time.Time) ([]Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, location, created_at, status
		FROM transactions
		WHERE account_id = $1 AND created_at >= $2 AND type = $3
		ORDER BY created_at DESC
	`
	return s.queryTransactions(ctx, query, uuid.UUID(accountID), since, string(txType))
}

func (s *PostgresStore) CountByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND created_at >= $2`
	var count int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(accountID), since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID id.AccountID) (*Account, error) {
	query := `
		SELECT id, user_id, tier, balance, opened_at, failed_logins, failed_logins_at, active
		FROM accounts
		WHERE id = $1
	`
	var (
		account        Account
		accID, userID  uuid.UUID
		tier           string
		balance        decimal.Decimal
		failedLoginsAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(accountID)).Scan(
		&accID, &userID, &tier, &balance, &account.OpenedAt,
		&account.FailedLogins, &failedLoginsAt, &account.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	account.ID = id.AccountID(accID)
	account.UserID = id.UserID(userID)
	account.Tier = Tier(tier)
	account.Balance = balance
	if failedLoginsAt.Valid {
		account.FailedLoginsAt = failedLoginsAt.Time
	}
	return &account, nil
}

func (s *PostgresStore) ListActiveAdmins(ctx context.Context) ([]Admin, error) {
	query := `SELECT user_id, email FROM users WHERE role = 'admin' AND active = TRUE`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		var (
			userID uuid.UUID
			email  string
		)
		if err := rows.Scan(&userID, &email); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, Admin{UserID: id.UserID(userID), Email: email, Active: true})
	}
	return admins, rows.Err()
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			tx       Transaction
			accID    uuid.UUID
			txType   string
			status   string
			location sql.NullString
		)
		if err := rows.Scan(&tx.ID, &accID, &txType, &tx.Amount, &location, &tx.CreatedAt, &status); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.AccountID = id.AccountID(accID)
		tx.Type = TransactionType(txType)
		tx.Status = TransactionStatus(status)
		tx.Location = location.String
		out = append(out, tx)
	}
	return out, rows.Err()
}
