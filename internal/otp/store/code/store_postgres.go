package code

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bankguard/internal/otp/models"
	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
)

// PostgresStore persists issued codes in the otp_codes table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, code *models.Code) error {
	query := `
		INSERT INTO otp_codes (id, user_id, purpose, channel, code_hash, attempts, used, used_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(code.ID), uuid.UUID(code.UserID), string(code.Purpose), string(code.Channel),
		code.CodeHash, code.Attempts, code.Used, code.UsedAt, code.CreatedAt, code.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert otp code: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, userID id.UserID, purpose models.Purpose) (*models.Code, error) {
	query := `
		SELECT id, user_id, purpose, channel, code_hash, attempts, used, used_at, created_at, expires_at
		FROM otp_codes
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, uuid.UUID(userID), string(purpose))
}

func (s *PostgresStore) GetLatestUnused(ctx context.Context, userID id.UserID, purpose models.Purpose) (*models.Code, error) {
	query := `
		SELECT id, user_id, purpose, channel, code_hash, attempts, used, used_at, created_at, expires_at
		FROM otp_codes
		WHERE user_id = $1 AND purpose = $2 AND used = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, uuid.UUID(userID), string(purpose))
}

func (s *PostgresStore) MarkUsed(ctx context.Context, codeID id.CodeID, usedAt time.Time) error {
	query := `UPDATE otp_codes SET used = TRUE, used_at = $2 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(codeID), usedAt)
	if err != nil {
		return fmt.Errorf("mark otp code used: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark otp code used: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("code %s: %w", codeID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) IncrementAttempts(ctx context.Context, codeID id.CodeID) (int, error) {
	query := `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`
	var attempts int
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(codeID)).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("code %s: %w", codeID, sentinel.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return attempts, nil
}

func (s *PostgresStore) SupersedeUnused(ctx context.Context, userID id.UserID, purpose models.Purpose, supersededAt time.Time) (int, error) {
	query := `UPDATE otp_codes SET used = TRUE, used_at = $3 WHERE user_id = $1 AND purpose = $2 AND used = FALSE`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), string(purpose), supersededAt)
	if err != nil {
		return 0, fmt.Errorf("supersede otp codes: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("supersede otp codes: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM otp_codes WHERE expires_at <= $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired otp codes: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired otp codes: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*models.Code, error) {
	var (
		c         models.Code
		codeID    uuid.UUID
		userID    uuid.UUID
		purpose   string
		channel   string
		usedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&codeID, &userID, &purpose, &channel, &c.CodeHash,
		&c.Attempts, &c.Used, &usedAt, &c.CreatedAt, &c.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("otp code: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query otp code: %w", err)
	}

	c.ID = id.CodeID(codeID)
	c.UserID = id.UserID(userID)
	c.Purpose = models.Purpose(purpose)
	c.Channel = models.Channel(channel)
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return &c, nil
}
