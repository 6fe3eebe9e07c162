package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bankguard/internal/sentinel"
	"bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
)

// PostgresStore persists device registrations in the trusted_devices table.
// A unique index on (user_id, fingerprint) backs the register-or-touch
// semantics.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deviceColumns = `id, user_id, fingerprint, name, ip_address, trusted, created_at, last_used_at`

func (s *PostgresStore) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO trusted_devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, fingerprint) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(device.ID), uuid.UUID(device.UserID), device.Fingerprint, device.Name,
		device.IPAddress, device.Trusted, device.CreatedAt, device.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("device for user %s: %w", device.UserID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, deviceID id.DeviceID) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM trusted_devices WHERE id = $1`
	return s.queryOne(ctx, query, uuid.UUID(deviceID))
}

func (s *PostgresStore) GetByUserAndFingerprint(ctx context.Context, userID id.UserID, fingerprint string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM trusted_devices WHERE user_id = $1 AND fingerprint = $2`
	return s.queryOne(ctx, query, uuid.UUID(userID), fingerprint)
}

func (s *PostgresStore) Touch(ctx context.Context, deviceID id.DeviceID, at time.Time, ipAddress string) error {
	query := `
		UPDATE trusted_devices
		SET last_used_at = $2, ip_address = COALESCE(NULLIF($3, ''), ip_address)
		WHERE id = $1
	`
	return s.execOne(ctx, query, "touch device", uuid.UUID(deviceID), at, ipAddress)
}

func (s *PostgresStore) SetTrusted(ctx context.Context, deviceID id.DeviceID, trusted bool) error {
	query := `UPDATE trusted_devices SET trusted = $2 WHERE id = $1`
	return s.execOne(ctx, query, "set device trust", uuid.UUID(deviceID), trusted)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM trusted_devices WHERE user_id = $1 ORDER BY last_used_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

func (s *PostgresStore) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM trusted_devices WHERE last_used_at < $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idle devices: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete idle devices: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) execOne(ctx context.Context, query, op string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d        models.Device
		deviceID uuid.UUID
		userID   uuid.UUID
	)
	err := row.Scan(&deviceID, &userID, &d.Fingerprint, &d.Name, &d.IPAddress, &d.Trusted, &d.CreatedAt, &d.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("scan device: %w", err)
	}
	d.ID = id.DeviceID(deviceID)
	d.UserID = id.UserID(userID)
	return &d, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}
