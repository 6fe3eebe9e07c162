package security

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	id "bankguard/pkg/domain"
)

// PostgresStore persists events in the security_events table. Metadata goes
// to a jsonb column. There is no UPDATE or DELETE statement in this file on
// purpose.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `
		INSERT INTO security_events
			(id, timestamp, severity, action, actor_id, entity_type, entity_id, ip_address, user_agent, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID), event.Timestamp, string(event.Severity), string(event.Action),
		event.ActorID, event.EntityType, event.EntityID, event.IPAddress, event.UserAgent,
		event.Description, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if !filter.From.IsZero() {
		add("timestamp >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("timestamp < $%d", filter.To)
	}

	query := `
		SELECT id, timestamp, severity, action, actor_id, entity_type, entity_id, ip_address, user_agent, description, metadata
		FROM security_events
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			eventID  uuid.UUID
			metadata []byte
		)
		err := rows.Scan(&eventID, &e.Timestamp, &e.Severity, &e.Action, &e.ActorID,
			&e.EntityType, &e.EntityID, &e.IPAddress, &e.UserAgent, &e.Description, &metadata)
		if err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		e.ID = id.EventID(eventID)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) CountByActorActionSince(ctx context.Context, actorID string, action Action, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM security_events WHERE actor_id = $1 AND action = $2 AND timestamp >= $3`
	var count int
	if err := s.db.QueryRowContext(ctx, query, actorID, string(action), since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count security events: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	stats := &Stats{
		ByAction: make(map[Action]int),
		ByDay:    make(map[string]int),
	}

	actionQuery := `
		SELECT action, COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY action
	`
	rows, err := s.db.QueryContext(ctx, actionQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("security event stats by action: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan action stats: %w", err)
		}
		stats.ByAction[Action(action)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("security event stats by action: %w", err)
	}

	dayQuery := `
		SELECT TO_CHAR(timestamp, 'YYYY-MM-DD'), COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY 1
	`
	dayRows, err := s.db.QueryContext(ctx, dayQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("security event stats by day: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var (
			day   string
			count int
		)
		if err := dayRows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan day stats: %w", err)
		}
		stats.ByDay[day] = count
	}
	if err := dayRows.Err(); err != nil {
		return nil, fmt.Errorf("security event stats by day: %w", err)
	}

	return stats, nil
}
