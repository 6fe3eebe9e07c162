package security

import (
	"context"
	"time"
)

// Store is the append-only persistence port for security events. There is
// deliberately no update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error

	// List returns events matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Event, error)

	// CountByActorActionSince counts an actor's events of one action at or
	// after since. Drives the failed-login escalation window.
	CountByActorActionSince(ctx context.Context, actorID string, action Action, since time.Time) (int, error)

	// Stats aggregates counts by action and by day over [from, to).
	Stats(ctx context.Context, from, to time.Time) (*Stats, error)
}
