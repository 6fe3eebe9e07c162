package session

import (
	"context"
	"sync"
	"time"

	"bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
)

// DefaultRetention bounds how much session history is kept per user. The
// suspicious-session heuristics only look hours back; a day of history is
// plenty.
const DefaultRetention = 24 * time.Hour

// InMemoryStore keeps recent session observations per user. Session history
// is ephemeral behavioral data; losing it on restart only blunts the
// heuristics until new history accumulates.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[id.UserID][]models.Session
	retention time.Duration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[id.UserID][]models.Session),
		retention: DefaultRetention,
	}
}

// Record appends a session observation and prunes entries past retention.
func (s *InMemoryStore) Record(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := session.CreatedAt.Add(-s.retention)
	kept := s.sessions[session.UserID][:0]
	for _, existing := range s.sessions[session.UserID] {
		if !existing.CreatedAt.Before(cutoff) {
			kept = append(kept, existing)
		}
	}
	s.sessions[session.UserID] = append(kept, session)
	return nil
}

// ListByUserSince returns the user's sessions created at or after since.
func (s *InMemoryStore) ListByUserSince(_ context.Context, userID id.UserID, since time.Time) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Session
	for _, session := range s.sessions[userID] {
		if !session.CreatedAt.Before(since) {
			out = append(out, session)
		}
	}
	return out, nil
}

// HasHistory reports whether any session history exists for the user.
func (s *InMemoryStore) HasHistory(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[userID]) > 0, nil
}

// HasSeenIP reports whether the user has any retained session from the IP.
func (s *InMemoryStore) HasSeenIP(_ context.Context, userID id.UserID, ipAddress string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions[userID] {
		if session.IPAddress == ipAddress {
			return true, nil
		}
	}
	return false, nil
}
