package security

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps events in an append-only slice. Used by tests and dev
// mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) CountByActorActionSince(_ context.Context, actorID string, action Action, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events {
		if e.ActorID == actorID && e.Action == action && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) Stats(_ context.Context, from, to time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ByAction: make(map[Action]int),
		ByDay:    make(map[string]int),
	}
	for _, e := range s.events {
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		stats.Total++
		stats.ByAction[e.Action]++
		stats.ByDay[e.Timestamp.Format("2006-01-02")]++
	}
	return stats, nil
}

func matches(e Event, f Filter) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	return true
}
