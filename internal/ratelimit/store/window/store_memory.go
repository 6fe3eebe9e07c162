package window

import (
	"context"
	"sync"
	"time"
)

// InMemoryWindowStore implements WindowStore with process-local fixed
// windows. Limits enforced through it are per-instance; a multi-instance
// deployment should use the Redis store so counters are shared. A process
// restart resets all windows - accepted weakness of in-memory throttling.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
}

// fixedWindow is one counter bucket. The count keeps incrementing past the
// limit so callers can observe how far over the ceiling a client went.
type fixedWindow struct {
	count   int
	resetAt time.Time
}

// NewInMemoryWindowStore creates an empty window store.
func NewInMemoryWindowStore() *InMemoryWindowStore {
	return &InMemoryWindowStore{windows: make(map[string]*fixedWindow)}
}

// Incr atomically increments the counter for key, starting a fresh window
// when none exists or the previous one has elapsed. Returns the count after
// increment and the window's reset time.
func (s *InMemoryWindowStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{count: 0, resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Reset clears the counter for a key.
func (s *InMemoryWindowStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// PurgeExpired removes windows whose reset time has passed, returning how
// many were dropped. Called by the cleanup worker; correctness never depends
// on it because Incr restarts elapsed windows on its own.
func (s *InMemoryWindowStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			purged++
		}
	}
	return purged, nil
}
