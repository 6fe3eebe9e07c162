package code

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankguard/internal/otp/models"
	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
)

// InMemoryStore keeps issued codes in a process-local map. Used by tests and
// dev mode.
type InMemoryStore struct {
	mu    sync.RWMutex
	codes map[id.CodeID]*models.Code
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{codes: make(map[id.CodeID]*models.Code)}
}

func (s *InMemoryStore) Create(_ context.Context, code *models.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.codes[code.ID]; exists {
		return fmt.Errorf("code %s: %w", code.ID, sentinel.ErrConflict)
	}
	cp := *code
	s.codes[code.ID] = &cp
	return nil
}

// GetLatest returns the most recently issued code for (user, purpose)
// regardless of state. Drives the resend cooldown.
func (s *InMemoryStore) GetLatest(_ context.Context, userID id.UserID, purpose models.Purpose) (*models.Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.latest(userID, purpose, false)
	if latest == nil {
		return nil, fmt.Errorf("otp code for user %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

// GetLatestUnused returns the most recently issued code for (user, purpose)
// that has not reached a terminal state.
func (s *InMemoryStore) GetLatestUnused(_ context.Context, userID id.UserID, purpose models.Purpose) (*models.Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.latest(userID, purpose, true)
	if latest == nil {
		return nil, fmt.Errorf("otp code for user %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemoryStore) latest(userID id.UserID, purpose models.Purpose, unusedOnly bool) *models.Code {
	var latest *models.Code
	for _, c := range s.codes {
		if c.UserID != userID || c.Purpose != purpose {
			continue
		}
		if unusedOnly && c.Used {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest
}

func (s *InMemoryStore) MarkUsed(_ context.Context, codeID id.CodeID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[codeID]
	if !ok {
		return fmt.Errorf("code %s: %w", codeID, sentinel.ErrNotFound)
	}
	c.Used = true
	c.UsedAt = &usedAt
	return nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (s *InMemoryStore) IncrementAttempts(_ context.Context, codeID id.CodeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[codeID]
	if !ok {
		return 0, fmt.Errorf("code %s: %w", codeID, sentinel.ErrNotFound)
	}
	c.Attempts++
	return c.Attempts, nil
}

// SupersedeUnused voids all unused codes for (user, purpose), returning how
// many were voided. A fresh issuance calls this so only one code is ever
// live per pair.
func (s *InMemoryStore) SupersedeUnused(_ context.Context, userID id.UserID, purpose models.Purpose, supersededAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voided := 0
	for _, c := range s.codes {
		if c.UserID == userID && c.Purpose == purpose && !c.Used {
			c.Used = true
			at := supersededAt
			c.UsedAt = &at
			voided++
		}
	}
	return voided, nil
}

// DeleteExpired removes codes whose expiry is at or before cutoff.
func (s *InMemoryStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for codeID, c := range s.codes {
		if !c.ExpiresAt.After(cutoff) {
			delete(s.codes, codeID)
			deleted++
		}
	}
	return deleted, nil
}
