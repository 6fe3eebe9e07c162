package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankguard/internal/sentinel"
	"bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
)

// InMemoryStore keeps device registrations in process-local maps. Used by
// tests and dev mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	devices map[id.DeviceID]*models.Device
	// byUserFingerprint enforces uniqueness per (user, fingerprint).
	byUserFingerprint map[string]id.DeviceID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		devices:           make(map[id.DeviceID]*models.Device),
		byUserFingerprint: make(map[string]id.DeviceID),
	}
}

func pairKey(userID id.UserID, fingerprint string) string {
	return userID.String() + ":" + fingerprint
}

func (s *InMemoryStore) Create(_ context.Context, device *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(device.UserID, device.Fingerprint)
	if _, exists := s.byUserFingerprint[key]; exists {
		return fmt.Errorf("device for user %s: %w", device.UserID, sentinel.ErrConflict)
	}
	cp := *device
	s.devices[device.ID] = &cp
	s.byUserFingerprint[key] = device.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, deviceID id.DeviceID) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, sentinel.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *InMemoryStore) GetByUserAndFingerprint(_ context.Context, userID id.UserID, fingerprint string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deviceID, ok := s.byUserFingerprint[pairKey(userID, fingerprint)]
	if !ok {
		return nil, fmt.Errorf("device for user %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := *s.devices[deviceID]
	return &cp, nil
}

// Touch updates last-used metadata for a known device.
func (s *InMemoryStore) Touch(_ context.Context, deviceID id.DeviceID, at time.Time, ipAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[deviceID]
	if !ok {
		return fmt.Errorf("device %s: %w", deviceID, sentinel.ErrNotFound)
	}
	d.LastUsedAt = at
	if ipAddress != "" {
		d.IPAddress = ipAddress
	}
	return nil
}

func (s *InMemoryStore) SetTrusted(_ context.Context, deviceID id.DeviceID, trusted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[deviceID]
	if !ok {
		return fmt.Errorf("device %s: %w", deviceID, sentinel.ErrNotFound)
	}
	d.Trusted = trusted
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Device
	for _, d := range s.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

// DeleteIdle removes devices with no activity since cutoff, returning how
// many were dropped.
func (s *InMemoryStore) DeleteIdle(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for deviceID, d := range s.devices {
		if d.LastUsedAt.Before(cutoff) {
			delete(s.devices, deviceID)
			delete(s.byUserFingerprint, pairKey(d.UserID, d.Fingerprint))
			deleted++
		}
	}
	return deleted, nil
}
