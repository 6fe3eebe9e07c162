// Package service tracks device and session trust. Devices are identified
// by header-derived fingerprints; trust is only ever granted explicitly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bankguard/internal/sentinel"
	"bankguard/internal/trust/fingerprint"
	"bankguard/internal/trust/metrics"
	"bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
)

const (
	// sessionBurstWindow is the trailing window for the rapid-new-sessions
	// heuristic.
	sessionBurstWindow = time.Hour

	// concurrentLocationCap and sessionBurstCap are the heuristic
	// thresholds; exceeding either flags the session.
	concurrentLocationCap = 3
	sessionBurstCap       = 3
)

// DeviceStore is the persistence port for device registrations.
type DeviceStore interface {
	Create(ctx context.Context, device *models.Device) error
	Get(ctx context.Context, deviceID id.DeviceID) (*models.Device, error)
	GetByUserAndFingerprint(ctx context.Context, userID id.UserID, fp string) (*models.Device, error)
	Touch(ctx context.Context, deviceID id.DeviceID, at time.Time, ipAddress string) error
	SetTrusted(ctx context.Context, deviceID id.DeviceID, trusted bool) error
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Device, error)
}

// SessionStore is the persistence port for session observations.
type SessionStore interface {
	Record(ctx context.Context, session models.Session) error
	ListByUserSince(ctx context.Context, userID id.UserID, since time.Time) ([]models.Session, error)
	HasHistory(ctx context.Context, userID id.UserID) (bool, error)
	HasSeenIP(ctx context.Context, userID id.UserID, ipAddress string) (bool, error)
}

type Service struct {
	devices  DeviceStore
	sessions SessionStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(devices DeviceStore, sessions SessionStore, opts ...Option) (*Service, error) {
	if devices == nil {
		return nil, fmt.Errorf("device store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}

	svc := &Service{
		devices:  devices,
		sessions: sessions,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Identify derives the device fingerprint from client metadata.
func (s *Service) Identify(meta fingerprint.Metadata) string {
	return fingerprint.Derive(meta)
}

// Register creates the device record for (user, fingerprint) or, when it
// already exists, updates its last-used time and IP. The pair is unique:
// repeat registrations never produce a second record. A concurrent first
// registration losing the insert race falls back to touching the winner's
// record.
func (s *Service) Register(ctx context.Context, userID id.UserID, meta fingerprint.Metadata) (*models.Device, error) {
	fp := fingerprint.Derive(meta)
	now := s.now()

	existing, err := s.devices.GetByUserAndFingerprint(ctx, userID, fp)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to look up device")
	}
	if existing == nil {
		device := &models.Device{
			ID:          id.NewDeviceID(),
			UserID:      userID,
			Fingerprint: fp,
			Name:        fingerprint.DisplayName(meta.UserAgent),
			IPAddress:   meta.IPAddress,
			CreatedAt:   now,
			LastUsedAt:  now,
		}
		err := s.devices.Create(ctx, device)
		if err == nil {
			if s.metrics != nil {
				s.metrics.DevicesRegisteredTotal.Inc()
			}
			s.logAudit(ctx, "device_registered",
				"device_id", device.ID,
				"user_id", userID,
				"device_name", device.Name,
			)
			return device, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to register device")
		}
		existing, err = s.devices.GetByUserAndFingerprint(ctx, userID, fp)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to look up device")
		}
	}

	if err := s.devices.Touch(ctx, existing.ID, now, meta.IPAddress); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to update device")
	}
	if s.metrics != nil {
		s.metrics.DevicesTouchedTotal.Inc()
	}
	existing.LastUsedAt = now
	if meta.IPAddress != "" {
		existing.IPAddress = meta.IPAddress
	}
	return existing, nil
}

// IsTrusted reports whether the fingerprint maps to an explicitly trusted
// device for the user. Unknown devices are untrusted.
func (s *Service) IsTrusted(ctx context.Context, userID id.UserID, fp string) (bool, error) {
	device, err := s.devices.GetByUserAndFingerprint(ctx, userID, fp)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to look up device")
	}
	return device.Trusted, nil
}

// IsNewDevice reports whether the fingerprint has never been registered for
// the user. Login flows use it to decide whether to fire a new-device alert.
func (s *Service) IsNewDevice(ctx context.Context, userID id.UserID, fp string) (bool, error) {
	_, err := s.devices.GetByUserAndFingerprint(ctx, userID, fp)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to look up device")
	}
	return false, nil
}

// Trust marks a device as explicitly trusted.
func (s *Service) Trust(ctx context.Context, deviceID id.DeviceID) error {
	return s.setTrust(ctx, deviceID, true, "device_trusted", "trust")
}

// RevokeTrust clears a device's trusted flag.
func (s *Service) RevokeTrust(ctx context.Context, deviceID id.DeviceID) error {
	return s.setTrust(ctx, deviceID, false, "device_trust_revoked", "revoke")
}

func (s *Service) setTrust(ctx context.Context, deviceID id.DeviceID, trusted bool, event, action string) error {
	if err := s.devices.SetTrusted(ctx, deviceID, trusted); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "device not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to update device trust")
	}
	if s.metrics != nil {
		s.metrics.TrustChangesTotal.WithLabelValues(action).Inc()
	}
	s.logAudit(ctx, event, "device_id", deviceID)
	return nil
}

// ListDevices returns all registered devices for a user.
func (s *Service) ListDevices(ctx context.Context, userID id.UserID) ([]models.Device, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to list devices")
	}
	return devices, nil
}

// RecordSession stores a session observation for later heuristics.
func (s *Service) RecordSession(ctx context.Context, userID id.UserID, ipAddress, location string) error {
	err := s.sessions.Record(ctx, models.Session{
		UserID:    userID,
		IPAddress: ipAddress,
		Location:  location,
		CreatedAt: s.now(),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to record session")
	}
	return nil
}

// DetectSuspiciousSession evaluates the behavioral heuristics for a login
// from the given IP. The unseen-IP check only applies when the user already
// has session history; a first-ever login flags nothing.
func (s *Service) DetectSuspiciousSession(ctx context.Context, userID id.UserID, ipAddress string) ([]models.SessionFlag, error) {
	hasHistory, err := s.sessions.HasHistory(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to read session history")
	}
	if !hasHistory {
		return nil, nil
	}

	now := s.now()
	recent, err := s.sessions.ListByUserSince(ctx, userID, now.Add(-sessionBurstWindow))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to read recent sessions")
	}

	var flags []models.SessionFlag

	locations := make(map[string]struct{})
	for _, session := range recent {
		if session.Location != "" {
			locations[session.Location] = struct{}{}
		}
	}
	if len(locations) > concurrentLocationCap {
		flags = append(flags, models.SessionFlag{
			Reason: models.ReasonMultipleLocations,
			Detail: fmt.Sprintf("sessions from %d distinct locations", len(locations)),
		})
	}

	if len(recent) > sessionBurstCap {
		flags = append(flags, models.SessionFlag{
			Reason: models.ReasonRapidNewSessions,
			Detail: fmt.Sprintf("%d new sessions in the last hour", len(recent)),
		})
	}

	if ipAddress != "" {
		seen, err := s.sessions.HasSeenIP(ctx, userID, ipAddress)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to check session IPs")
		}
		if !seen {
			flags = append(flags, models.SessionFlag{
				Reason: models.ReasonUnseenIP,
				Detail: "login from an IP never seen for this user",
			})
		}
	}

	for _, f := range flags {
		if s.metrics != nil {
			s.metrics.SessionFlagsTotal.WithLabelValues(string(f.Reason)).Inc()
		}
		s.logAudit(ctx, "suspicious_session",
			"user_id", userID,
			"reason", f.Reason,
			"detail", f.Detail,
		)
	}
	return flags, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
