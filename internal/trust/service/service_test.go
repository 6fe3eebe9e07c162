package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bankguard/internal/trust/fingerprint"
	"bankguard/internal/trust/models"
	"bankguard/internal/trust/store/device"
	"bankguard/internal/trust/store/session"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
)

const chromeOnMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type TrustServiceSuite struct {
	suite.Suite
	devices  *device.InMemoryStore
	sessions *session.InMemoryStore
	service  *Service
	userID   id.UserID
	now      time.Time
}

func TestTrustServiceSuite(t *testing.T) {
	suite.Run(t, new(TrustServiceSuite))
}

func (s *TrustServiceSuite) SetupTest() {
	s.devices = device.NewInMemoryStore()
	s.sessions = session.NewInMemoryStore()
	s.userID = id.NewUserID()
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.devices, s.sessions,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *TrustServiceSuite) metadata(ip string) fingerprint.Metadata {
	return fingerprint.Metadata{
		UserAgent:      chromeOnMac,
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		IPAddress:      ip,
	}
}

func (s *TrustServiceSuite) TestRegisterIdempotence() {
	ctx := context.Background()

	first, err := s.service.Register(ctx, s.userID, s.metadata("203.0.113.1"))
	s.Require().NoError(err)
	s.False(first.Trusted, "registration never grants trust")

	s.now = s.now.Add(2 * time.Hour)
	second, err := s.service.Register(ctx, s.userID, s.metadata("198.51.100.7"))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID, "same pair resolves to one record")
	s.Equal(s.now, second.LastUsedAt)
	s.Equal("198.51.100.7", second.IPAddress)

	devices, err := s.service.ListDevices(ctx, s.userID)
	s.Require().NoError(err)
	s.Len(devices, 1)
}

func (s *TrustServiceSuite) TestSameFingerprintDifferentUsers() {
	ctx := context.Background()
	otherUser := id.NewUserID()

	mine, err := s.service.Register(ctx, s.userID, s.metadata("203.0.113.1"))
	s.Require().NoError(err)
	theirs, err := s.service.Register(ctx, otherUser, s.metadata("203.0.113.1"))
	s.Require().NoError(err)

	s.NotEqual(mine.ID, theirs.ID)
	s.Equal(mine.Fingerprint, theirs.Fingerprint)
}

func (s *TrustServiceSuite) TestExplicitTrustLifecycle() {
	ctx := context.Background()
	registered, err := s.service.Register(ctx, s.userID, s.metadata("203.0.113.1"))
	s.Require().NoError(err)
	fp := registered.Fingerprint

	trusted, err := s.service.IsTrusted(ctx, s.userID, fp)
	s.Require().NoError(err)
	s.False(trusted, "repeated use alone never grants trust")

	s.Require().NoError(s.service.Trust(ctx, registered.ID))
	trusted, err = s.service.IsTrusted(ctx, s.userID, fp)
	s.Require().NoError(err)
	s.True(trusted)

	s.Require().NoError(s.service.RevokeTrust(ctx, registered.ID))
	trusted, err = s.service.IsTrusted(ctx, s.userID, fp)
	s.Require().NoError(err)
	s.False(trusted)
}

func (s *TrustServiceSuite) TestTrustUnknownDevice() {
	err := s.service.Trust(context.Background(), id.NewDeviceID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *TrustServiceSuite) TestIsNewDevice() {
	ctx := context.Background()
	fp := s.service.Identify(s.metadata("203.0.113.1"))

	isNew, err := s.service.IsNewDevice(ctx, s.userID, fp)
	s.Require().NoError(err)
	s.True(isNew)

	_, err = s.service.Register(ctx, s.userID, s.metadata("203.0.113.1"))
	s.Require().NoError(err)

	isNew, err = s.service.IsNewDevice(ctx, s.userID, fp)
	s.Require().NoError(err)
	s.False(isNew)

	isNew, err = s.service.IsNewDevice(ctx, id.NewUserID(), fp)
	s.Require().NoError(err)
	s.True(isNew, "device knowledge is per user")
}

func (s *TrustServiceSuite) TestIsTrustedUnknownFingerprint() {
	trusted, err := s.service.IsTrusted(context.Background(), s.userID, "no-such-fingerprint")
	s.Require().NoError(err)
	s.False(trusted)
}

func (s *TrustServiceSuite) TestDetectSuspiciousSession() {
	ctx := context.Background()

	s.Run("no history flags nothing", func() {
		flags, err := s.service.DetectSuspiciousSession(ctx, id.NewUserID(), "203.0.113.99")
		s.Require().NoError(err)
		s.Empty(flags, "first-ever login is not suspicious")
	})

	s.Run("known ip and single location is quiet", func() {
		userID := id.NewUserID()
		s.Require().NoError(s.service.RecordSession(ctx, userID, "203.0.113.1", "Boston"))

		flags, err := s.service.DetectSuspiciousSession(ctx, userID, "203.0.113.1")
		s.Require().NoError(err)
		s.Empty(flags)
	})

	s.Run("unseen ip with prior history", func() {
		userID := id.NewUserID()
		s.Require().NoError(s.service.RecordSession(ctx, userID, "203.0.113.1", "Boston"))

		flags, err := s.service.DetectSuspiciousSession(ctx, userID, "198.51.100.50")
		s.Require().NoError(err)
		s.Require().Len(flags, 1)
		s.Equal(models.ReasonUnseenIP, flags[0].Reason)
	})

	s.Run("too many distinct locations", func() {
		userID := id.NewUserID()
		for i, city := range []string{"Boston", "Lagos", "Tokyo", "Berlin"} {
			s.Require().NoError(s.service.RecordSession(ctx, userID, fmt.Sprintf("203.0.113.%d", i+1), city))
		}

		flags, err := s.service.DetectSuspiciousSession(ctx, userID, "203.0.113.1")
		s.Require().NoError(err)
		s.Require().Len(flags, 2, "four locations also means four sessions in the hour")
		s.Equal(models.ReasonMultipleLocations, flags[0].Reason)
		s.Equal(models.ReasonRapidNewSessions, flags[1].Reason)
	})

	s.Run("old sessions age out of the burst window", func() {
		userID := id.NewUserID()
		s.now = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
		for i := 0; i < 4; i++ {
			s.Require().NoError(s.service.RecordSession(ctx, userID, "203.0.113.1", "Boston"))
		}
		s.now = s.now.Add(3 * time.Hour)

		flags, err := s.service.DetectSuspiciousSession(ctx, userID, "203.0.113.1")
		s.Require().NoError(err)
		s.Empty(flags)
	})
}
