package checker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bankguard/internal/ratelimit/config"
	"bankguard/internal/ratelimit/models"
	"bankguard/internal/ratelimit/store/window"
)

type CheckerSuite struct {
	suite.Suite
	store   *window.InMemoryWindowStore
	service *Service
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) SetupTest() {
	s.store = window.NewInMemoryWindowStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Limits: map[models.ActionClass]config.Limit{
			models.ClassAuth:        {MaxRequests: 3, Window: 50 * time.Millisecond},
			models.ClassTransaction: {MaxRequests: 2, Window: time.Minute},
			models.ClassDefault:     {MaxRequests: 5, Window: time.Minute},
		},
	}

	var err error
	s.service, err = New(s.store, WithLogger(logger), WithConfig(cfg))
	s.Require().NoError(err)
}

func (s *CheckerSuite) TestNew() {
	s.Run("rejects nil window store", func() {
		_, err := New(nil)
		s.Error(err)
	})
}

func (s *CheckerSuite) TestFixedWindowSemantics() {
	ctx := context.Background()

	s.Run("exactly N calls pass and the N+1th is denied", func() {
		for i := 0; i < 3; i++ {
			res, err := s.service.CheckIP(ctx, "203.0.113.7", models.ClassAuth)
			s.Require().NoError(err)
			s.True(res.Allowed, "call %d should be allowed", i+1)
		}

		res, err := s.service.CheckIP(ctx, "203.0.113.7", models.ClassAuth)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining, "remaining is clamped to zero")
		s.GreaterOrEqual(res.RetryAfter, 0)
	})

	s.Run("denied requests are still counted for the rest of the window", func() {
		for i := 0; i < 10; i++ {
			_, _ = s.service.CheckIP(ctx, "198.51.100.1", models.ClassTransaction)
		}
		res, err := s.service.CheckIP(ctx, "198.51.100.1", models.ClassTransaction)
		s.Require().NoError(err)
		s.False(res.Allowed)
	})

	s.Run("window reset allows again with a fresh count", func() {
		for i := 0; i < 4; i++ {
			_, _ = s.service.CheckIP(ctx, "192.0.2.9", models.ClassAuth)
		}

		time.Sleep(60 * time.Millisecond)

		res, err := s.service.CheckIP(ctx, "192.0.2.9", models.ClassAuth)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2, res.Remaining, "count restarted at 1")
	})
}

func (s *CheckerSuite) TestIndependentConfigurations() {
	ctx := context.Background()

	s.Run("classes do not share windows", func() {
		for i := 0; i < 2; i++ {
			res, err := s.service.CheckIP(ctx, "203.0.113.9", models.ClassTransaction)
			s.Require().NoError(err)
			s.True(res.Allowed)
		}
		// Transaction class exhausted; auth class still open for same IP.
		res, err := s.service.CheckIP(ctx, "203.0.113.9", models.ClassTransaction)
		s.Require().NoError(err)
		s.False(res.Allowed)

		res, err = s.service.CheckIP(ctx, "203.0.113.9", models.ClassAuth)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("unknown class falls back to default limits", func() {
		res, err := s.service.CheckIP(ctx, "203.0.113.10", models.ActionClass("bogus"))
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(5, res.Limit)
	})
}

func (s *CheckerSuite) TestCheckBoth() {
	ctx := context.Background()

	s.Run("IP denial wins before user check", func() {
		for i := 0; i < 3; i++ {
			_, _ = s.service.CheckIP(ctx, "203.0.113.20", models.ClassTransaction)
		}
		res, err := s.service.CheckBoth(ctx, "203.0.113.20", "user-1", models.ClassTransaction)
		s.Require().NoError(err)
		s.False(res.Allowed)
	})

	s.Run("returns the more restrictive passing result", func() {
		// Burn one request on the user key only.
		_, err := s.service.CheckUser(ctx, "user-2", models.ClassDefault)
		s.Require().NoError(err)

		res, err := s.service.CheckBoth(ctx, "203.0.113.21", "user-2", models.ClassDefault)
		s.Require().NoError(err)
		s.True(res.Allowed)
		// user window holds 2 requests, IP window 1 - user has fewer remaining.
		s.Equal(5-2, res.Remaining)
	})
}

func (s *CheckerSuite) TestReset() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = s.service.CheckIP(ctx, "203.0.113.30", models.ClassAuth)
	}
	s.Require().NoError(s.service.Reset(ctx, "ip", "203.0.113.30", models.ClassAuth))

	res, err := s.service.CheckIP(ctx, "203.0.113.30", models.ClassAuth)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
