//go:build integration

package code_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bankguard/internal/otp/models"
	"bankguard/internal/otp/store/code"
	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
	"bankguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *code.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = code.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "otp_codes")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newCode(userID id.UserID, createdAt time.Time) *models.Code {
	return &models.Code{
		ID:        id.CodeID(uuid.New()),
		UserID:    userID,
		Purpose:   models.PurposeTransaction,
		Channel:   models.ChannelSMS,
		CodeHash:  "$2a$10$integration-test-hash",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(5 * time.Minute),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetLatestUnused() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := s.newCode(userID, now.Add(-time.Minute))
	newer := s.newCode(userID, now)
	s.Require().NoError(s.store.Create(ctx, older))
	s.Require().NoError(s.store.Create(ctx, newer))

	got, err := s.store.GetLatestUnused(ctx, userID, models.PurposeTransaction)
	s.Require().NoError(err)
	s.Equal(newer.ID, got.ID)
	s.Equal(userID, got.UserID)
	s.Equal(models.PurposeTransaction, got.Purpose)
	s.Equal(models.ChannelSMS, got.Channel)
	s.Equal(newer.CodeHash, got.CodeHash)
	s.False(got.Used)
	s.Nil(got.UsedAt)
	s.WithinDuration(newer.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestGetLatestUnusedNotFound() {
	ctx := context.Background()

	_, err := s.store.GetLatestUnused(ctx, id.UserID(uuid.New()), models.PurposeTransaction)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMarkUsed() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	c := s.newCode(userID, now)
	s.Require().NoError(s.store.Create(ctx, c))
	s.Require().NoError(s.store.MarkUsed(ctx, c.ID, now))

	_, err := s.store.GetLatestUnused(ctx, userID, models.PurposeTransaction)
	s.ErrorIs(err, sentinel.ErrNotFound)

	latest, err := s.store.GetLatest(ctx, userID, models.PurposeTransaction)
	s.Require().NoError(err)
	s.True(latest.Used)
	s.Require().NotNil(latest.UsedAt)
	s.WithinDuration(now, *latest.UsedAt, time.Millisecond)

	s.Run("unknown code", func() {
		err := s.store.MarkUsed(ctx, id.CodeID(uuid.New()), now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestIncrementAttempts() {
	ctx := context.Background()
	c := s.newCode(id.UserID(uuid.New()), time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, c))

	for want := 1; want <= 3; want++ {
		attempts, err := s.store.IncrementAttempts(ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(want, attempts)
	}

	_, err := s.store.IncrementAttempts(ctx, id.CodeID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSupersedeUnused() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := s.newCode(userID, now.Add(-2*time.Minute))
	second := s.newCode(userID, now.Add(-time.Minute))
	otherPurpose := s.newCode(userID, now)
	otherPurpose.Purpose = models.PurposeTwoFactor
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))
	s.Require().NoError(s.store.Create(ctx, otherPurpose))

	superseded, err := s.store.SupersedeUnused(ctx, userID, models.PurposeTransaction, now)
	s.Require().NoError(err)
	s.Equal(2, superseded)

	_, err = s.store.GetLatestUnused(ctx, userID, models.PurposeTransaction)
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Codes for other purposes stay live.
	got, err := s.store.GetLatestUnused(ctx, userID, models.PurposeTwoFactor)
	s.Require().NoError(err)
	s.Equal(otherPurpose.ID, got.ID)
}

func (s *PostgresStoreSuite) TestDeleteExpired() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	expired := s.newCode(userID, now.Add(-time.Hour))
	live := s.newCode(userID, now)
	s.Require().NoError(s.store.Create(ctx, expired))
	s.Require().NoError(s.store.Create(ctx, live))

	deleted, err := s.store.DeleteExpired(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	got, err := s.store.GetLatestUnused(ctx, userID, models.PurposeTransaction)
	s.Require().NoError(err)
	s.Equal(live.ID, got.ID)
}
