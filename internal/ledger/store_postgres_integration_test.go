//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"bankguard/internal/ledger"
	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
	"bankguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
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
	s.store = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateModuleTables(context.Background())
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) insertTransaction(ctx context.Context, accountID id.AccountID, txType ledger.TransactionType, amount string, at time.Time) string {
	s.T().Helper()
	txID := uuid.NewString()
	_, err := s.postgres.Exec(ctx, `
		INSERT INTO transactions (id, account_id, type, amount, location, created_at, status)
		VALUES ($1, $2, $3, $4, 'New York, US', $5, 'completed')
	`, txID, uuid.UUID(accountID), string(txType), amount, at)
	s.Require().NoError(err)
	return txID
}

func (s *PostgresStoreSuite) TestGetAccount() {
	ctx := context.Background()
	userID := s.postgres.CreateTestUser(ctx, s.T())
	accountID := s.postgres.CreateTestAccount(ctx, s.T(), userID)

	account, err := s.store.Get(ctx, accountID)
	s.Require().NoError(err)
	s.Equal(accountID, account.ID)
	s.Equal(userID, account.UserID)
	s.Equal(ledger.TierBasic, account.Tier)
	s.True(account.Balance.Equal(decimal.NewFromInt(20000)))
	s.Zero(account.FailedLogins)
	s.True(account.FailedLoginsAt.IsZero())
	s.True(account.Active)
	s.InDelta(90*24, account.Age(time.Now()).Hours(), 1)
}

func (s *PostgresStoreSuite) TestGetAccountNotFound() {
	_, err := s.store.Get(context.Background(), id.AccountID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByAccountSince() {
	ctx := context.Background()
	userID := s.postgres.CreateTestUser(ctx, s.T())
	accountID := s.postgres.CreateTestAccount(ctx, s.T(), userID)
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.insertTransaction(ctx, accountID, ledger.TypeWithdrawal, "800.00", now.Add(-48*time.Hour))
	recentID := s.insertTransaction(ctx, accountID, ledger.TypeWithdrawal, "250.00", now.Add(-time.Hour))
	s.insertTransaction(ctx, accountID, ledger.TypeDeposit, "1200.00", now.Add(-30*time.Minute))

	transactions, err := s.store.ListByAccountSince(ctx, accountID, now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(transactions, 2)

	// Newest first.
	s.Equal(ledger.TypeDeposit, transactions[0].Type)
	s.Equal(recentID, transactions[1].ID)
	s.True(transactions[1].Amount.Equal(decimal.RequireFromString("250.00")))
	s.Equal("New York, US", transactions[1].Location)
	s.Equal(ledger.StatusCompleted, transactions[1].Status)
}

func (s *PostgresStoreSuite) TestListByAccountTypeSince() {
	ctx := context.Background()
	userID := s.postgres.CreateTestUser(ctx, s.T())
	accountID := s.postgres.CreateTestAccount(ctx, s.T(), userID)
	now := time.Now().UTC()

	s.insertTransaction(ctx, accountID, ledger.TypeWithdrawal, "100.00", now.Add(-time.Hour))
	s.insertTransaction(ctx, accountID, ledger.TypeDeposit, "500.00", now.Add(-time.Hour))
	s.insertTransaction(ctx, accountID, ledger.TypeWithdrawal, "200.00", now.Add(-10*time.Minute))

	withdrawals, err := s.store.ListByAccountTypeSince(ctx, accountID, ledger.TypeWithdrawal, now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(withdrawals, 2)
	for _, tx := range withdrawals {
		s.Equal(ledger.TypeWithdrawal, tx.Type)
	}
}

func (s *PostgresStoreSuite) TestCountByAccountSince() {
	ctx := context.Background()
	userID := s.postgres.CreateTestUser(ctx, s.T())
	accountID := s.postgres.CreateTestAccount(ctx, s.T(), userID)
	now := time.Now().UTC()

	s.insertTransaction(ctx, accountID, ledger.TypePayment, "10.00", now.Add(-2*time.Minute))
	s.insertTransaction(ctx, accountID, ledger.TypePayment, "10.00", now.Add(-30*time.Second))
	s.insertTransaction(ctx, accountID, ledger.TypePayment, "10.00", now.Add(-10*time.Second))

	count, err := s.store.CountByAccountSince(ctx, accountID, now.Add(-time.Minute))
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresStoreSuite) TestListActiveAdmins() {
	ctx := context.Background()
	adminID, adminEmail := s.postgres.CreateTestAdmin(ctx, s.T())
	s.postgres.CreateTestUser(ctx, s.T())

	// Inactive admins are excluded from alert fan-out.
	_, err := s.postgres.Exec(ctx, `
		INSERT INTO users (user_id, email, role, active)
		VALUES ($1, $2, 'admin', FALSE)
	`, uuid.New(), "former-admin-"+uuid.NewString()+"@example.com")
	s.Require().NoError(err)

	admins, err := s.store.ListActiveAdmins(ctx)
	s.Require().NoError(err)
	s.Require().Len(admins, 1)
	s.Equal(adminID, admins[0].UserID)
	s.Equal(adminEmail, admins[0].Email)
	s.True(admins[0].Active)
}
