package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"bankguard/internal/ledger"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
)

type LimitsCheckerSuite struct {
	suite.Suite
	store     *ledger.InMemoryStore
	service   *Service
	accountID id.AccountID
	now       time.Time
}

func TestLimitsCheckerSuite(t *testing.T) {
	suite.Run(t, new(LimitsCheckerSuite))
}

func (s *LimitsCheckerSuite) SetupTest() {
	s.store = ledger.NewInMemoryStore()
	s.accountID = id.NewAccountID()
	s.now = time.Date(2025, 6, 15, 14, 30, 0, 0, time.Local)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	s.service, err = New(s.store,
		WithLogger(logger),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

// freshAccount isolates a subtest's history; the store filters by account.
func (s *LimitsCheckerSuite) freshAccount() {
	s.accountID = id.NewAccountID()
}

func (s *LimitsCheckerSuite) addTransaction(txType ledger.TransactionType, amount string, at time.Time) {
	s.store.AddTransaction(ledger.Transaction{
		ID:        fmt.Sprintf("tx-%d", time.Now().UnixNano()),
		AccountID: s.accountID,
		Type:      txType,
		Amount:    decimal.RequireFromString(amount),
		CreatedAt: at,
		Status:    ledger.StatusCompleted,
	})
}

func (s *LimitsCheckerSuite) TestSingleTransactionCeiling() {
	ctx := context.Background()

	s.Run("amount one over the ceiling is denied regardless of history", func() {
		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeTransfer, decimal.NewFromInt(5001))
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Contains(res.Reason, "$5,000")
	})

	s.Run("amount exactly at the ceiling with no history is allowed", func() {
		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeDeposit, decimal.NewFromInt(5000))
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Empty(res.Reason)
	})
}

func (s *LimitsCheckerSuite) TestDailyPerTypeCeiling() {
	ctx := context.Background()

	s.Run("prior same-day withdrawals count against the daily limit", func() {
		s.freshAccount()
		// Basic tier allows $1,000 of withdrawals per day; $800 already gone.
		s.addTransaction(ledger.TypeWithdrawal, "800", s.now.Add(-2*time.Hour))

		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeWithdrawal, decimal.NewFromInt(250))
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Contains(res.Reason, "$1,000")
		s.Contains(res.Reason, "$800")
	})

	s.Run("filling the limit exactly is allowed", func() {
		s.freshAccount()
		s.addTransaction(ledger.TypeWithdrawal, "800", s.now.Add(-2*time.Hour))

		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeWithdrawal, decimal.NewFromInt(200))
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("yesterday's spend does not count", func() {
		s.freshAccount()
		s.addTransaction(ledger.TypeWithdrawal, "900", s.now.Add(-20*time.Hour)) // 18:30 yesterday

		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeWithdrawal, decimal.NewFromInt(950))
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("other transaction types do not consume the withdrawal allowance", func() {
		s.freshAccount()
		s.addTransaction(ledger.TypeDeposit, "950", s.now.Add(-time.Hour))

		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeWithdrawal, decimal.NewFromInt(500))
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *LimitsCheckerSuite) TestMonthlyCeiling() {
	ctx := context.Background()

	s.Run("all types draw from the monthly total", func() {
		s.freshAccount()
		// Basic tier monthly ceiling is $50,000.
		s.addTransaction(ledger.TypeDeposit, "30000", s.now.AddDate(0, 0, -10))
		s.addTransaction(ledger.TypeTransfer, "19500", s.now.AddDate(0, 0, -5))

		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypePayment, decimal.NewFromInt(600))
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Contains(res.Reason, "$50,000")
		s.Contains(res.Reason, "$49,500")
	})

	s.Run("last month's spend does not count", func() {
		s.freshAccount()
		s.addTransaction(ledger.TypeDeposit, "49000", s.now.AddDate(0, -1, 0))

		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypePayment, decimal.NewFromInt(2000))
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *LimitsCheckerSuite) TestCheckLimitsInputValidation() {
	ctx := context.Background()

	s.Run("rejects unknown transaction type", func() {
		_, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TransactionType("iou"), decimal.NewFromInt(10))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects non-positive amount", func() {
		_, err := s.service.CheckLimits(ctx, s.accountID, ledger.TierBasic, ledger.TypeDeposit, decimal.Zero)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown tier falls back to the most restrictive profile", func() {
		res, err := s.service.CheckLimits(ctx, s.accountID, ledger.Tier("platinum"), ledger.TypeTransfer, decimal.NewFromInt(5001))
		s.Require().NoError(err)
		s.False(res.Allowed)
	})
}

func (s *LimitsCheckerSuite) TestCheckVelocity() {
	ctx := context.Background()

	s.Run("allows below the tier allowance", func() {
		s.freshAccount()
		s.addTransaction(ledger.TypeTransfer, "10", s.now.Add(-30*time.Second))
		s.addTransaction(ledger.TypeTransfer, "10", s.now.Add(-10*time.Second))

		res, err := s.service.CheckVelocity(ctx, s.accountID, ledger.TierBasic)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Zero(res.WaitSeconds)
	})

	s.Run("denies at the allowance with a wait hint", func() {
		s.freshAccount()
		for i := 0; i < 3; i++ {
			s.addTransaction(ledger.TypeTransfer, "10", s.now.Add(-time.Duration(i+1)*10*time.Second))
		}

		res, err := s.service.CheckVelocity(ctx, s.accountID, ledger.TierBasic)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.NotEmpty(res.Reason)
		s.Equal(60, res.WaitSeconds)
	})

	s.Run("transactions outside the trailing window do not count", func() {
		s.freshAccount()
		for i := 0; i < 5; i++ {
			s.addTransaction(ledger.TypeTransfer, "10", s.now.Add(-2*time.Minute))
		}

		res, err := s.service.CheckVelocity(ctx, s.accountID, ledger.TierBasic)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("premium tier tolerates more", func() {
		s.freshAccount()
		for i := 0; i < 4; i++ {
			s.addTransaction(ledger.TypeTransfer, "10", s.now.Add(-10*time.Second))
		}

		res, err := s.service.CheckVelocity(ctx, s.accountID, ledger.TierPremium)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}
