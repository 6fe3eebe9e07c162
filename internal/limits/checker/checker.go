// Package checker enforces tiered spend limits and transaction velocity.
// Both checks aggregate persisted ledger history at query time; they are
// advisory pre-flight checks, not the ledger's own consistency boundary.
// Two concurrent proposals on one account can each pass against a total
// that does not yet include the other's amount.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"bankguard/internal/ledger"
	"bankguard/internal/limits/config"
	"bankguard/internal/limits/metrics"
	"bankguard/internal/limits/models"
	"bankguard/internal/platform/currency"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
)

// velocityWindow is the trailing window for the velocity check, and the
// wait hint returned on denial.
const velocityWindow = 60 * time.Second

// TransactionReader is the slice of the ledger port this service needs.
type TransactionReader interface {
	ListByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) ([]ledger.Transaction, error)
	ListByAccountTypeSince(ctx context.Context, accountID id.AccountID, txType ledger.TransactionType, since time.Time) ([]ledger.Transaction, error)
	CountByAccountSince(ctx context.Context, accountID id.AccountID, since time.Time) (int, error)
}

type Service struct {
	transactions TransactionReader
	config       *config.Config
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source. Tests pin it to exercise day and
// month window boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(transactions TransactionReader, opts ...Option) (*Service, error) {
	if transactions == nil {
		return nil, fmt.Errorf("transaction reader is required")
	}

	svc := &Service{
		transactions: transactions,
		config:       config.DefaultConfig(),
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckLimits enforces the tier's ceilings in order: single transaction,
// today's per-type cumulative total, this calendar month's cumulative total
// across all types. The first ceiling breached produces the denial; deny
// reasons carry the limit and the amount already used.
func (s *Service) CheckLimits(ctx context.Context, accountID id.AccountID, tier ledger.Tier, txType ledger.TransactionType, amount decimal.Decimal) (*models.CheckResult, error) {
	if !txType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown transaction type %q", txType))
	}
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	profile := s.config.Get(tier)
	if s.metrics != nil {
		s.metrics.IncrementLimitChecks(string(txType))
	}

	if amount.GreaterThan(profile.SingleTransactionLimit) {
		return s.deny(ctx, accountID, tier, "single",
			fmt.Sprintf("Amount exceeds the %s per-transaction limit for your account tier",
				currency.FormatUSD(profile.SingleTransactionLimit))), nil
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	usedToday, err := s.sumByType(ctx, accountID, txType, midnight)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to aggregate daily spend")
	}
	dailyLimit := profile.DailyLimitFor(txType)
	if usedToday.Add(amount).GreaterThan(dailyLimit) {
		return s.deny(ctx, accountID, tier, "daily",
			fmt.Sprintf("Daily %s limit of %s exceeded: %s already used today",
				txType, currency.FormatUSD(dailyLimit), currency.FormatUSD(usedToday))), nil
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	usedThisMonth, err := s.sumAll(ctx, accountID, monthStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to aggregate monthly spend")
	}
	if usedThisMonth.Add(amount).GreaterThan(profile.MonthlyLimit) {
		return s.deny(ctx, accountID, tier, "monthly",
			fmt.Sprintf("Monthly limit of %s exceeded: %s already used this month",
				currency.FormatUSD(profile.MonthlyLimit), currency.FormatUSD(usedThisMonth))), nil
	}

	return &models.CheckResult{Allowed: true}, nil
}

// CheckVelocity counts the account's transactions in the trailing window
// against the tier's per-minute allowance. Reaching the allowance denies;
// the limit is a ceiling on completed history, so the proposal that would
// become the limit-plus-first transaction is the one blocked.
func (s *Service) CheckVelocity(ctx context.Context, accountID id.AccountID, tier ledger.Tier) (*models.VelocityResult, error) {
	profile := s.config.Get(tier)
	if s.metrics != nil {
		s.metrics.VelocityChecksTotal.Inc()
	}

	since := s.now().Add(-velocityWindow)
	count, err := s.transactions.CountByAccountSince(ctx, accountID, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to count recent transactions")
	}

	if count >= profile.VelocityLimit {
		if s.metrics != nil {
			s.metrics.VelocityDeniedTotal.Inc()
		}
		s.logAudit(ctx, "velocity_limit_exceeded",
			"account_id", accountID,
			"tier", tier,
			"recent_count", count,
			"velocity_limit", profile.VelocityLimit,
		)
		return &models.VelocityResult{
			Allowed:     false,
			Reason:      "Too many transactions in a short period. Please wait before trying again.",
			WaitSeconds: int(velocityWindow.Seconds()),
		}, nil
	}

	return &models.VelocityResult{Allowed: true}, nil
}

func (s *Service) sumByType(ctx context.Context, accountID id.AccountID, txType ledger.TransactionType, since time.Time) (decimal.Decimal, error) {
	txns, err := s.transactions.ListByAccountTypeSince(ctx, accountID, txType, since)
	if err != nil {
		return decimal.Zero, err
	}
	return sumAbsolute(txns), nil
}

func (s *Service) sumAll(ctx context.Context, accountID id.AccountID, since time.Time) (decimal.Decimal, error) {
	txns, err := s.transactions.ListByAccountSince(ctx, accountID, since)
	if err != nil {
		return decimal.Zero, err
	}
	return sumAbsolute(txns), nil
}

// sumAbsolute totals transaction magnitudes. Signs in ledger records depend
// on direction; limits meter gross movement, not net.
func sumAbsolute(txns []ledger.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount.Abs())
	}
	return total
}

func (s *Service) deny(ctx context.Context, accountID id.AccountID, tier ledger.Tier, ceiling, reason string) *models.CheckResult {
	if s.metrics != nil {
		s.metrics.IncrementLimitDenied(ceiling)
	}
	s.logAudit(ctx, "spend_limit_exceeded",
		"account_id", accountID,
		"tier", tier,
		"ceiling", ceiling,
		"reason", reason,
	)
	return &models.CheckResult{Allowed: false, Reason: reason}
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
