// Package scorer computes a weighted behavioral risk score for a proposed
// transaction and scans account history for cross-transaction patterns.
// Output is advisory: policy on what a suspicious score implies lives in
// the orchestrator, not here.
package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"bankguard/internal/fraud/metrics"
	"bankguard/internal/fraud/models"
	"bankguard/internal/ledger"
	"bankguard/internal/platform/currency"
	"bankguard/pkg/requestcontext"
)

const (
	// youngAccountAge is the account age under which large withdrawals are
	// treated as a mule-account signal.
	youngAccountAge = 7 * 24 * time.Hour

	// youngAccountWithdrawalFloor is the withdrawal size that makes a young
	// account suspicious.
	youngAccountWithdrawalFloor = 1000

	// failedLoginFloor is the failed-login count above which the account is
	// treated as possibly compromised.
	failedLoginFloor = 3
)

var (
	roundAmountFloor    = decimal.NewFromInt(10000)
	roundAmountStep     = decimal.NewFromInt(1000)
	structuringBandLow  = decimal.NewFromInt(9000)
	structuringBandHigh = decimal.RequireFromString("9999.99")
	turnoverInflowBar   = decimal.NewFromInt(50000)
	turnoverOutflowBar  = decimal.NewFromInt(45000)
)

// Input carries everything a rule may inspect. History is the account's
// recent transactions, newest first, and excludes the proposed transaction.
type Input struct {
	Transaction ledger.Transaction
	Account     *ledger.Account
	History     []ledger.Transaction
	Now         time.Time
}

// Rule is one weighted heuristic. Detect returns whether it triggered and a
// short human-readable detail. An error marks the signal non-triggered; it
// never contributes points and never aborts the evaluation.
type Rule struct {
	Name   string
	Weight int
	Detect func(in Input) (bool, string, error)
}

type Service struct {
	rules   []Rule
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
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

// WithRules replaces the default rule set.
func WithRules(rules []Rule) Option {
	return func(s *Service) {
		if len(rules) > 0 {
			s.rules = rules
		}
	}
}

// WithClock overrides the time source. Tests pin it so age and window
// calculations are deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Service {
	svc := &Service{
		rules:  DefaultRules(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Score evaluates every rule against the proposal, sums triggered weights
// and clamps to [0,100].
func (s *Service) Score(ctx context.Context, in Input) *models.Assessment {
	if in.Now.IsZero() {
		in.Now = s.now()
	}

	score := 0
	signals := make([]models.Signal, 0, len(s.rules))
	for _, rule := range s.rules {
		triggered, detail, err := rule.Detect(in)
		if err != nil {
			s.logger.WarnContext(ctx, "fraud rule evaluation failed",
				"rule", rule.Name,
				"error", err,
				"transaction_id", in.Transaction.ID,
			)
			if s.metrics != nil {
				s.metrics.RuleErrorsTotal.WithLabelValues(rule.Name).Inc()
			}
			signals = append(signals, models.Signal{
				Rule:   rule.Name,
				Weight: rule.Weight,
				Detail: "evaluation failed: " + err.Error(),
			})
			continue
		}

		if triggered {
			score += rule.Weight
			if s.metrics != nil {
				s.metrics.RuleTriggersTotal.WithLabelValues(rule.Name).Inc()
			}
		}
		signals = append(signals, models.Signal{
			Rule:      rule.Name,
			Triggered: triggered,
			Weight:    rule.Weight,
			Detail:    detail,
		})
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	assessment := &models.Assessment{
		Score:      score,
		Severity:   models.SeverityForScore(score),
		Suspicious: score >= models.SuspiciousThreshold,
		Signals:    signals,
	}

	if s.metrics != nil {
		s.metrics.AssessmentsTotal.WithLabelValues(string(assessment.Severity)).Inc()
		s.metrics.ScoreDistribution.Observe(float64(score))
		if assessment.Suspicious {
			s.metrics.SuspiciousTotal.Inc()
		}
	}
	if assessment.Suspicious {
		s.logAudit(ctx, "fraud_score_suspicious",
			"transaction_id", in.Transaction.ID,
			"account_id", in.Transaction.AccountID,
			"score", score,
			"severity", assessment.Severity,
		)
	}

	return assessment
}

// AnalyzeSuspiciousActivity scans an account's transaction history for
// behavioral patterns that no single transaction reveals. Each finding is
// its own alertable result.
func (s *Service) AnalyzeSuspiciousActivity(ctx context.Context, account *ledger.Account, txns []ledger.Transaction) []models.PatternFinding {
	now := s.now()
	var findings []models.PatternFinding

	if f := detectStructuring(txns); f != nil {
		findings = append(findings, *f)
	}
	if f := detectRapidTurnover(txns, now); f != nil {
		findings = append(findings, *f)
	}
	if f := detectGeographicSpread(txns); f != nil {
		findings = append(findings, *f)
	}

	for _, f := range findings {
		if s.metrics != nil {
			s.metrics.PatternFindingsTotal.WithLabelValues(string(f.Pattern)).Inc()
		}
		s.logAudit(ctx, "suspicious_activity_pattern",
			"account_id", account.ID,
			"pattern", f.Pattern,
			"severity", f.Severity,
			"description", f.Description,
		)
	}
	return findings
}

// DefaultRules returns the stock weighted heuristics.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "amount_vs_average",
			Weight: 25,
			Detect: func(in Input) (bool, string, error) {
				if len(in.History) == 0 {
					return false, "no history to average", nil
				}
				total := decimal.Zero
				for _, t := range in.History {
					total = total.Add(t.Amount.Abs())
				}
				avg := total.Div(decimal.NewFromInt(int64(len(in.History))))
				if avg.IsZero() {
					return false, "zero average", nil
				}
				if in.Transaction.Amount.Abs().GreaterThan(avg.Mul(decimal.NewFromInt(5))) {
					return true, fmt.Sprintf("amount is more than 5x the recent average of %s", currency.FormatUSD(avg)), nil
				}
				return false, "", nil
			},
		},
		{
			Name:   "young_account_large_withdrawal",
			Weight: 30,
			Detect: func(in Input) (bool, string, error) {
				if in.Account == nil {
					return false, "", fmt.Errorf("account metadata missing")
				}
				if in.Transaction.Type != ledger.TypeWithdrawal {
					return false, "", nil
				}
				if in.Account.Age(in.Now) >= youngAccountAge {
					return false, "", nil
				}
				if in.Transaction.Amount.Abs().GreaterThan(decimal.NewFromInt(youngAccountWithdrawalFloor)) {
					return true, "large withdrawal from an account younger than 7 days", nil
				}
				return false, "", nil
			},
		},
		{
			Name:   "high_frequency",
			Weight: 20,
			Detect: func(in Input) (bool, string, error) {
				cutoff := in.Now.Add(-time.Hour)
				count := 0
				for _, t := range in.History {
					if !t.CreatedAt.Before(cutoff) {
						count++
					}
				}
				if count > 5 {
					return true, fmt.Sprintf("%d transactions in the trailing hour", count), nil
				}
				return false, "", nil
			},
		},
		{
			Name:   "odd_hour",
			Weight: 10,
			Detect: func(in Input) (bool, string, error) {
				hour := in.Transaction.CreatedAt.Hour()
				if hour >= 3 && hour < 6 {
					return true, fmt.Sprintf("initiated at %02d:00 local", hour), nil
				}
				return false, "", nil
			},
		},
		{
			Name:   "round_amount",
			Weight: 15,
			Detect: func(in Input) (bool, string, error) {
				amount := in.Transaction.Amount.Abs()
				if amount.GreaterThanOrEqual(roundAmountFloor) && amount.Mod(roundAmountStep).IsZero() {
					return true, "large round-number amount", nil
				}
				return false, "", nil
			},
		},
		{
			Name:   "balance_depletion",
			Weight: 20,
			Detect: func(in Input) (bool, string, error) {
				if in.Account == nil {
					return false, "", fmt.Errorf("account metadata missing")
				}
				if in.Transaction.Type != ledger.TypeWithdrawal {
					return false, "", nil
				}
				balance := in.Account.Balance
				if !balance.IsPositive() {
					return false, "", nil
				}
				remaining := balance.Sub(in.Transaction.Amount.Abs())
				if remaining.LessThan(balance.Mul(decimal.RequireFromString("0.1"))) {
					return true, "withdrawal leaves less than 10% of the balance", nil
				}
				return false, "", nil
			},
		},
		{
			Name:   "failed_logins",
			Weight: 15,
			Detect: func(in Input) (bool, string, error) {
				if in.Account == nil {
					return false, "", fmt.Errorf("account metadata missing")
				}
				if in.Account.FailedLogins > failedLoginFloor {
					return true, fmt.Sprintf("%d recent failed login attempts", in.Account.FailedLogins), nil
				}
				return false, "", nil
			},
		},
	}
}

func detectStructuring(txns []ledger.Transaction) *models.PatternFinding {
	count := 0
	for _, t := range txns {
		amount := t.Amount.Abs()
		if amount.GreaterThanOrEqual(structuringBandLow) && amount.LessThanOrEqual(structuringBandHigh) {
			count++
		}
	}
	if count < 3 {
		return nil
	}
	return &models.PatternFinding{
		Pattern:  models.PatternStructuring,
		Severity: models.SeverityHigh,
		Description: fmt.Sprintf("%d transactions in the %s-%s band, consistent with reporting-threshold structuring",
			count, currency.FormatUSD(structuringBandLow), currency.FormatUSD(structuringBandHigh)),
	}
}

func detectRapidTurnover(txns []ledger.Transaction, now time.Time) *models.PatternFinding {
	cutoff := now.AddDate(0, 0, -7)
	inflow := decimal.Zero
	outflow := decimal.Zero
	for _, t := range txns {
		if t.CreatedAt.Before(cutoff) {
			continue
		}
		if t.Type.Outbound() {
			outflow = outflow.Add(t.Amount.Abs())
		} else {
			inflow = inflow.Add(t.Amount.Abs())
		}
	}
	if inflow.GreaterThan(turnoverInflowBar) && outflow.GreaterThan(turnoverOutflowBar) {
		return &models.PatternFinding{
			Pattern:  models.PatternRapidTurnover,
			Severity: models.SeverityHigh,
			Description: fmt.Sprintf("7-day inflow %s and outflow %s, funds passing straight through",
				currency.FormatUSD(inflow), currency.FormatUSD(outflow)),
		}
	}
	return nil
}

func detectGeographicSpread(txns []ledger.Transaction) *models.PatternFinding {
	locations := make(map[string]struct{})
	for _, t := range txns {
		if t.Location != "" {
			locations[t.Location] = struct{}{}
		}
	}
	if len(locations) <= 10 {
		return nil
	}
	return &models.PatternFinding{
		Pattern:     models.PatternGeographicSpread,
		Severity:    models.SeverityMedium,
		Description: fmt.Sprintf("transactions from %d distinct locations", len(locations)),
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
