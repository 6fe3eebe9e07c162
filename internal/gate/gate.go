// Package gate composes the risk pipeline into one synchronous decision per
// proposed transaction or sensitive action. Stages run in a fixed order and
// any stage may short-circuit with a deny; the decision is durably logged
// before it is returned, and a failed log write denies rather than allows.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	fraudModels "bankguard/internal/fraud/models"
	"bankguard/internal/fraud/scorer"
	"bankguard/internal/gate/metrics"
	"bankguard/internal/ledger"
	limitModels "bankguard/internal/limits/models"
	otpModels "bankguard/internal/otp/models"
	"bankguard/internal/otp/stepup"
	rlModels "bankguard/internal/ratelimit/models"
	"bankguard/internal/security"
	"bankguard/internal/trust/fingerprint"
	trustModels "bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
)

const (
	// stepUpScoreThreshold forces OTP verification above this risk score.
	stepUpScoreThreshold = 50

	// historyWindow bounds how far back fraud scoring looks.
	historyWindow = 30 * 24 * time.Hour

	defaultEvidenceTimeout = 3 * time.Second
)

// stepUpAmountThreshold forces OTP verification at or above this amount.
var stepUpAmountThreshold = decimal.NewFromInt(10000)

const (
	reasonRateLimited     = "Too many requests. Please try again in %d seconds."
	reasonAccountInactive = "This account is not active."
	reasonAccountMismatch = "You do not have access to this account."
	reasonStepUpRequired  = "Additional verification is required to complete this action."
	reasonStepUpInvalid   = "The verification provided is invalid or expired. Complete verification and try again."
)

// RateLimiter is the fast first-line check keyed by client IP and user.
type RateLimiter interface {
	CheckBoth(ctx context.Context, ip, userID string, class rlModels.ActionClass) (*rlModels.Result, error)
}

// LimitChecker enforces tiered spend ceilings and transaction velocity.
type LimitChecker interface {
	CheckLimits(ctx context.Context, accountID id.AccountID, tier ledger.Tier, txType ledger.TransactionType, amount decimal.Decimal) (*limitModels.CheckResult, error)
	CheckVelocity(ctx context.Context, accountID id.AccountID, tier ledger.Tier) (*limitModels.VelocityResult, error)
}

// RiskScorer evaluates the weighted fraud heuristics and the
// cross-transaction pattern detectors.
type RiskScorer interface {
	Score(ctx context.Context, in scorer.Input) *fraudModels.Assessment
	AnalyzeSuspiciousActivity(ctx context.Context, account *ledger.Account, txns []ledger.Transaction) []fraudModels.PatternFinding
}

// DeviceRegistry tracks the client device and session history.
type DeviceRegistry interface {
	Identify(meta fingerprint.Metadata) string
	IsNewDevice(ctx context.Context, userID id.UserID, fp string) (bool, error)
	Register(ctx context.Context, userID id.UserID, meta fingerprint.Metadata) (*trustModels.Device, error)
	RecordSession(ctx context.Context, userID id.UserID, ipAddress, location string) error
	DetectSuspiciousSession(ctx context.Context, userID id.UserID, ipAddress string) ([]trustModels.SessionFlag, error)
}

// OTPService issues and verifies step-up codes.
type OTPService interface {
	Issue(ctx context.Context, userID id.UserID, purpose otpModels.Purpose, channel otpModels.Channel, destination string) (*otpModels.IssueResult, error)
	Verify(ctx context.Context, userID id.UserID, purpose otpModels.Purpose, supplied string) (*otpModels.VerifyResult, error)
}

// StepUpVerifier validates a step-up assertion produced by a prior OTP
// confirmation.
type StepUpVerifier interface {
	Validate(token string, userID id.UserID, purpose otpModels.Purpose) (*stepup.AssertionClaims, error)
}

// Auditor is the security monitor surface the gate writes through.
type Auditor interface {
	Record(ctx context.Context, event security.Event)
	RecordSync(ctx context.Context, event security.Event) error
	TrackSuspiciousTransaction(ctx context.Context, actorID, transactionID string, score int, meta security.Metadata) error
	TrackSuspiciousPattern(ctx context.Context, actorID, accountID, pattern, description string, severity security.Severity) error
}

// Deps bundles the required collaborators. Every field must be set.
type Deps struct {
	Accounts     ledger.AccountStore
	Transactions ledger.TransactionStore
	RateLimiter  RateLimiter
	Limits       LimitChecker
	Scorer       RiskScorer
	Trust        DeviceRegistry
	OTP          OTPService
	Assertions   StepUpVerifier
	Monitor      Auditor
}

func (d Deps) validate() error {
	switch {
	case d.Accounts == nil:
		return fmt.Errorf("account store is required")
	case d.Transactions == nil:
		return fmt.Errorf("transaction store is required")
	case d.RateLimiter == nil:
		return fmt.Errorf("rate limiter is required")
	case d.Limits == nil:
		return fmt.Errorf("limit checker is required")
	case d.Scorer == nil:
		return fmt.Errorf("risk scorer is required")
	case d.Trust == nil:
		return fmt.Errorf("device registry is required")
	case d.OTP == nil:
		return fmt.Errorf("otp service is required")
	case d.Assertions == nil:
		return fmt.Errorf("step-up verifier is required")
	case d.Monitor == nil:
		return fmt.Errorf("security monitor is required")
	}
	return nil
}

type Service struct {
	deps            Deps
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	now             func() time.Time
	evidenceTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = mx
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEvidenceTimeout bounds the concurrent account and history fetch.
func WithEvidenceTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.evidenceTimeout = d
		}
	}
}

func New(deps Deps, opts ...Option) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	svc := &Service{
		deps:            deps,
		now:             time.Now,
		evidenceTimeout: defaultEvidenceTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("bankguard/gate")
	}
	return svc, nil
}

// Evaluate walks the pipeline for one proposed action. A nil error means the
// returned decision was durably logged; an error means the call failed closed
// and the caller must treat the action as denied.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Decision, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "gate.evaluate", trace.WithAttributes(
		attribute.String("action", string(req.Action)),
		attribute.String("account_id", req.AccountID.String()),
	))
	decision, err := s.evaluate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.FailClosedTotal.Inc()
		}
	} else {
		span.SetAttributes(
			attribute.Bool("allowed", decision.Allowed),
			attribute.Bool("requires_step_up", decision.RequiresStepUp),
			attribute.Int("risk_score", decision.RiskScore),
			attribute.String("stage", string(decision.Stage)),
		)
	}
	span.End()
	if s.metrics != nil {
		s.metrics.EvaluationSeconds.Observe(s.now().Sub(start).Seconds())
	}
	return decision, err
}

func (s *Service) evaluate(ctx context.Context, req Request) (*Decision, error) {
	rate, err := s.deps.RateLimiter.CheckBoth(ctx, req.IPAddress, req.UserID.String(), rlModels.ClassTransaction)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "rate limit check failed")
	}
	if !rate.Allowed {
		return s.finalize(ctx, req, &Decision{
			Stage:      StageRateChecked,
			Reason:     fmt.Sprintf(reasonRateLimited, rate.RetryAfter),
			RetryAfter: rate.RetryAfter,
		}, security.ActionRateLimited)
	}

	account, history, err := s.gatherEvidence(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != req.UserID {
		return s.finalize(ctx, req, &Decision{
			Stage:  StageRateChecked,
			Reason: reasonAccountMismatch,
		}, security.ActionGateDecision)
	}
	if !account.Active {
		return s.finalize(ctx, req, &Decision{
			Stage:  StageRateChecked,
			Reason: reasonAccountInactive,
		}, security.ActionGateDecision)
	}

	velocity, err := s.deps.Limits.CheckVelocity(ctx, req.AccountID, account.Tier)
	if err != nil {
		return nil, err
	}
	if !velocity.Allowed {
		return s.finalize(ctx, req, &Decision{
			Stage:      StageVelocityChecked,
			Reason:     velocity.Reason,
			RetryAfter: velocity.WaitSeconds,
		}, security.ActionVelocityExceeded)
	}

	limits, err := s.deps.Limits.CheckLimits(ctx, req.AccountID, account.Tier, req.Action, req.Amount)
	if err != nil {
		return nil, err
	}
	if !limits.Allowed {
		return s.finalize(ctx, req, &Decision{
			Stage:  StageLimitChecked,
			Reason: limits.Reason,
		}, security.ActionLimitExceeded)
	}

	now := s.now()
	assessment := s.deps.Scorer.Score(ctx, scorer.Input{
		Transaction: ledger.Transaction{
			ID:        id.NewEventID().String(),
			AccountID: req.AccountID,
			Type:      req.Action,
			Amount:    req.Amount,
			Location:  req.Location,
			CreatedAt: now,
			Status:    ledger.StatusPending,
		},
		Account: account,
		History: history,
		Now:     now,
	})
	if assessment.Suspicious {
		err := s.deps.Monitor.TrackSuspiciousTransaction(ctx, req.UserID.String(), "", assessment.Score, security.Metadata{
			Amount:   req.Amount.String(),
			Tier:     string(account.Tier),
			Location: req.Location,
		})
		if err != nil {
			return nil, err
		}

		// Pattern detectors reuse the history already fetched for scoring.
		for _, f := range s.deps.Scorer.AnalyzeSuspiciousActivity(ctx, account, history) {
			err := s.deps.Monitor.TrackSuspiciousPattern(ctx, req.UserID.String(), req.AccountID.String(),
				string(f.Pattern), f.Description, security.Severity(f.Severity))
			if err != nil {
				return nil, err
			}
		}
	}

	if s.stepUpRequired(req, assessment.Score) {
		if s.metrics != nil {
			s.metrics.StepUpRequired.Inc()
		}
		if req.StepUpAssertion == "" {
			return s.finalize(ctx, req, &Decision{
				RequiresStepUp: true,
				Stage:          StageStepUpRequired,
				Reason:         reasonStepUpRequired,
				RiskScore:      assessment.Score,
			}, security.ActionGateDecision)
		}
		if _, err := s.deps.Assertions.Validate(req.StepUpAssertion, req.UserID, StepUpPurpose); err != nil {
			return s.finalize(ctx, req, &Decision{
				RequiresStepUp: true,
				Stage:          StageStepUpRequired,
				Reason:         reasonStepUpInvalid,
				RiskScore:      assessment.Score,
			}, security.ActionGateDecision)
		}
	}

	newDevice, flags, err := s.checkTrust(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.finalize(ctx, req, &Decision{
		Allowed:      true,
		Stage:        StageDecided,
		RiskScore:    assessment.Score,
		NewDevice:    newDevice,
		SessionFlags: flags,
	}, security.ActionGateDecision)
}

// gatherEvidence fetches the account and its recent history concurrently
// under a bounded timeout. A timeout or store error fails the evaluation.
func (s *Service) gatherEvidence(ctx context.Context, accountID id.AccountID) (*ledger.Account, []ledger.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.evidenceTimeout)
	defer cancel()

	var (
		account *ledger.Account
		history []ledger.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.deps.Accounts.Get(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.deps.Transactions.ListByAccountSince(gctx, accountID, s.now().Add(-historyWindow))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to load account evidence")
	}
	return account, history, nil
}

// stepUpRequired applies the policy table: large amounts, elevated risk
// scores, and inherently high-risk action types all demand verification.
func (s *Service) stepUpRequired(req Request, score int) bool {
	if req.Amount.GreaterThanOrEqual(stepUpAmountThreshold) {
		return true
	}
	if score >= stepUpScoreThreshold {
		return true
	}
	return req.Action == ledger.TypeWire
}

// checkTrust registers the client device, records the session, and surfaces
// suspicious-session flags. Flags inform the decision record; they do not
// deny on their own.
func (s *Service) checkTrust(ctx context.Context, req Request) (bool, []trustModels.SessionFlag, error) {
	meta := fingerprint.Metadata{
		UserAgent:      req.UserAgent,
		AcceptLanguage: req.AcceptLanguage,
		AcceptEncoding: req.AcceptEncoding,
		IPAddress:      req.IPAddress,
	}
	fp := s.deps.Trust.Identify(meta)
	newDevice, err := s.deps.Trust.IsNewDevice(ctx, req.UserID, fp)
	if err != nil {
		return false, nil, err
	}

	flags, err := s.deps.Trust.DetectSuspiciousSession(ctx, req.UserID, req.IPAddress)
	if err != nil {
		return false, nil, err
	}
	if len(flags) > 0 {
		event := security.Event{
			Severity:    security.SeverityMedium,
			Action:      security.ActionSuspiciousSession,
			ActorID:     req.UserID.String(),
			IPAddress:   req.IPAddress,
			UserAgent:   req.UserAgent,
			Description: fmt.Sprintf("session flagged: %s", flags[0].Reason),
			Metadata:    security.Metadata{Fingerprint: fp},
		}
		s.deps.Monitor.Record(ctx, event)
	}

	if _, err := s.deps.Trust.Register(ctx, req.UserID, meta); err != nil {
		return false, nil, err
	}
	if err := s.deps.Trust.RecordSession(ctx, req.UserID, req.IPAddress, req.Location); err != nil {
		return false, nil, err
	}
	return newDevice, flags, nil
}

// finalize stamps the decision, writes its audit record, and returns it. The
// write is synchronous: when it fails the evaluation fails closed and the
// provisional decision is discarded.
func (s *Service) finalize(ctx context.Context, req Request, d *Decision, action security.Action) (*Decision, error) {
	if d.Stage == "" {
		d.Stage = StageDecided
	}
	severity := security.SeverityMedium
	outcome := "denied"
	if d.Allowed {
		severity = security.SeverityLow
		outcome = "allowed"
	} else if d.RequiresStepUp {
		outcome = "step_up_required"
	}

	event := security.Event{
		Severity:    severity,
		Action:      action,
		ActorID:     req.UserID.String(),
		EntityType:  "account",
		EntityID:    req.AccountID.String(),
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		Description: fmt.Sprintf("gate %s %s at %s", outcome, req.Action, d.Stage),
		Metadata: security.Metadata{
			Score:    d.RiskScore,
			Amount:   req.Amount.String(),
			Location: req.Location,
			Reason:   d.Reason,
		},
	}
	if err := s.deps.Monitor.RecordSync(ctx, event); err != nil {
		s.logAudit(ctx, "gate_decision_log_failed",
			"account_id", req.AccountID,
			"stage", d.Stage,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to record gate decision")
	}

	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(outcome, string(d.Stage)).Inc()
	}
	s.logAudit(ctx, "gate_decision",
		"account_id", req.AccountID,
		"action", req.Action,
		"outcome", outcome,
		"stage", d.Stage,
		"risk_score", d.RiskScore,
	)
	return d, nil
}

// IssueStepUp creates and delivers a step-up code for the user.
func (s *Service) IssueStepUp(ctx context.Context, userID id.UserID, purpose otpModels.Purpose, channel otpModels.Channel, destination string) (*otpModels.IssueResult, error) {
	result, err := s.deps.OTP.Issue(ctx, userID, purpose, channel, destination)
	if err != nil {
		return nil, err
	}
	s.deps.Monitor.Record(ctx, security.Event{
		Severity:    security.SeverityLow,
		Action:      security.ActionOTPIssued,
		ActorID:     userID.String(),
		Description: fmt.Sprintf("step-up code issued for %s via %s", purpose, channel),
	})
	return result, nil
}

// ConfirmStepUp verifies a step-up code. On success the result carries an
// assertion the caller can attach to a subsequent Evaluate request.
func (s *Service) ConfirmStepUp(ctx context.Context, userID id.UserID, purpose otpModels.Purpose, code string) (*otpModels.VerifyResult, error) {
	result, err := s.deps.OTP.Verify(ctx, userID, purpose, code)
	if err != nil {
		return nil, err
	}
	action := security.ActionOTPVerified
	severity := security.SeverityLow
	if !result.Valid {
		action = security.ActionOTPFailed
		severity = security.SeverityMedium
	}
	s.deps.Monitor.Record(ctx, security.Event{
		Severity:    severity,
		Action:      action,
		ActorID:     userID.String(),
		Description: fmt.Sprintf("step-up verification for %s", purpose),
		Metadata:    security.Metadata{Reason: result.Reason},
	})
	return result, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	attrs = append(attrs, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, attrs...)
}
