// Package service implements the one-time password lifecycle: issuance with
// a per-purpose resend cooldown, attempt-limited verification, and delivery
// handoff. Codes move issued -> used; expiry and attempt exhaustion also
// land on used so a dead code can never be retried.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bankguard/internal/notify"
	"bankguard/internal/otp/metrics"
	"bankguard/internal/otp/models"
	"bankguard/internal/sentinel"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
)

const (
	reasonInvalidOrExpired = "Invalid or expired code"
	reasonExpired          = "Code has expired"
	reasonTooManyAttempts  = "Too many attempts"
)

// CodeStore is the persistence port for issued codes.
type CodeStore interface {
	Create(ctx context.Context, code *models.Code) error
	GetLatest(ctx context.Context, userID id.UserID, purpose models.Purpose) (*models.Code, error)
	GetLatestUnused(ctx context.Context, userID id.UserID, purpose models.Purpose) (*models.Code, error)
	MarkUsed(ctx context.Context, codeID id.CodeID, usedAt time.Time) error
	IncrementAttempts(ctx context.Context, codeID id.CodeID) (int, error)
	SupersedeUnused(ctx context.Context, userID id.UserID, purpose models.Purpose, supersededAt time.Time) (int, error)
}

// Assertions mints step-up proof on successful verification.
type Assertions interface {
	Issue(userID id.UserID, purpose models.Purpose) (string, time.Time, error)
}

type Service struct {
	store      CodeStore
	assertions Assertions
	notifier   notify.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
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

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
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

func New(store CodeStore, assertions Assertions, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if assertions == nil {
		return nil, fmt.Errorf("assertion issuer is required")
	}

	svc := &Service{
		store:      store,
		assertions: assertions,
		notifier:   notify.NewLogNotifier(nil),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue generates and delivers a fresh code. Prior unused codes for the same
// (user, purpose) are voided so at most one code is live per pair. Issuance
// inside the resend cooldown is rejected; the cooldown anchors on the last
// issuance regardless of its state.
func (s *Service) Issue(ctx context.Context, userID id.UserID, purpose models.Purpose, channel models.Channel, destination string) (*models.IssueResult, error) {
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown OTP purpose %q", purpose))
	}
	if !channel.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown OTP channel %q", channel))
	}

	now := s.now()

	latest, err := s.store.GetLatest(ctx, userID, purpose)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to check issuance history")
	}
	if latest != nil {
		if wait := models.ResendCooldown - now.Sub(latest.CreatedAt); wait > 0 {
			if s.metrics != nil {
				s.metrics.ResendThrottledTotal.Inc()
			}
			return nil, dErrors.New(dErrors.CodeRateExceeded,
				fmt.Sprintf("Please wait %d seconds before requesting a new code", int(wait.Seconds())+1))
		}
	}

	if _, err := s.store.SupersedeUnused(ctx, userID, purpose, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to void previous codes")
	}

	cleartext, err := generateCode(models.CodeLength)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cleartext), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	code := &models.Code{
		ID:        id.NewCodeID(),
		UserID:    userID,
		Purpose:   purpose,
		Channel:   channel,
		CodeHash:  string(hash),
		CreatedAt: now,
		ExpiresAt: now.Add(models.CodeTTL),
	}
	if err := s.store.Create(ctx, code); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to store code")
	}

	s.deliver(ctx, code, cleartext, destination)

	if s.metrics != nil {
		s.metrics.IssuedTotal.WithLabelValues(string(purpose)).Inc()
	}
	s.logAudit(ctx, "otp_issued",
		"code_id", code.ID,
		"user_id", userID,
		"purpose", purpose,
		"channel", channel,
	)

	return &models.IssueResult{
		CodeID:    code.ID,
		Code:      cleartext,
		Channel:   channel,
		ExpiresAt: code.ExpiresAt,
	}, nil
}

// Verify checks the supplied code against the most recently issued unused
// code for (user, purpose). Expired codes and exhausted codes are consumed
// on sight so further attempts stop matching anything.
func (s *Service) Verify(ctx context.Context, userID id.UserID, purpose models.Purpose, supplied string) (*models.VerifyResult, error) {
	now := s.now()

	code, err := s.store.GetLatestUnused(ctx, userID, purpose)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.invalid(ctx, "no_active_code", userID, purpose, &models.VerifyResult{
			Valid:  false,
			Reason: reasonInvalidOrExpired,
		}), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to load code")
	}

	if code.Expired(now) {
		if err := s.store.MarkUsed(ctx, code.ID, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to consume expired code")
		}
		return s.invalid(ctx, "expired", userID, purpose, &models.VerifyResult{
			Valid:  false,
			Reason: reasonExpired,
		}), nil
	}

	if code.Attempts >= models.MaxAttempts {
		if err := s.store.MarkUsed(ctx, code.ID, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to consume exhausted code")
		}
		return s.invalid(ctx, "attempts_exhausted", userID, purpose, &models.VerifyResult{
			Valid:  false,
			Reason: reasonTooManyAttempts,
		}), nil
	}

	if bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(supplied)) != nil {
		attempts, err := s.store.IncrementAttempts(ctx, code.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to record attempt")
		}
		remaining := models.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return s.invalid(ctx, "mismatch", userID, purpose, &models.VerifyResult{
			Valid:             false,
			Reason:            fmt.Sprintf("Invalid code. %d attempts remaining", remaining),
			AttemptsRemaining: remaining,
		}), nil
	}

	if err := s.store.MarkUsed(ctx, code.ID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to consume code")
	}

	assertion, assertionExpiry, err := s.assertions.Issue(userID, purpose)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue step-up assertion")
	}

	if s.metrics != nil {
		s.metrics.VerifiedTotal.WithLabelValues("valid").Inc()
	}
	s.logAudit(ctx, "otp_verified",
		"code_id", code.ID,
		"user_id", userID,
		"purpose", purpose,
	)

	return &models.VerifyResult{
		Valid:              true,
		Assertion:          assertion,
		AssertionExpiresAt: assertionExpiry,
	}, nil
}

// deliver hands the cleartext to the notifier without blocking the caller.
// Delivery failure is logged and counted; the code stays valid because the
// user may still receive it through a retry path.
func (s *Service) deliver(ctx context.Context, code *models.Code, cleartext, destination string) {
	requestID := requestcontext.RequestID(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sendCtx = requestcontext.WithRequestID(sendCtx, requestID)

		var err error
		switch code.Channel {
		case models.ChannelSMS:
			err = s.notifier.SendSMS(sendCtx, destination,
				fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
					cleartext, int(models.CodeTTL.Minutes())))
		default:
			err = s.notifier.SendEmail(sendCtx, destination, "Your verification code",
				fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
					cleartext, int(models.CodeTTL.Minutes())))
		}
		if err != nil {
			if s.metrics != nil {
				s.metrics.DeliveryFailuresTotal.WithLabelValues(string(code.Channel)).Inc()
			}
			s.logger.Error("otp delivery failed",
				"code_id", code.ID,
				"channel", code.Channel,
				"error", err,
			)
		}
	}()
}

func (s *Service) invalid(ctx context.Context, outcome string, userID id.UserID, purpose models.Purpose, result *models.VerifyResult) *models.VerifyResult {
	if s.metrics != nil {
		s.metrics.VerifiedTotal.WithLabelValues(outcome).Inc()
	}
	s.logAudit(ctx, "otp_verify_failed",
		"user_id", userID,
		"purpose", purpose,
		"outcome", outcome,
	)
	return result
}

// generateCode draws each digit independently from crypto/rand.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
