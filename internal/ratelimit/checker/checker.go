package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bankguard/internal/platform/privacy"
	"bankguard/internal/ratelimit/config"
	"bankguard/internal/ratelimit/metrics"
	"bankguard/internal/ratelimit/models"
	dErrors "bankguard/pkg/domain-errors"
	"bankguard/pkg/requestcontext"
)

const (
	keyPrefixIP   = "ip"
	keyPrefixUser = "user"
)

// WindowStore defines the persistence interface for fixed-window counters.
type WindowStore interface {
	// Incr atomically increments the counter for key, starting a fresh
	// window when needed. Returns the post-increment count and reset time.
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}

// Service handles high-traffic rate limit checking. It is the cheap
// first-line gate: pure counter arithmetic, no persistent-store queries.
type Service struct {
	windows WindowStore
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(windows WindowStore, opts ...Option) (*Service, error) {
	if windows == nil {
		return nil, fmt.Errorf("window store is required")
	}

	svc := &Service{
		windows: windows,
		config:  config.DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP throttles by client IP for the given action class.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.ActionClass) (*models.Result, error) {
	return s.check(ctx, keyPrefixIP, ip, class, privacy.AnonymizeIP(ip))
}

// CheckUser throttles by user identity for the given action class.
func (s *Service) CheckUser(ctx context.Context, userID string, class models.ActionClass) (*models.Result, error) {
	return s.check(ctx, keyPrefixUser, userID, class, userID)
}

// CheckBoth applies the IP check first, then the user check. The caller gets
// the first denial, or the more restrictive of the two passing results.
func (s *Service) CheckBoth(ctx context.Context, ip, userID string, class models.ActionClass) (*models.Result, error) {
	ipRes, err := s.CheckIP(ctx, ip, class)
	if err != nil {
		return nil, err
	}
	if !ipRes.Allowed {
		return ipRes, nil
	}
	userRes, err := s.CheckUser(ctx, userID, class)
	if err != nil {
		return nil, err
	}
	if !userRes.Allowed {
		return userRes, nil
	}
	if ipRes.Remaining < userRes.Remaining {
		return ipRes, nil
	}
	return userRes, nil
}

// check runs the fixed-window decision. The request that pushes the count
// over the limit is itself denied but still recorded, so repeated attempts
// during a hot window stay denied until the reset.
func (s *Service) check(ctx context.Context, keyPrefix, identifier string, class models.ActionClass, logIdentifier string) (*models.Result, error) {
	maxRequests, window := s.config.Get(class)

	key := fmt.Sprintf("%s:%s:%s", keyPrefix, identifier, class)
	count, resetAt, err := s.windows.Incr(ctx, key, window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to check rate limit")
	}

	if s.metrics != nil {
		s.metrics.IncrementChecks(string(class))
	}

	allowed := count <= maxRequests
	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	result := &models.Result{
		Allowed:   allowed,
		Limit:     maxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !allowed {
		result.RetryAfter = retryAfterSeconds(resetAt)
		if s.metrics != nil {
			s.metrics.IncrementDenied(string(class))
		}
		s.logAudit(ctx, "rate_limit_exceeded",
			"identifier", logIdentifier,
			"action_class", class,
			"limit", maxRequests,
			"window_seconds", int(window.Seconds()),
		)
	}

	return result, nil
}

// Reset clears the window for one identifier. Admin/testing hook.
func (s *Service) Reset(ctx context.Context, keyPrefix, identifier string, class models.ActionClass) error {
	key := fmt.Sprintf("%s:%s:%s", keyPrefix, identifier, class)
	if err := s.windows.Reset(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "failed to reset rate limit")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func retryAfterSeconds(resetAt time.Time) int {
	seconds := int(time.Until(resetAt).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
