package cleanup

import (
	"context"
	"log/slog"
	"time"

	"bankguard/internal/otp/metrics"
)

// CleanupResult contains the results of a cleanup run.
type CleanupResult struct {
	CodesDeleted int
	Duration     time.Duration
}

type CodeStore interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (deleted int, err error)
}

type Option func(*CodeCleanupService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *CodeCleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *CodeCleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CodeCleanupService) {
		s.metrics = m
	}
}

// CodeCleanupService deletes expired OTP codes on an interval. Housekeeping
// only: verification checks expiry itself regardless of sweep timing.
type CodeCleanupService struct {
	store    CodeStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(store CodeStore, opts ...Option) *CodeCleanupService {
	service := &CodeCleanupService{
		store:    store,
		logger:   slog.Default(),
		interval: 10 * time.Minute,
		metrics:  nil,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *CodeCleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Error("otp_cleanup_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
					s.metrics.CleanupDurationSeconds.Observe(duration.Seconds())
				}
				continue
			}

			res.Duration = duration

			s.logger.Info("otp_cleanup_completed",
				"codes_deleted", res.CodesDeleted,
				"duration_ms", duration.Milliseconds(),
			)

			if s.metrics != nil {
				s.metrics.CleanupDeletedTotal.Add(float64(res.CodesDeleted))
				s.metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
				s.metrics.CleanupDurationSeconds.Observe(duration.Seconds())
			}

		case <-ctx.Done():
			s.logger.Info("otp cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single cleanup run. Logging is handled by the caller (Start).
func (s *CodeCleanupService) RunOnce(ctx context.Context) (*CleanupResult, error) {
	deleted, err := s.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return &CleanupResult{CodesDeleted: deleted}, nil
}
