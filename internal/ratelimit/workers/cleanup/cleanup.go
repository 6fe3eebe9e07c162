package cleanup

import (
	"context"
	"log/slog"
	"time"

	"bankguard/internal/ratelimit/metrics"
)

// CleanupResult contains the results of a cleanup run.
type CleanupResult struct {
	WindowsPurged int           // Number of expired windows dropped
	Duration      time.Duration // Time taken for cleanup run
}

type WindowStore interface {
	PurgeExpired(ctx context.Context, now time.Time) (purged int, err error)
}

type Option func(*WindowCleanupService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *WindowCleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *WindowCleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *WindowCleanupService) {
		s.metrics = m
	}
}

// WindowCleanupService drops expired fixed-window counters on an interval.
// The limiter restarts elapsed windows itself, so this worker only bounds
// memory held by identifiers that stopped sending traffic.
type WindowCleanupService struct {
	store    WindowStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(store WindowStore, opts ...Option) *WindowCleanupService {
	service := &WindowCleanupService{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
		metrics:  nil,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *WindowCleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Error("ratelimit_cleanup_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.RateLimitCleanupRunsTotal.WithLabelValues("error").Inc()
					s.metrics.RateLimitCleanupDurationSeconds.Observe(duration.Seconds())
				}
				continue
			}

			res.Duration = duration

			s.logger.Info("ratelimit_cleanup_completed",
				"windows_purged", res.WindowsPurged,
				"duration_ms", duration.Milliseconds(),
			)

			if s.metrics != nil {
				s.metrics.RateLimitCleanupWindowsPurged.Add(float64(res.WindowsPurged))
				s.metrics.RateLimitCleanupRunsTotal.WithLabelValues("success").Inc()
				s.metrics.RateLimitCleanupDurationSeconds.Observe(duration.Seconds())
			}

		case <-ctx.Done():
			s.logger.Info("ratelimit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single cleanup run. Logging is handled by the caller (Start).
func (s *WindowCleanupService) RunOnce(ctx context.Context) (*CleanupResult, error) {
	purged, err := s.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return &CleanupResult{WindowsPurged: purged}, nil
}
