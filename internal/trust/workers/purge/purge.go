package purge

import (
	"context"
	"log/slog"
	"time"

	"bankguard/internal/trust/metrics"
	"bankguard/internal/trust/models"
)

// PurgeResult contains the results of a purge run.
type PurgeResult struct {
	DevicesDeleted int
	Duration       time.Duration
}

type DeviceStore interface {
	DeleteIdle(ctx context.Context, cutoff time.Time) (deleted int, err error)
}

type Option func(*DevicePurgeService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *DevicePurgeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *DevicePurgeService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithRetention(retention time.Duration) Option {
	return func(s *DevicePurgeService) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *DevicePurgeService) {
		s.metrics = m
	}
}

// DevicePurgeService drops device registrations idle past the retention
// window.
type DevicePurgeService struct {
	store     DeviceStore
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	metrics   *metrics.Metrics
}

func New(store DeviceStore, opts ...Option) *DevicePurgeService {
	service := &DevicePurgeService{
		store:     store,
		logger:    slog.Default(),
		interval:  24 * time.Hour,
		retention: models.IdleRetention,
		metrics:   nil,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *DevicePurgeService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Error("device_purge_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.PurgeRunsTotal.WithLabelValues("error").Inc()
					s.metrics.PurgeDurationSeconds.Observe(duration.Seconds())
				}
				continue
			}

			res.Duration = duration

			s.logger.Info("device_purge_completed",
				"devices_deleted", res.DevicesDeleted,
				"duration_ms", duration.Milliseconds(),
			)

			if s.metrics != nil {
				s.metrics.PurgeDeletedTotal.Add(float64(res.DevicesDeleted))
				s.metrics.PurgeRunsTotal.WithLabelValues("success").Inc()
				s.metrics.PurgeDurationSeconds.Observe(duration.Seconds())
			}

		case <-ctx.Done():
			s.logger.Info("device purge worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single purge run. Logging is handled by the caller (Start).
func (s *DevicePurgeService) RunOnce(ctx context.Context) (*PurgeResult, error) {
	deleted, err := s.store.DeleteIdle(ctx, time.Now().Add(-s.retention))
	if err != nil {
		return nil, err
	}
	return &PurgeResult{DevicesDeleted: deleted}, nil
}
