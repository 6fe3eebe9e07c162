package config

import (
	"time"

	"bankguard/internal/ratelimit/models"
)

// Limit defines fixed-window parameters for one action class.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Config holds the named per-class rate limit configurations.
type Config struct {
	Limits map[models.ActionClass]Limit
}

// DefaultConfig returns the stock limiter configuration. The auth class gets
// a longer window and a low ceiling because credential guessing is slow-rate
// abuse; transactions get a tight per-minute window.
func DefaultConfig() *Config {
	return &Config{
		Limits: map[models.ActionClass]Limit{
			models.ClassAuth:        {MaxRequests: 5, Window: 15 * time.Minute},
			models.ClassTransaction: {MaxRequests: 10, Window: time.Minute},
			models.ClassSensitive:   {MaxRequests: 30, Window: time.Minute},
			models.ClassDefault:     {MaxRequests: 100, Window: time.Minute},
		},
	}
}

// Get returns the limit for an action class, falling back to the default
// class when the class is unknown.
func (c *Config) Get(class models.ActionClass) (maxRequests int, window time.Duration) {
	if limit, ok := c.Limits[class]; ok {
		return limit.MaxRequests, limit.Window
	}
	limit := c.Limits[models.ClassDefault]
	return limit.MaxRequests, limit.Window
}
