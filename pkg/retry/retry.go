// Package retry provides a small exponential-backoff helper for callers that
// talk to flaky collaborators. It is intentionally not wired into the booking
// hot path; integration failures there degrade instead of retrying.
package retry

import (
	"context"
	"time"
)

// Config controls backoff behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultConfig matches three attempts starting at one second.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs fn up to cfg.MaxAttempts times, doubling the delay between attempts.
// It returns the last error once attempts are exhausted or ctx is done.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}

	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
