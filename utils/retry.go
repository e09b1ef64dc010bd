package utils

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Retrier executes operations with exponential back-off.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Log         *zap.Logger
}

// Do runs fn until it succeeds, attempts are exhausted, or the context
// is cancelled. The delay doubles after each failed attempt.
func (r *Retrier) Do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < r.MaxAttempts {
			r.Log.Warn("operation failed, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, r.MaxAttempts, lastErr)
}
