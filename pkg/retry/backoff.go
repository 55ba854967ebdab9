package retry

import (
	"context"
	"time"
)

// BackoffStrategy decides how long to wait after a failed attempt
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff waits the same fixed delay after every failure
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns the constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || cb.Delay < 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
