package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
)

// Operation performs one attempt. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// OperationWithResult is an Operation that also produces a value
type OperationWithResult[T any] func(ctx context.Context, attempt int) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts. Must be positive.
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before waiting for the next attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// ExhaustedError is returned when every attempt failed
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	// Check for context errors (don't retry)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}

	// Default to retrying unknown errors
	return true
}

// Do runs op until it succeeds, returns a non-retryable error, or MaxAttempts
// is reached. There is no wait after the final attempt.
func Do(ctx context.Context, cfg Config, op Operation) error {
	_, err := DoWithResult(ctx, cfg, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, op(ctx, attempt)
	})
	return err
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg Config, op OperationWithResult[T]) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		return zero, fmt.Errorf("max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.Backoff == nil {
		cfg.Backoff = &ConstantBackoff{}
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": cfg.MaxAttempts,
		})

		if err := Wait(ctx, delay); err != nil {
			cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt,
				"reason":  err.Error(),
			})
			return zero, fmt.Errorf("retry cancelled after attempt %d: %w", attempt, err)
		}
	}

	cfg.Logger.DebugWithFields("max retry attempts exceeded", map[string]interface{}{
		"attempts":   cfg.MaxAttempts,
		"last_error": lastErr.Error(),
	})
	return zero, &ExhaustedError{Attempts: cfg.MaxAttempts, Last: lastErr}
}
