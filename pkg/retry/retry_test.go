package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
)

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 3 * time.Second}

	for attempt := 1; attempt <= 5; attempt++ {
		if got := backoff.NextDelay(attempt); got != 3*time.Second {
			t.Errorf("Attempt %d: expected 3s, got %v", attempt, got)
		}
	}
	if got := backoff.NextDelay(0); got != 0 {
		t.Errorf("Expected no delay before the first attempt, got %v", got)
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context, attempt int) error {
		attempts++
		if attempt != attempts {
			t.Errorf("Expected attempt %d, got %d", attempts, attempt)
		}
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(context.Background(), cfg, op); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	var retries []int
	persistent := errors.New("persistent error")

	cfg := Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retries = append(retries, attempt)
		},
	}

	err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		attempts++
		return persistent
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Expected 3 attempts recorded, got %d", exhausted.Attempts)
	}
	if !errors.Is(err, persistent) {
		t.Error("Expected the last error to be wrapped")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	// No wait is scheduled after the final attempt
	if len(retries) != 2 {
		t.Errorf("Expected 2 retry callbacks, got %v", retries)
	}
}

func TestNoWaitAfterFinalAttempt(t *testing.T) {
	cfg := Config{
		MaxAttempts: 1,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
	}

	start := time.Now()
	err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Expected an immediate return, took %v", time.Since(start))
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	invalid := errs.New(errs.ErrorTypeInvalidLink, "empty href")

	cfg := Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewTestLogger(),
	}

	err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		attempts++
		return invalid
	})
	if err != invalid {
		t.Errorf("Expected invalid link error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	attempts := 0

	cfg := Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Minute},
		RetryIf:     func(err error) bool { return true },
	}

	err := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		attempts++
		cancel()
		return errors.New("error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), true},
		{"download", errs.New(errs.ErrorTypeDownload, "x"), true},
		{"too small", errs.New(errs.ErrorTypeTooSmall, "x"), true},
		{"size mismatch", errs.New(errs.ErrorTypeSizeMismatch, "x"), false},
		{"cancelled", context.Canceled, false},
		{"wrapped deadline", errs.Wrap(errs.ErrorTypeDownload, "x", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	cfg := Config{MaxAttempts: 3}

	result, err := DoWithResult(context.Background(), cfg, func(ctx context.Context, attempt int) (int64, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("temporary error")
		}
		return 20000, nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != 20000 {
		t.Errorf("Expected 20000, got %d", result)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestInvalidMaxAttempts(t *testing.T) {
	called := false
	err := Do(context.Background(), Config{}, func(ctx context.Context, attempt int) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Errorf("Expected a configuration error without calling op, got err=%v called=%v", err, called)
	}
}

func TestWait(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Expected no error for zero delay, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
