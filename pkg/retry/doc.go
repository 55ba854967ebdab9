// Package retry runs an operation a bounded number of times with a backoff
// between failed attempts.
//
// Attempts are strictly sequential. The backoff wait observes the context and
// is skipped after the final attempt. When every attempt fails, the returned
// error is an *ExhaustedError wrapping the last failure.
//
//	err := retry.Do(ctx, retry.Config{
//		MaxAttempts: 20,
//		Backoff:     &retry.ConstantBackoff{Delay: 3 * time.Second},
//		Logger:      log,
//	}, func(ctx context.Context, attempt int) error {
//		return fetch(ctx)
//	})
package retry
