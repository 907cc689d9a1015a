package client

import (
	"context"
	"time"

	"github.com/lhassa8/LMCP/logx"
)

// NewRetryInterceptor returns an interceptor that re-invokes the handler on
// transient failures (connection lost, timeout) according to the backoff
// strategy. Deterministic failures such as validation errors and
// tool-reported failures are returned as-is: retrying them would reproduce
// the same outcome.
func NewRetryInterceptor(backoff BackoffStrategy, logger logx.Logger) Interceptor {
	if backoff == nil {
		backoff = NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 3)
	}
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (*ToolResult, error) {
			maxAttempts := backoff.MaxAttempts()
			if maxAttempts < 1 {
				maxAttempts = 1
			}

			var lastErr error
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				inv.Attempt = attempt
				result, err := next(ctx, inv)
				if err == nil {
					return result, nil
				}
				if !IsTransient(err) {
					return nil, err
				}
				lastErr = err

				if attempt == maxAttempts {
					break
				}
				delay := backoff.NextDelay(attempt)
				logger.Warn("tool %q attempt %d/%d failed (%v), retrying in %v",
					inv.Tool, attempt, maxAttempts, err, delay)
				if err := sleepCtx(ctx, delay); err != nil {
					return nil, err
				}
			}
			return nil, NewRetryExhaustedError(maxAttempts, lastErr)
		}
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
