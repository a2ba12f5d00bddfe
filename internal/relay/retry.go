package relay

import (
	"context"
	"time"

	"github.com/af-corp/relay-gateway/internal/config"
)

// sleepFunc blocks for the given backoff delay. Injectable for tests.
type sleepFunc func(ctx context.Context, d time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// executeWithRetry runs attempt up to policy.Attempts times. The delay
// before attempt i+1 is BaseDelay × i; there is no delay before the first
// attempt. Every failure inside the attempt budget is retried identically;
// the executor does not distinguish retryable from non-retryable errors. On
// exhaustion the last attempt's error is returned unchanged so callers can
// inspect the original failure.
func executeWithRetry(ctx context.Context, policy config.RetryPolicy, sleep sleepFunc, attempt func() error) error {
	policy = policy.Normalize()
	if sleep == nil {
		sleep = defaultSleep
	}

	var lastErr error
	for i := 0; i < policy.Attempts; i++ {
		if i > 0 {
			sleep(ctx, policy.BaseDelay*time.Duration(i))
		}
		if err := attempt(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
