package retry

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Runner executes an operation under a Policy.
type Runner struct {
	Policy Policy
	Sleep  Sleeper
	// OnRetry is called after a failed attempt, before waiting delay.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Do calls fn until it succeeds or the policy is exhausted. It returns the
// number of attempts made and the last error. The delay is only waited
// between attempts, never after the final one.
func (r Runner) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	total := r.Policy.Attempts()

	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt == total {
			return attempt, lastErr
		}
		delay := r.Policy.Delay(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
	return total, lastErr
}
