package ble

import (
	"context"
	"time"
)

// Backoff returns the delay after failed attempt n (1-based).
type Backoff func(attempt int) time.Duration

// FixedBackoff waits d after every failed attempt.
func FixedBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles from base per attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return backoffDelay(attempt-1, base, max)
	}
}

// backoffDelay returns base*2^n capped at max.
func backoffDelay(n int, base, max time.Duration) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 30 || base > max>>uint(n) {
		return max
	}
	return base << uint(n)
}

// sleep waits for d or until ctx is done. Non-positive durations return at once.
func sleep(ctx context.Context, d time.Duration) error {
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
