// Package retry provides the single backoff policy shared by every stage that
// retries upstream calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries a call with exponential backoff: BaseDelay, doubling, capped at MaxDelay
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnRetry is called before sleeping after a failed attempt (optional)
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns 3 attempts, base 2s, cap 10s
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// ErrPermanent marks an error that must not be retried
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so that Do stops retrying
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Backoff returns the delay after the given failed attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do calls fn until it succeeds, returns a permanent error, the context ends,
// or MaxAttempts calls have been made. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPermanent) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
