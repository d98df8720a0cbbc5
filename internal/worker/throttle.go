package worker

import (
	"context"
	"sync"
)

// Throttle bounds one upstream capability with a concurrency cap and a
// request rate. Every model call and search goes through exactly one.
type Throttle struct {
	name    string
	sem     chan struct{}
	limiter *Limiter
}

// NewThrottle creates a throttle allowing at most concurrency calls in flight
// and requestsPerSecond starts (0 = no rate limit).
func NewThrottle(name string, concurrency int, requestsPerSecond float64, burst int) *Throttle {
	if concurrency <= 0 {
		concurrency = 1
	}
	if burst <= 0 {
		burst = concurrency
	}

	return &Throttle{
		name:    name,
		sem:     make(chan struct{}, concurrency),
		limiter: NewLimiter(requestsPerSecond, burst),
	}
}

// Name returns the capability this throttle guards
func (t *Throttle) Name() string {
	return t.name
}

// Acquire blocks until a slot and a rate token are available. The returned
// release func must be called exactly once when the call finishes.
func (t *Throttle) Acquire(ctx context.Context) (func(), error) {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := t.limiter.Wait(ctx, t.name); err != nil {
		<-t.sem
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-t.sem })
	}, nil
}

// Do runs fn while holding the throttle
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := t.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// InFlight reports how many calls currently hold a slot
func (t *Throttle) InFlight() int {
	return len(t.sem)
}
