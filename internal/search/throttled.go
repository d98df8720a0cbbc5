package search

import (
	"context"
	"time"

	"github.com/ppiankov/horizon/internal/worker"
)

// Throttled bounds searches with the search throttle and a per-call timeout
type Throttled struct {
	inner    Searcher
	throttle *worker.Throttle
	timeout  time.Duration
}

// NewThrottled wraps inner
func NewThrottled(inner Searcher, throttle *worker.Throttle, timeout time.Duration) *Throttled {
	return &Throttled{inner: inner, throttle: throttle, timeout: timeout}
}

// Name returns the wrapped searcher's name
func (t *Throttled) Name() string {
	return t.inner.Name()
}

// Search waits for the throttle, then delegates under the call timeout
func (t *Throttled) Search(ctx context.Context, query string) ([]Result, error) {
	release, err := t.throttle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.inner.Search(ctx, query)
}
