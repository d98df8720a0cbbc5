package llm

import (
	"context"

	"github.com/ppiankov/horizon/internal/worker"
)

// ThrottledProvider routes every completion through a shared throttle so the
// scorer, enricher and recommender together respect one concurrency cap and
// request rate.
type ThrottledProvider struct {
	inner    Provider
	throttle *worker.Throttle
}

// NewThrottledProvider wraps p
func NewThrottledProvider(p Provider, throttle *worker.Throttle) *ThrottledProvider {
	return &ThrottledProvider{inner: p, throttle: throttle}
}

// Name returns the wrapped provider's name
func (t *ThrottledProvider) Name() string {
	return t.inner.Name()
}

// IsAvailable is not throttled
func (t *ThrottledProvider) IsAvailable(ctx context.Context) bool {
	return t.inner.IsAvailable(ctx)
}

// Complete waits for the throttle before delegating
func (t *ThrottledProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	release, err := t.throttle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return t.inner.Complete(ctx, req)
}
