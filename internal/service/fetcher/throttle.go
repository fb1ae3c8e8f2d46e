package fetcher

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ThrottledFetcher waits a random delay in [min, max] before every fetch
// except the first one of its lifetime.
type ThrottledFetcher struct {
	next   Fetcher
	min    time.Duration
	max    time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger

	mu      sync.Mutex
	fetched bool
}

func NewThrottledFetcher(next Fetcher, min, max time.Duration, logger *zap.Logger) *ThrottledFetcher {
	if max < min {
		max = min
	}
	return &ThrottledFetcher{
		next:   next,
		min:    min,
		max:    max,
		sleep:  sleepContext,
		logger: logger,
	}
}

func (t *ThrottledFetcher) Fetch(ctx context.Context, url string) Result {
	t.mu.Lock()
	wait := t.fetched
	t.fetched = true
	t.mu.Unlock()

	if wait {
		delay := t.delay()
		t.logger.Debug("Throttling before fetch", zap.String("url", url), zap.Duration("delay", delay))
		if err := t.sleep(ctx, delay); err != nil {
			return Failed(url, 0, "canceled while throttling")
		}
	}
	return t.next.Fetch(ctx, url)
}

func (t *ThrottledFetcher) delay() time.Duration {
	if t.max <= t.min {
		return t.min
	}
	return t.min + rand.N(t.max-t.min+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
