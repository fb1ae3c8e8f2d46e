package fetcher

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BreakerState is the state of a BreakerFetcher.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

func (s BreakerState) String() string {
	return string(s)
}

// BreakerFetcher stops calling the source after threshold consecutive
// outage results (transport errors and 5xx). While open every fetch fails
// immediately; after resetTimeout one probe is let through.
type BreakerFetcher struct {
	next         Fetcher
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger

	mu        sync.Mutex
	state     BreakerState
	failures  int
	nextProbe time.Time
}

func NewBreakerFetcher(next Fetcher, threshold int, resetTimeout time.Duration, logger *zap.Logger) *BreakerFetcher {
	if threshold <= 0 {
		threshold = 1
	}
	return &BreakerFetcher{
		next:         next,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
		logger:       logger,
		state:        BreakerClosed,
	}
}

func (b *BreakerFetcher) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerFetcher) Fetch(ctx context.Context, url string) Result {
	if !b.allow() {
		return Failed(url, 0, "circuit open")
	}
	result := b.next.Fetch(ctx, url)
	if isOutage(result) && ctx.Err() == nil {
		b.recordFailure()
	} else {
		b.recordSuccess()
	}
	return result
}

func isOutage(r Result) bool {
	if r.Outcome != OutcomeFailed {
		return false
	}
	return r.StatusCode == 0 || r.StatusCode >= http.StatusInternalServerError
}

func (b *BreakerFetcher) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && !b.now().Before(b.nextProbe) {
		b.transitionTo(BreakerHalfOpen)
	}
	return b.state != BreakerOpen
}

func (b *BreakerFetcher) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.logger.Info("Source recovered")
		b.transitionTo(BreakerClosed)
	}
	b.failures = 0
}

func (b *BreakerFetcher) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.logger.Warn("Source failure recorded",
		zap.Int("count", b.failures),
		zap.Int("threshold", b.threshold))

	// a failed probe reopens at once
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.nextProbe = b.now().Add(b.resetTimeout)
		b.transitionTo(BreakerOpen)
	}
}

// must be called with mu held
func (b *BreakerFetcher) transitionTo(state BreakerState) {
	old := b.state
	b.state = state

	nextProbe := "n/a"
	if state == BreakerOpen {
		nextProbe = b.nextProbe.Format(time.RFC3339)
	}
	b.logger.Info("Circuit state transition",
		zap.String("from", old.String()),
		zap.String("to", state.String()),
		zap.Int("failure_count", b.failures),
		zap.String("next_probe", nextProbe))
}
