package fetcher

import (
	"context"

	"go.uber.org/zap"
)

// PageStore is the subset of the page cache the fetcher needs.
type PageStore interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte) error
}

// CachingFetcher serves Ok bodies from the store and remembers new ones.
// Blocked and Failed outcomes are never cached. Store errors degrade to a
// plain fetch.
type CachingFetcher struct {
	next   Fetcher
	store  PageStore
	logger *zap.Logger
}

func NewCachingFetcher(next Fetcher, store PageStore, logger *zap.Logger) *CachingFetcher {
	return &CachingFetcher{
		next:   next,
		store:  store,
		logger: logger,
	}
}

func (c *CachingFetcher) Fetch(ctx context.Context, url string) Result {
	if body, ok, err := c.store.Get(ctx, url); err == nil && ok {
		c.logger.Debug("Page cache hit", zap.String("url", url))
		result := Ok(url, body)
		result.Cached = true
		return result
	}

	result := c.next.Fetch(ctx, url)
	if result.Outcome == OutcomeOk {
		if err := c.store.Set(ctx, url, result.Body); err != nil {
			c.logger.Debug("Page cache store skipped", zap.String("url", url), zap.Error(err))
		}
	}
	return result
}
