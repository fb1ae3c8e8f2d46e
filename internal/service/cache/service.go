package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/constants"
	"github.com/kapu/game-character-etl/pkg/errors"
)

// PageCache stores fetched page bodies in Redis, snappy-compressed and keyed
// by a hash of the URL.
type PageCache struct {
	client redis.Cmdable
	closer func() error
	ttl    time.Duration
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

func NewPageCache(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*PageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, constants.RedisConfig.ReadyTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis page cache connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
		zap.Duration("ttl", cfg.TTL),
	)

	cache := NewPageCacheWithClient(client, cfg.TTL, logger)
	cache.closer = client.Close
	return cache, nil
}

// NewPageCacheWithClient wraps an existing client; the caller owns its lifetime.
func NewPageCacheWithClient(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *PageCache {
	if ttl <= 0 {
		ttl = constants.CacheTTL.Page
	}
	return &PageCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key for url.
func Key(url string) string {
	return constants.CacheKeys.PagePrefix + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

// Get returns the cached body of url. A miss is (nil, false, nil).
func (c *PageCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	key := Key(url)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		c.logger.Warn("Page cache get failed", zap.String("url", url), zap.Error(err))
		return nil, false, errors.NewCacheError("get failed", "get", key, err)
	}

	body, err := Decode(raw)
	if err != nil {
		c.logger.Warn("Page cache entry corrupt", zap.String("url", url), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return nil, false, errors.NewCacheError("decode failed", "get", key, err)
	}
	return body, true, nil
}

func (c *PageCache) Set(ctx context.Context, url string, body []byte) error {
	key := Key(url)
	if err := c.client.Set(ctx, key, Encode(body), c.ttl).Err(); err != nil {
		c.logger.Warn("Page cache set failed", zap.String("url", url), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *PageCache) Del(ctx context.Context, url string) error {
	key := Key(url)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.NewCacheError("delete failed", "del", key, err)
	}
	return nil
}

func (c *PageCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func Encode(body []byte) []byte {
	return snappy.Encode(nil, body)
}

func Decode(raw []byte) ([]byte, error) {
	return snappy.Decode(nil, raw)
}
