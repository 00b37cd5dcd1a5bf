package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const statisticsCacheKey = "stats:lottomax"

// Cache stores the latest statistics in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisClient parses redisURL and checks the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "statistics_cache"),
	}
}

func (c *Cache) Get(ctx context.Context) (*lotto.Statistics, error) {
	result, err := c.client.Get(ctx, statisticsCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.logger.WithField("key", statisticsCacheKey).Debug("Cache miss for statistics")
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get statistics from cache: %w", err)
	}

	var stats lotto.Statistics
	if err := json.Unmarshal(result, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached statistics: %w", err)
	}
	return &stats, nil
}

func (c *Cache) Set(ctx context.Context, stats *lotto.Statistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	if err := c.client.Set(ctx, statisticsCacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache statistics: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statisticsCacheKey).Err()
}

// Ping is used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CachedProvider serves statistics from the cache and falls through to next
// on a miss. Cache failures are logged and never fail a fetch.
type CachedProvider struct {
	next  Provider
	cache *Cache
}

func NewCachedProvider(next Provider, cache *Cache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache}
}

func (p *CachedProvider) Name() string {
	return "cached:" + p.next.Name()
}

func (p *CachedProvider) Fetch(ctx context.Context) (*lotto.Statistics, error) {
	stats, err := p.cache.Get(ctx)
	switch {
	case err == nil:
		verr := stats.Validate()
		if verr == nil {
			p.cache.logger.WithField("source", stats.Source).Debug("Serving statistics from cache")
			return stats, nil
		}
		p.cache.logger.WithError(verr).Warn("Discarding invalid cached statistics")
	case !errors.Is(err, ErrCacheMiss):
		p.cache.logger.WithError(err).Warn("Statistics cache unavailable")
	}

	return p.store(ctx, p.next.Fetch)
}

// Refresh skips the cached value and overwrites it with a fresh fetch.
func (p *CachedProvider) Refresh(ctx context.Context) (*lotto.Statistics, error) {
	return p.store(ctx, func(ctx context.Context) (*lotto.Statistics, error) {
		return forceFetch(ctx, p.next)
	})
}

func (p *CachedProvider) store(ctx context.Context, fetch func(context.Context) (*lotto.Statistics, error)) (*lotto.Statistics, error) {
	stats, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, stats); err != nil {
		p.cache.logger.WithError(err).Warn("Failed to cache statistics")
	}
	return stats, nil
}
