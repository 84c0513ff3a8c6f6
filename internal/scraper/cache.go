package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PageCache stores fetched page bodies keyed by URL.
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, body string, ttl time.Duration) error
}

// RedisPageCache is a PageCache backed by Redis string keys.
type RedisPageCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPageCache returns a cache that namespaces keys under prefix.
func NewRedisPageCache(client redis.UniversalClient, prefix string) *RedisPageCache {
	if prefix == "" {
		prefix = "anidl_page"
	}
	return &RedisPageCache{client: client, prefix: prefix}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c.client == nil {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, c.dataKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key, body string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.dataKey(key), body, ttl).Err()
}

func (c *RedisPageCache) dataKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", c.prefix, hex.EncodeToString(sum[:]))
}

var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scraper_cache_lookups_total",
		Help: "Page cache lookups by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheLookups)
}

// CachingFetcher serves pages from Cache when present and fills it after a
// successful fetch. Cache errors are logged and bypassed; failed fetches are
// never cached.
type CachingFetcher struct {
	Next  Fetcher
	Cache PageCache
	TTL   time.Duration
}

// Fetch implements Fetcher.
func (f *CachingFetcher) Fetch(ctx context.Context, target string) (string, error) {
	if f.Cache == nil || f.TTL <= 0 {
		return f.Next.Fetch(ctx, target)
	}
	body, ok, err := f.Cache.Get(ctx, target)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("url", target).Msg("page cache read failed")
	case ok:
		cacheLookups.WithLabelValues("hit").Inc()
		return body, nil
	default:
		cacheLookups.WithLabelValues("miss").Inc()
	}

	body, err = f.Next.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	if err := f.Cache.Set(ctx, target, body, f.TTL); err != nil {
		log.Warn().Err(err).Str("url", target).Msg("page cache write failed")
	}
	return body, nil
}
