// Package redis caches reaction products in Redis, keyed by the reactant's
// fingerprint and the reagent name.
package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// ProductCache stores product graphs as codec snapshots.
type ProductCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	jitter float64
	group  singleflight.Group
}

type CacheOption func(*ProductCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *ProductCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ProductCache) { c.ttl = ttl }
}

// WithTTLJitter spreads expirations by +/- fraction of the TTL.  Zero
// disables jitter.
func WithTTLJitter(fraction float64) CacheOption {
	return func(c *ProductCache) { c.jitter = fraction }
}

// NewProductCache returns a cache using client.
func NewProductCache(client *Client, log logging.Logger, opts ...CacheOption) *ProductCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &ProductCache{
		client: client,
		logger: log.Named("product_cache"),
		prefix: "archem:",
		ttl:    time.Hour,
		jitter: 0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProductKey names the cache entry for reagent applied to reactant.
func ProductKey(reactant *graph.MolecularGraph, reagentName string) string {
	return "product:" + reactant.Fingerprint() + ":" + reagentName
}

func (c *ProductCache) fullKey(key string) string {
	return c.prefix + key
}

func (c *ProductCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || c.jitter <= 0 {
		return ttl
	}
	delta := float64(ttl) * c.jitter * (rand.Float64()*2 - 1)
	return ttl + time.Duration(delta)
}

// Get returns the cached graph for key or ErrCacheMiss.
func (c *ProductCache) Get(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	g, err := codec.Decode(data)
	if err != nil {
		c.logger.Warn("Discarding undecodable cache entry", logging.String("key", key), logging.Err(err))
		return nil, ErrCacheMiss
	}
	return g, nil
}

// Set stores g under key.
func (c *ProductCache) Set(ctx context.Context, key string, g *graph.MolecularGraph) error {
	if err := c.client.Set(ctx, c.fullKey(key), codec.Encode(g), c.jitterTTL(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

// GetOrCompute returns the cached product for key, or runs compute once per
// key across concurrent callers and caches its result.  The bool reports a
// cache hit.  Redis failures degrade to computing without the cache.
func (c *ProductCache) GetOrCompute(ctx context.Context, key string, compute func() (*graph.MolecularGraph, error)) (*graph.MolecularGraph, bool, error) {
	g, err := c.Get(ctx, key)
	if err == nil {
		return g, true, nil
	}
	if err != ErrCacheMiss {
		c.logger.Warn("Cache read failed, computing directly", logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		product, err := compute()
		if err != nil {
			return nil, err
		}
		if setErr := c.Set(ctx, key, product); setErr != nil {
			c.logger.Warn("Failed to set cache in GetOrCompute", logging.String("key", key), logging.Err(setErr))
		}
		return product, nil
	})
	if err != nil {
		return nil, false, err
	}
	// Callers sharing a flight must not share the graph.
	return v.(*graph.MolecularGraph).Clone(), false, nil
}

// Delete removes keys.
func (c *ProductCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
	}
	return nil
}

// Purge deletes every product entry and returns how many were removed.
func (c *ProductCache) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.fullKey("product:") + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// Ping checks the connection.
func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
