package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/redis/go-redis/v9"
)

const (
	scanCount        = 100
	deleteBatchSize  = 1000
	deleteRetryDelay = 100 * time.Millisecond
	deleteMaxRetries = 2
	deleteTimeout    = 5 * time.Second
)

// RedisCache implements the Cache interface using Redis
type RedisCache struct {
	client redis.UniversalClient
	log    *logger.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(client redis.UniversalClient, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		log:    log,
	}
}

// Get retrieves a value from the cache. Hits are returned as the stored JSON string.
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	span := sentry.StartSpan(ctx, sentry.OpCache, "redis", "get", map[string]interface{}{"key": key})
	defer sentry.FinishSpan(span)

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sentry.SetSpanSuccess(span)
			return nil, false
		}
		sentry.SetSpanError(span, err)
		c.log.Errorw("redis GET error", "key", key, "error", err)
		return nil, false
	}

	sentry.SetSpanSuccess(span)
	return value, true
}

// Set adds a value to the cache with the specified expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	span := sentry.StartSpan(ctx, sentry.OpCache, "redis", "set", map[string]interface{}{"key": key})
	defer sentry.FinishSpan(span)

	if expiration == 0 {
		expiration = ExpiryDefaultRedis
	}

	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			sentry.SetSpanError(span, err)
			c.log.Errorw("failed to marshal cache value", "key", key, "error", err)
			return
		}
		strValue = string(b)
	}

	if err := c.client.Set(ctx, key, strValue, expiration).Err(); err != nil {
		sentry.SetSpanError(span, err)
		c.log.Errorw("redis SET error", "key", key, "error", err)
		return
	}
	sentry.SetSpanSuccess(span)
}

// Delete removes a key. A failed delete is retried briefly so a stale entry does not outlive
// the write that invalidated it.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	c.del(ctx, "key", key, key)
}

// DeleteByPrefix removes all keys with the given prefix, scanning and deleting in batches
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", scanCount).Iterator()

	batch := make([]string, 0, deleteBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == deleteBatchSize {
			c.del(ctx, "prefix", prefix, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		c.del(ctx, "prefix", prefix, batch...)
	}

	if err := iter.Err(); err != nil {
		c.log.Errorw("redis SCAN error", "prefix", prefix, "error", err)
	}
}

func (c *RedisCache) del(ctx context.Context, field, value string, keys ...string) {
	// invalidation must finish even when the request that triggered it is cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
	defer cancel()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(deleteRetryDelay), deleteMaxRetries),
		ctx,
	)
	err := backoff.RetryNotify(func() error {
		return c.client.Del(ctx, keys...).Err()
	}, policy, func(err error, wait time.Duration) {
		c.log.Warnw("redis DEL failed, retrying", field, value, "error", err, "retry_in", wait)
	})
	if err != nil {
		c.log.Errorw("redis DEL error", field, value, "keys", len(keys), "error", err)
	}
}

// Flush removes all items from the cache
func (c *RedisCache) Flush(ctx context.Context) {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.log.Errorw("redis FLUSHDB error", "error", err)
	}
}
