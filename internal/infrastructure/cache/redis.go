// Package cache provides the named key/value stores behind the user read path.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/user-service/pkg/helpers"
)

// Redis stores JSON encoded values under "<prefix><name>::<key>".
// It is shared by every instance pointed at the same Redis.
type Redis[T any] struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis cache. A zero ttl keeps entries until they are evicted.
func NewRedis[T any](rdb redis.Cmdable, prefix string, ttl time.Duration) *Redis[T] {
	return &Redis[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Redis[T]) Key(name, key string) string {
	return c.prefix + name + "::" + key
}

func (c *Redis[T]) Get(ctx context.Context, name, key string) (*T, bool, error) {
	var v T
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, c.Key(name, key), &v)
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (c *Redis[T]) Put(ctx context.Context, name, key string, v *T) error {
	if v == nil {
		return nil
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, c.Key(name, key), v, c.ttl); err != nil {
		return fmt.Errorf("redis cache put %s: %w", name, err)
	}
	return nil
}

func (c *Redis[T]) Evict(ctx context.Context, name, key string) error {
	if err := helpers.RedisDel(ctx, c.rdb, c.Key(name, key)); err != nil {
		return fmt.Errorf("redis cache evict %s: %w", name, err)
	}
	return nil
}
