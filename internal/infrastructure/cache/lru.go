package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is a bounded in-process cache. Values are copied on the way in and out
// so callers cannot mutate cached entries.
type LRU[T any] struct {
	entries *expirable.LRU[string, T]
}

// NewLRU returns an LRU holding at most size entries across all names.
// A zero ttl keeps entries until they are evicted or pushed out.
func NewLRU[T any](size int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{entries: expirable.NewLRU[string, T](size, nil, ttl)}
}

func lruKey(name, key string) string { return name + "::" + key }

func (c *LRU[T]) Get(ctx context.Context, name, key string) (*T, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := c.entries.Get(lruKey(name, key))
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (c *LRU[T]) Put(ctx context.Context, name, key string, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	c.entries.Add(lruKey(name, key), *v)
	return nil
}

// Evict ignores the context so that invalidation is never skipped.
func (c *LRU[T]) Evict(_ context.Context, name, key string) error {
	c.entries.Remove(lruKey(name, key))
	return nil
}

func (c *LRU[T]) Len() int { return c.entries.Len() }
