package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetch returns the cached value for key, or calls load exactly once, stores
// its result for ttl and returns it. Errors from load are returned and never
// cached.
//
// Concurrent callers missing on the same key each call load and the last
// writer wins. Use a Loader with Coalesce when that matters.
func Fetch[V any](ctx context.Context, c Cache[string, V], key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Loader is a read-through front for a Cache that can optionally share one
// in-flight load between concurrent callers of the same key.
type Loader[V any] struct {
	cache    Cache[string, V]
	coalesce bool
	group    singleflight.Group
}

// NewLoader wraps c. With coalesce set, concurrent misses on one key share a
// single call to the load function.
func NewLoader[V any](c Cache[string, V], coalesce bool) *Loader[V] {
	return &Loader[V]{cache: c, coalesce: coalesce}
}

// Cache returns the wrapped cache.
func (l *Loader[V]) Cache() Cache[string, V] {
	return l.cache
}

// Load behaves like Fetch, coalescing concurrent misses when enabled.
func (l *Loader[V]) Load(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	if !l.coalesce {
		return Fetch(ctx, l.cache, key, ttl, load)
	}
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	res, err, _ := l.group.Do(key, func() (any, error) {
		// a caller that missed just before the previous flight stored its value
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}
