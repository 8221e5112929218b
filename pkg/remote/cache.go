package remote

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps an Executor and memoizes successful reads for a TTL.
// Any write flushes the cache, so a read after a write always reaches
// the wrapped Executor.
type Cache struct {
	Executor

	store *gocache.Cache
}

// NewCache wraps exec with a read cache. A non-positive ttl returns exec
// unchanged.
func NewCache(exec Executor, ttl time.Duration) Executor {
	if ttl <= 0 {
		return exec
	}
	return &Cache{Executor: exec, store: gocache.New(ttl, 2*ttl)}
}

// Read implements Executor.
func (c *Cache) Read(ctx context.Context, locator string) (any, error) {
	if v, ok := c.store.Get(locator); ok {
		return clone(v), nil
	}
	v, err := c.Executor.Read(ctx, locator)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(locator, clone(v))
	return v, nil
}

// Write implements Executor.
func (c *Cache) Write(ctx context.Context, locator, verb string, payload any) (any, error) {
	c.store.Flush()
	return c.Executor.Write(ctx, locator, verb, payload)
}

// Len returns the number of cached reads.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// clone copies decoded JSON values so callers cannot mutate cached payloads.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}
