package worker

import "sync"

// Collector is an append-only result sink shared by tasks.
type Collector[T any] struct {
	mu    sync.Mutex
	items []T
}

// Add appends one result.
func (c *Collector[T]) Add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// Items returns a copy of everything collected.
func (c *Collector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of collected results.
func (c *Collector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
