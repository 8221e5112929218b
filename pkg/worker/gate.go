package worker

import (
	"context"
	"sync"
	"time"
)

// Gate is a shared cool-down. While closed, every Wait blocks until the
// cool-down expires.
type Gate struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Hold closes the gate for d, extending any cool-down already in effect.
func (g *Gate) Hold(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if until := g.now().Add(d); until.After(g.until) {
		g.until = until
	}
}

// Remaining returns how long the gate stays closed.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(g.until.Sub(g.now()), 0)
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		d := g.Remaining()
		if d <= 0 {
			return ctx.Err()
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
