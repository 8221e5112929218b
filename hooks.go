package orgsync

import (
	"sync"

	"github.com/agentstation/orgsync/pkg/apply"
)

// Hook function types for apply events
type (
	// AppliedHook is called for every change written to the organization
	AppliedHook func(result apply.Result)

	// FailedHook is called for every change that could not be applied
	FailedHook func(result apply.Result)

	// SkippedHook is called for every change left out by a dry run
	SkippedHook func(result apply.Result)
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hooks registers callbacks run after a sync, in plan order.
type Hooks interface {
	OnApplied(fn AppliedHook)
	OnFailed(fn FailedHook)
	OnSkipped(fn SkippedHook)
}

// hooks manages event callbacks for apply results
type hooks struct {
	mu        sync.RWMutex
	onApplied []AppliedHook
	onFailed  []FailedHook
	onSkipped []SkippedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnApplied registers a callback for applied changes.
func (c *client) OnApplied(fn AppliedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onApplied = append(c.hooks.onApplied, fn)
}

// OnFailed registers a callback for failed changes.
func (c *client) OnFailed(fn FailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onFailed = append(c.hooks.onFailed, fn)
}

// OnSkipped registers a callback for dry-run changes.
func (c *client) OnSkipped(fn SkippedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSkipped = append(c.hooks.onSkipped, fn)
}

// trigger runs the registered callbacks for every result of report.
func (h *hooks) trigger(report *apply.Report) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range report.Results {
		switch r.Outcome {
		case apply.OutcomeApplied:
			for _, fn := range h.onApplied {
				fn(r)
			}
		case apply.OutcomeFailed:
			for _, fn := range h.onFailed {
				fn(r)
			}
		case apply.OutcomeSkipped:
			for _, fn := range h.onSkipped {
				fn(r)
			}
		}
	}
}
