// Package worker runs one task per resource instance on a bounded pool.
// Tasks share a request limiter and a cool-down gate; remote calls made
// through Pool.Call are retried with backoff when they fail transiently.
package worker

import (
	"context"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// Task is one unit of work. A returned error aborts the remaining tasks of
// the batch; resource-scoped failures belong in a Collector instead.
type Task func(ctx context.Context) error

// Pool schedules tasks and remote calls.
type Pool struct {
	opts    Options
	limiter *rate.Limiter
	gate    *Gate
}

// New creates a pool.
func New(opts ...Option) *Pool {
	o := Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	limit := rate.Inf
	if o.RequestsPerSec > 0 {
		limit = rate.Limit(o.RequestsPerSec)
	}
	return &Pool{
		opts:    o,
		limiter: rate.NewLimiter(limit, max(o.Burst, 1)),
		gate:    NewGate(),
	}
}

// Options returns the effective options.
func (p *Pool) Options() Options {
	return p.opts
}

// Gate returns the shared cool-down gate.
func (p *Pool) Gate() *Gate {
	return p.gate
}

// Run executes tasks with bounded concurrency and waits for all of them.
// Dispatch of each task waits for the cool-down gate.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.opts.Concurrency, 1))
	for _, task := range tasks {
		if err := p.gate.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			return task(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Call runs one remote operation under the shared limiter and cool-down,
// with a per-attempt timeout. Transient failures are retried with
// exponential backoff; a rate-limit failure closes the gate for every task
// before the retry. Other failures are returned immediately.
func Call[T any](ctx context.Context, p *Pool, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		var zero T
		attempt++
		if err := p.gate.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}

		opCtx, cancel := context.WithTimeout(ctx, p.opts.OperationTimeout)
		defer cancel()
		v, err := op(opCtx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, backoff.Permanent(err)
		}
		if errors.IsRateLimited(err) {
			d, ok := errors.RetryAfter(err)
			if !ok {
				d = p.opts.Cooldown
			}
			p.gate.Hold(d)
			logging.FromContext(ctx).Warn().
				Dur("cooldown", d).
				Int("attempt", attempt).
				Msg("Rate limited, pausing dispatch")
		}
		if !errors.IsTransient(err) {
			return zero, backoff.Permanent(err)
		}
		logging.FromContext(ctx).Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("Transient failure, retrying")
		return zero, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.InitialBackoff
	b.MaxInterval = p.opts.MaxBackoff

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.opts.MaxRetries)+1),
		backoff.WithMaxElapsedTime(0),
	)
}
