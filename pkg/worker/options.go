package worker

import (
	"time"

	"github.com/agentstation/orgsync/pkg/constants"
)

// Options configures a Pool.
type Options struct {
	Concurrency      int
	RequestsPerSec   float64
	Burst            int
	MaxRetries       int
	OperationTimeout time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	Cooldown         time.Duration
}

// Defaults returns the default pool options.
func Defaults() Options {
	return Options{
		Concurrency:      constants.DefaultConcurrency,
		RequestsPerSec:   constants.DefaultRequestsPerSecond,
		Burst:            constants.BurstSize,
		MaxRetries:       constants.MaxRetries,
		OperationTimeout: constants.OperationTimeout,
		InitialBackoff:   constants.RetryBackoff,
		MaxBackoff:       constants.MaxRetryBackoff,
		Cooldown:         constants.RateLimitCooldown,
	}
}

// Option is a functional option for Pool.
type Option func(*Options)

// WithConcurrency bounds the number of tasks running at once.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithRate sets the shared request rate. A non-positive rate disables limiting.
func WithRate(perSec float64, burst int) Option {
	return func(o *Options) {
		o.RequestsPerSec = perSec
		if burst > 0 {
			o.Burst = burst
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

// WithOperationTimeout bounds a single attempt of a remote call.
func WithOperationTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.OperationTimeout = d
		}
	}
}

// WithBackoff sets the retry backoff bounds.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(o *Options) {
		if initial > 0 {
			o.InitialBackoff = initial
		}
		if maxInterval > 0 {
			o.MaxBackoff = maxInterval
		}
	}
}

// WithCooldown sets the shared pause used when a rate limit carries no Retry-After.
func WithCooldown(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Cooldown = d
		}
	}
}
