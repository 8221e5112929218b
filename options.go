package orgsync

import (
	"time"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/remote"
	"github.com/agentstation/orgsync/pkg/worker"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the resolved client configuration.
type options struct {
	executor  remote.Executor
	token     string
	apiURL    string
	userAgent string

	registry     *mapping.Registry
	mappingPath  string
	defaultsPath string

	concurrency int
	rate        float64
	burst       int
	maxRetries  int
	timeout     time.Duration
	cacheTTL    time.Duration
	pool        []worker.Option

	differ []differ.Option
}

func defaults() *options {
	return &options{
		userAgent:   "orgsync",
		concurrency: constants.DefaultConcurrency,
		rate:        constants.DefaultRequestsPerSecond,
		burst:       constants.BurstSize,
		maxRetries:  constants.MaxRetries,
		timeout:     constants.OperationTimeout,
		cacheTTL:    constants.ReadCacheTTL,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *options) poolOptions() []worker.Option {
	return append([]worker.Option{
		worker.WithConcurrency(o.concurrency),
		worker.WithRate(o.rate, o.burst),
		worker.WithMaxRetries(o.maxRetries),
		worker.WithOperationTimeout(o.timeout),
	}, o.pool...)
}

// WithExecutor replaces the GitHub REST transport, e.g. with an in-memory
// organization for tests.
func WithExecutor(exec remote.Executor) Option {
	return func(o *options) error {
		o.executor = exec
		return nil
	}
}

// WithReadCacheTTL sets how long reads through the REST transport are
// reused. Zero disables the cache. Writes always flush it.
func WithReadCacheTTL(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl < 0 {
			return errors.NewValidationError("cache_ttl", ttl, "must not be negative")
		}
		o.cacheTTL = ttl
		return nil
	}
}

// WithToken sets the bearer credential used by the REST transport.
func WithToken(token string) Option {
	return func(o *options) error {
		o.token = token
		return nil
	}
}

// WithAPIURL targets a GitHub Enterprise Server API.
func WithAPIURL(url string) Option {
	return func(o *options) error {
		o.apiURL = url
		return nil
	}
}

// WithUserAgent sets the User-Agent sent to the API.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.userAgent = ua
		return nil
	}
}

// WithRegistry uses an already loaded mapping table.
func WithRegistry(reg *mapping.Registry) Option {
	return func(o *options) error {
		o.registry = reg
		return nil
	}
}

// WithMappingFile loads the mapping table from path instead of the embedded one.
func WithMappingFile(path string) Option {
	return func(o *options) error {
		o.mappingPath = path
		return nil
	}
}

// WithDefaults sets the defaults document merged under every main document.
// Without it, a defaults.config.yaml next to the main document is used.
func WithDefaults(path string) Option {
	return func(o *options) error {
		o.defaultsPath = path
		return nil
	}
}

// WithConcurrency bounds the number of resources processed at once.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.NewValidationError("concurrency", n, "must not be negative")
		}
		if n > 0 {
			o.concurrency = n
		}
		return nil
	}
}

// WithRateLimit sets the shared request rate. Zero disables limiting.
func WithRateLimit(perSec float64, burst int) Option {
	return func(o *options) error {
		if perSec < 0 {
			return errors.NewValidationError("rate", perSec, "must not be negative")
		}
		o.rate = perSec
		if burst > 0 {
			o.burst = burst
		}
		return nil
	}
}

// WithMaxRetries sets how often transient failures are retried.
func WithMaxRetries(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.NewValidationError("max_retries", n, "must not be negative")
		}
		o.maxRetries = n
		return nil
	}
}

// WithTimeout bounds one remote operation.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d > 0 {
			o.timeout = d
		}
		return nil
	}
}

// WithPoolOptions passes extra options to the worker pool.
func WithPoolOptions(opts ...worker.Option) Option {
	return func(o *options) error {
		o.pool = append(o.pool, opts...)
		return nil
	}
}

// WithDiffOptions passes options to the differ.
func WithDiffOptions(opts ...differ.Option) Option {
	return func(o *options) error {
		o.differ = append(o.differ, opts...)
		return nil
	}
}
