// Package app provides the application context and dependency management
// for the orgsync CLI. Configuration, logging and the orgsync client are
// built once here and handed to every command through appcontext.Interface.
package app

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/mapping"
)

// App represents the orgsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	stdout io.Writer

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client orgsync.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdout:  os.Stdout,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Stdout returns the writer command results go to.
func (a *App) Stdout() io.Writer {
	return a.stdout
}

// Client returns the orgsync client, creating it lazily if needed.
func (a *App) Client() (orgsync.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	c, err := a.newClient()
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// Registry returns the mapping table named by the configuration, or the
// embedded default.
func (a *App) Registry() (*mapping.Registry, error) {
	if a.config.Mapping != "" {
		return mapping.LoadFile(a.config.Mapping)
	}
	return mapping.Default()
}

// ClientWithOptions returns a new client built from the configuration plus
// the given options. The options are applied last and win.
func (a *App) ClientWithOptions(opts ...orgsync.Option) (orgsync.Client, error) {
	return a.newClient(opts...)
}

func (a *App) newClient(extra ...orgsync.Option) (orgsync.Client, error) {
	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	c, err := orgsync.New(append(opts, extra...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	return c, nil
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() ([]orgsync.Option, error) {
	cfg := a.config
	if cfg.Token == "" && !customEndpoint(cfg.APIURL) {
		return nil, errors.NewAuthenticationError("token", "no GitHub token configured; set ORGSYNC_TOKEN or GITHUB_TOKEN", nil)
	}

	opts := []orgsync.Option{
		orgsync.WithToken(cfg.Token),
		orgsync.WithUserAgent("orgsync/" + a.version),
	}
	if cfg.APIURL != "" {
		opts = append(opts, orgsync.WithAPIURL(cfg.APIURL))
	}
	if cfg.Mapping != "" {
		opts = append(opts, orgsync.WithMappingFile(cfg.Mapping))
	}
	if cfg.Defaults != "" {
		opts = append(opts, orgsync.WithDefaults(cfg.Defaults))
	}
	if cfg.Concurrency > 0 {
		opts = append(opts, orgsync.WithConcurrency(cfg.Concurrency))
	}
	if cfg.Rate > 0 {
		opts = append(opts, orgsync.WithRateLimit(cfg.Rate, cfg.Burst))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, orgsync.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, orgsync.WithTimeout(cfg.Timeout))
	}
	return opts, nil
}

// customEndpoint reports whether url points somewhere other than the public
// GitHub API, where an anonymous client may be legitimate.
func customEndpoint(url string) bool {
	if url == "" {
		return false
	}
	return strings.TrimSuffix(url, "/") != strings.TrimSuffix(transport.DefaultBaseURL, "/")
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(c orgsync.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}

// WithStdout redirects command output.
func WithStdout(w io.Writer) Option {
	return func(a *App) error {
		a.stdout = w
		return nil
	}
}
