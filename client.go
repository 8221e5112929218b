// Package orgsync reconciles a GitHub organization against declarative
// desired-state documents.
//
// A Client loads a main document and an optional defaults document, reads
// the fields they declare from the organization, and plans the changes
// needed to converge. Sync applies the plan; SyncFromOrg goes the other
// way and writes a document describing the organization as it is.
//
// Example usage:
//
//	c, err := orgsync.New(orgsync.WithToken(os.Getenv("GITHUB_TOKEN")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plan, err := c.Diff(ctx, "org.config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range plan.Changes() {
//	    fmt.Println(e.Kind, e.ID, e.Key, e.Action)
//	}
//
//	result, err := c.Sync(ctx, "org.config.yaml", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Report.Success() {
//	    os.Exit(2)
//	}
package orgsync

import (
	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/remote"
	"github.com/agentstation/orgsync/pkg/worker"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client reconciles one GitHub organization at a time.
type Client interface {

	// Differ plans changes without touching the organization
	Differ

	// Syncer applies planned changes
	Syncer

	// Generator writes documents from the live organization
	Generator

	// Hooks provides access to apply callbacks
	Hooks

	// Registry returns the mapping table in use
	Registry() *mapping.Registry
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options

	exec  remote.Executor
	reg   *mapping.Registry
	pool  *worker.Pool
	hooks *hooks
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{
		options: o,
		hooks:   newHooks(),
	}

	switch {
	case o.registry != nil:
		c.reg = o.registry
	case o.mappingPath != "":
		if c.reg, err = mapping.LoadFile(o.mappingPath); err != nil {
			return nil, errors.WrapResource("load", "mapping table", o.mappingPath, err)
		}
	default:
		if c.reg, err = mapping.Default(); err != nil {
			return nil, errors.WrapResource("load", "mapping table", "embedded", err)
		}
	}

	c.exec = o.executor
	if c.exec == nil {
		rest, err := transport.New(
			transport.WithBaseURL(o.apiURL),
			transport.WithToken(o.token),
			transport.WithUserAgent(o.userAgent),
		)
		if err != nil {
			return nil, err
		}
		c.exec = remote.NewCache(rest, o.cacheTTL)
	}

	c.pool = worker.New(o.poolOptions()...)

	logging.Debug().
		Str("mapping_version", c.reg.Version()).
		Int("mapping_entries", c.reg.Len()).
		Int("concurrency", c.pool.Options().Concurrency).
		Msg("Client ready")

	return c, nil
}

// Registry returns the mapping table in use.
func (c *client) Registry() *mapping.Registry {
	return c.reg
}
