package orgsync

import (
	"context"

	"github.com/agentstation/orgsync/pkg/config"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/fetch"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/state"
)

// Compile-time interface check to ensure proper implementation.
var _ Differ = (*client)(nil)

// Differ plans changes without writing anything.
type Differ interface {
	// Diff loads the document at path (and its defaults) and plans the
	// changes needed for the organization to match it.
	Diff(ctx context.Context, path string) (*differ.Plan, error)

	// Load parses and merges the document at path with its defaults.
	Load(path string) (*state.State, error)

	// Plan fetches the remote state for desired and diffs the two.
	Plan(ctx context.Context, desired *state.State) (*differ.Plan, error)
}

// Diff loads path and plans changes.
func (c *client) Diff(ctx context.Context, path string) (*differ.Plan, error) {
	desired, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	return c.Plan(ctx, desired)
}

// Load parses and merges the document at path with its defaults document.
func (c *client) Load(path string) (*state.State, error) {
	defaults := c.options.defaultsPath
	if defaults == "" {
		defaults = config.DefaultsPath(path)
	}
	return config.Load(path, defaults)
}

// Plan fetches and diffs. Only cancellation is returned as an error; read
// failures are recorded in the plan.
func (c *client) Plan(ctx context.Context, desired *state.State) (*differ.Plan, error) {
	ctx = logging.WithOrg(ctx, desired.Org())
	log := logging.FromContext(ctx)

	log.Debug().Int("instances", desired.Len()).Msg("Fetching remote state")
	remote, err := fetch.New(c.exec, c.reg, c.pool).Fetch(ctx, desired)
	if err != nil {
		return nil, err
	}

	plan := differ.New(c.reg, c.options.differ...).Diff(desired, remote)
	warnGaps(ctx, plan.Gaps)

	s := plan.Summary()
	log.Info().
		Int("creates", s.Creates).
		Int("updates", s.Updates).
		Int("gaps", s.Gaps).
		Int("failures", s.Failures).
		Msg("Plan ready")
	return plan, nil
}

// warnGaps logs one coverage warning per gap.
func warnGaps(ctx context.Context, gaps []differ.Gap) {
	log := logging.FromContext(ctx)
	for _, g := range gaps {
		log.Warn().
			Str("kind", string(g.Kind)).
			Str("id", g.ID).
			Str("key", g.Key).
			Str("reason", string(g.Reason)).
			Msg("Field not reconciled")
	}
}
