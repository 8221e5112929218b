package orgsync

import (
	"context"

	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/state"
)

// Compile-time interface check to ensure proper implementation.
var _ Syncer = (*client)(nil)

// Syncer applies planned changes to the organization.
type Syncer interface {
	// Sync plans and applies the document at path. With dryRun no write is
	// issued and every planned change is reported as skipped.
	Sync(ctx context.Context, path string, dryRun bool) (*SyncResult, error)

	// SyncState is Sync for an already merged desired state.
	SyncState(ctx context.Context, desired *state.State, dryRun bool) (*SyncResult, error)
}

// SyncResult holds the plan a sync worked from and what became of it.
type SyncResult struct {
	Plan   *differ.Plan  `json:"plan" yaml:"plan"`
	Report *apply.Report `json:"report" yaml:"report"`
}

// Success reports whether nothing failed.
func (r *SyncResult) Success() bool {
	return r.Report.Success()
}

// Sync loads path, plans and applies.
func (c *client) Sync(ctx context.Context, path string, dryRun bool) (*SyncResult, error) {
	desired, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	return c.SyncState(ctx, desired, dryRun)
}

// SyncState plans and applies desired. A canceled context returns the
// partial result together with the error.
func (c *client) SyncState(ctx context.Context, desired *state.State, dryRun bool) (*SyncResult, error) {
	plan, err := c.Plan(ctx, desired)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithOrg(ctx, desired.Org())
	report, err := apply.New(c.exec, c.reg, c.pool).Apply(ctx, plan, dryRun)
	result := &SyncResult{Plan: plan, Report: report}
	if report != nil {
		c.hooks.trigger(report)
		logging.FromContext(ctx).Info().
			Bool("dry_run", dryRun).
			Int("applied", report.Count(apply.OutcomeApplied)).
			Int("skipped", report.Count(apply.OutcomeSkipped)).
			Int("failed", report.Count(apply.OutcomeFailed)+len(report.Failures)).
			Msg("Sync finished")
	}
	return result, err
}
