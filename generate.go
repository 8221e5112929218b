package orgsync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/orgsync/pkg/config"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/fetch"
	"github.com/agentstation/orgsync/pkg/generate"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/save"
	"github.com/agentstation/orgsync/pkg/state"
)

// Compile-time interface check to ensure proper implementation.
var _ Generator = (*client)(nil)

// Generator writes desired-state documents from the live organization.
type Generator interface {
	// SyncFromOrg snapshots org and writes the equivalent document. Save
	// options choose the destination; the default is org.config.yaml.
	SyncFromOrg(ctx context.Context, org string, opts ...save.Option) (*GenerateResult, error)
}

// GenerateResult describes a generated document.
type GenerateResult struct {
	Document *config.Document   `json:"-" yaml:"-"`
	Data     []byte             `json:"-" yaml:"-"`
	Path     string             `json:"path,omitempty" yaml:"path,omitempty"`
	Counts   map[state.Kind]int `json:"counts" yaml:"counts"`
	Gaps     []generate.Gap     `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Snapshot *state.State       `json:"-" yaml:"-"`
}

// SyncFromOrg generates a document from org. Listing or read failures are
// returned after nothing has been written: a partial document would drop
// settings on the next sync.
func (c *client) SyncFromOrg(ctx context.Context, org string, opts ...save.Option) (*GenerateResult, error) {
	if org == "" {
		return nil, errors.NewValidationError("org", org, "organization name is required")
	}
	ctx = logging.WithOrg(ctx, org)
	log := logging.FromContext(ctx)

	snapshot, err := fetch.New(c.exec, c.reg, c.pool).Snapshot(ctx, org)
	if err != nil {
		return nil, errors.WrapResource("snapshot", "organization", org, err)
	}

	gen := generate.Generate(snapshot, c.reg)
	for _, g := range gen.Gaps {
		log.Warn().Str("kind", string(g.Kind)).Str("id", g.ID).Str("key", g.Key).Msg("Field not read")
	}

	data, err := config.Marshal(gen.Document)
	if err != nil {
		return nil, errors.WrapResource("marshal", "document", org, err)
	}

	header := fmt.Sprintf("Generated by orgsync sync-from-org for %s at %s.\nMapping table version %s.",
		org, utc.Now().Format(time.RFC3339), c.reg.Version())
	path, err := save.Write(data, append([]save.Option{save.WithHeader(header)}, opts...)...)
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{
		Document: gen.Document,
		Data:     data,
		Path:     path,
		Counts:   gen.Counts(),
		Gaps:     gen.Gaps,
		Snapshot: snapshot,
	}
	log.Info().Str("path", path).Int("gaps", len(gen.Gaps)).Msg("Document generated")
	return res, nil
}
