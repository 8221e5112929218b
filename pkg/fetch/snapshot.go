package fetch

import (
	"context"
	"fmt"
	"maps"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
	"github.com/agentstation/orgsync/pkg/worker"
)

// Snapshot discovers every instance of every listable kind in org and
// fetches all of their readable fields. Unlike Fetch, any listing or read
// failure is returned, because a partial snapshot would generate an
// incomplete document.
func (f *Fetcher) Snapshot(ctx context.Context, org string) (*state.State, error) {
	ctx = logging.WithOrg(logging.WithOperation(ctx, "snapshot"), org)

	discovered := map[state.Kind][]state.Instance{
		state.KindOrganization: {{
			Kind: state.KindOrganization,
			ID:   org,
			Keys: map[string]string{state.KeyOrg: org},
		}},
	}

	var errs []error
	for _, kind := range state.Kinds[1:] {
		spec, ok := f.reg.Kind(kind)
		if !ok || spec.List == nil {
			continue
		}
		parents := discovered[state.KindOrganization]
		if spec.List.Parent != "" {
			parents = discovered[spec.List.Parent]
		}
		found, err := f.discover(ctx, kind, *spec.List, parents)
		if err != nil {
			if errors.IsCanceled(err) {
				return nil, err
			}
			errs = append(errs, err)
		}
		discovered[kind] = found
		logging.FromContext(ctx).Debug().Str("kind", string(kind)).Int("count", len(found)).Msg("Discovered instances")
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	b := state.NewBuilder(org)
	for _, kind := range state.Kinds {
		keys := map[string]any{}
		for _, e := range f.reg.Entries(kind) {
			keys[e.Key] = nil
		}
		for _, inst := range discovered[kind] {
			inst.Fields = keys
			if err := b.Add(inst); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Msg("Skipping duplicate instance")
			}
		}
	}

	remote, err := f.Fetch(ctx, b.Build())
	if err != nil {
		return nil, err
	}
	for _, inst := range remote.All() {
		if inst.FetchErr != nil {
			errs = append(errs, inst.FetchErr)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return remote, nil
}

// discover lists the children of each parent instance.
func (f *Fetcher) discover(ctx context.Context, kind state.Kind, list mapping.List, parents []state.Instance) ([]state.Instance, error) {
	var found worker.Collector[state.Instance]
	var failed worker.Collector[error]

	tasks := make([]worker.Task, 0, len(parents))
	for _, parent := range parents {
		tasks = append(tasks, func(ctx context.Context) error {
			loc, err := mapping.Expand(list.Locator, parent.Keys, true)
			if err != nil {
				failed.Add(err)
				return nil
			}
			payload, err := worker.Call(ctx, f.pool, func(ctx context.Context) (any, error) {
				return f.exec.Read(ctx, loc)
			})
			if err != nil {
				failed.Add(errors.WrapResource("list", string(kind), parent.ID, err))
				return nil
			}
			items, ok := payload.([]any)
			if !ok {
				failed.Add(fmt.Errorf("list %s returned %T, not a list", loc, payload))
				return nil
			}
			for _, item := range items {
				inst, err := instanceFromItem(kind, list, parent.Keys, item)
				if err != nil {
					failed.Add(err)
					continue
				}
				found.Add(inst)
			}
			return nil
		})
	}
	if err := f.pool.Run(ctx, tasks); err != nil {
		return nil, err
	}
	return found.Items(), errors.Join(failed.Items()...)
}

func instanceFromItem(kind state.Kind, list mapping.List, parentKeys map[string]string, item any) (state.Instance, error) {
	keys := maps.Clone(parentKeys)
	for placeholder, path := range list.Keys {
		v, ok := mapping.Extract(item, path)
		if !ok {
			return state.Instance{}, fmt.Errorf("%s list item has no %q", kind, path)
		}
		keys[placeholder] = fmt.Sprint(state.Normalize(v))
	}
	if kind == state.KindTeam && keys[state.KeyTeamSlug] == "" {
		keys[state.KeyTeamSlug] = state.Slug(keys[state.KeyTeam])
	}
	parts := make([]string, 0, 2)
	for _, name := range kind.Identity() {
		v, ok := keys[name]
		if !ok || v == "" {
			return state.Instance{}, fmt.Errorf("%s list item has no %s identity", kind, name)
		}
		parts = append(parts, v)
	}
	return state.Instance{Kind: kind, ID: state.ID(parts...), Keys: keys}, nil
}
