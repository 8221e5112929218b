// Package fetch reads the remote state of every resource instance named in a
// desired state, and discovers whole-organization snapshots for reverse
// generation.
package fetch

import (
	"context"
	"fmt"
	"maps"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/remote"
	"github.com/agentstation/orgsync/pkg/state"
	"github.com/agentstation/orgsync/pkg/worker"
)

// Fetcher reads remote state through a mapping registry.
type Fetcher struct {
	exec remote.Executor
	reg  *mapping.Registry
	pool *worker.Pool
}

// New creates a Fetcher.
func New(exec remote.Executor, reg *mapping.Registry, pool *worker.Pool) *Fetcher {
	if pool == nil {
		pool = worker.New()
	}
	return &Fetcher{exec: exec, reg: reg, pool: pool}
}

// Fetch returns a remote state with the same shape as desired, holding the
// current value of every declared field the registry can read. Instances
// are fetched independently: a failure is recorded on the instance
// (FetchErr) and never stops the others. The only error returned is
// cancellation of ctx.
func (f *Fetcher) Fetch(ctx context.Context, desired *state.State) (*state.State, error) {
	ctx = logging.WithOperation(ctx, "fetch")
	instances := desired.All()

	var results worker.Collector[state.Instance]
	tasks := make([]worker.Task, 0, len(instances))
	for _, inst := range instances {
		tasks = append(tasks, func(ctx context.Context) error {
			results.Add(f.fetchOne(ctx, inst))
			return nil
		})
	}
	if err := f.pool.Run(ctx, tasks); err != nil {
		return nil, err
	}

	b := state.NewBuilder(desired.Org())
	for _, inst := range results.Items() {
		if err := b.Add(inst); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// reader caches payloads per locator for the duration of one instance task,
// so fields sharing an endpoint cost one request.
type reader struct {
	f     *Fetcher
	cache map[string]readResult
}

type readResult struct {
	payload any
	err     error
}

func (r *reader) read(ctx context.Context, locator string) (any, error) {
	if res, ok := r.cache[locator]; ok {
		return res.payload, res.err
	}
	payload, err := worker.Call(ctx, r.f.pool, func(ctx context.Context) (any, error) {
		logging.FromContext(ctx).Debug().Str("verb", "GET").Str("locator", locator).Msg("Remote read")
		return r.f.exec.Read(ctx, locator)
	})
	r.cache[locator] = readResult{payload: payload, err: err}
	return payload, err
}

func (f *Fetcher) fetchOne(ctx context.Context, inst state.Instance) state.Instance {
	ctx = logging.WithResource(ctx, string(inst.Kind), inst.ID)
	log := logging.FromContext(ctx)

	out := state.Instance{
		Kind:   inst.Kind,
		ID:     inst.ID,
		Keys:   maps.Clone(inst.Keys),
		Fields: map[string]any{},
	}
	fail := func(err error) state.Instance {
		out.FetchErr = errors.WrapResource("fetch", string(inst.Kind), inst.ID, err)
		log.Error().Err(err).Msg("Fetch failed")
		return out
	}

	spec, ok := f.reg.Kind(inst.Kind)
	if !ok {
		return fail(fmt.Errorf("kind %s has no probe in mapping table %s", inst.Kind, f.reg.Version()))
	}

	rd := &reader{f: f, cache: map[string]readResult{}}
	placeholders := inst.Placeholders()

	loc, err := mapping.Expand(spec.Probe.Locator, placeholders, true)
	if err != nil {
		return fail(err)
	}
	payload, err := rd.read(ctx, loc)
	if errors.IsNotFound(err) {
		out.Absent = true
		return out
	}
	if err != nil {
		return fail(err)
	}
	item, found, err := mapping.Pick(payload, spec.Probe.Select, placeholders)
	if err != nil {
		return fail(err)
	}
	if !found {
		out.Absent = true
		return out
	}

	if len(spec.Capture) > 0 {
		out.Handles = map[string]string{}
		for name, path := range spec.Capture {
			if v, ok := mapping.Extract(item, path); ok {
				out.Handles[name] = fmt.Sprint(state.Normalize(v))
			}
		}
		maps.Copy(placeholders, out.Handles)
	}

	var errs []error
	for _, key := range inst.FieldKeys() {
		entry, err := f.reg.Resolve(inst.Kind, key)
		if err != nil {
			continue
		}
		v, ok, err := f.readField(ctx, rd, entry, placeholders)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if ok {
			out.Fields[key] = v
		}
	}
	if len(errs) > 0 {
		return fail(errors.Join(errs...))
	}
	return out
}

// readField returns the decoded value of one field. A missing path, an
// unmatched selection or a 404 on the field's own endpoint all mean the
// field is unset remotely.
func (f *Fetcher) readField(ctx context.Context, rd *reader, entry mapping.Entry, placeholders map[string]string) (any, bool, error) {
	loc, err := mapping.Expand(entry.Read.Locator, placeholders, true)
	if err != nil {
		return nil, false, err
	}
	payload, err := rd.read(ctx, loc)
	if errors.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	item, found, err := mapping.Pick(payload, entry.Read.Select, placeholders)
	if err != nil || !found {
		return nil, false, err
	}
	raw, ok := mapping.Extract(item, entry.Read.Path)
	if !ok {
		return nil, false, nil
	}
	v, err := entry.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
