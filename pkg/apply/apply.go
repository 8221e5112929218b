// Package apply executes a plan against the remote system in dependency
// order and reports a result for every entry.
package apply

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/remote"
	"github.com/agentstation/orgsync/pkg/state"
	"github.com/agentstation/orgsync/pkg/worker"
)

// Engine applies plans.
type Engine struct {
	exec remote.Executor
	reg  *mapping.Registry
	pool *worker.Pool
}

// New creates an Engine.
func New(exec remote.Executor, reg *mapping.Registry, pool *worker.Pool) *Engine {
	if pool == nil {
		pool = worker.New()
	}
	return &Engine{exec: exec, reg: reg, pool: pool}
}

// failedSet records resources whose creation failed so that dependents can
// be short-circuited.
type failedSet struct {
	mu   sync.Mutex
	refs map[state.Ref]error
}

func (f *failedSet) add(ref state.Ref, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[ref] = err
}

func (f *failedSet) has(ref state.Ref) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.refs[ref]
	return ok
}

// Apply executes every change in plan. Dependency classes run in order, each
// finishing before the next starts; within a class one task per resource
// runs on the pool. In dry-run mode no write is issued and every change is
// recorded as skipped.
//
// Resource-scoped failures are recorded in the report. The returned error is
// non-nil only when ctx is canceled, in which case the report holds what was
// done so far and nothing is rolled back.
func (e *Engine) Apply(ctx context.Context, plan *differ.Plan, dryRun bool) (*Report, error) {
	ctx = logging.WithOperation(ctx, "apply")
	log := logging.FromContext(ctx)

	report := &Report{
		DryRun:    dryRun,
		Results:   []Result{},
		Failures:  plan.Failures,
		Gaps:      plan.Gaps,
		StartedAt: utc.Now(),
	}
	changes := plan.Changes()

	if dryRun {
		for _, entry := range changes {
			report.Results = append(report.Results, Result{Entry: entry, Outcome: OutcomeSkipped})
		}
		report.FinishedAt = utc.Now()
		log.Info().Int("changes", len(changes)).Msg("Dry run, no writes issued")
		return report, nil
	}

	failedRefs := &failedSet{refs: map[state.Ref]error{}}
	for _, f := range plan.Failures {
		failedRefs.add(state.Ref{Kind: f.Kind, ID: f.ID}, f.Err)
	}

	for _, class := range classes(changes) {
		var results worker.Collector[Result]
		var tasks []worker.Task
		for _, group := range class {
			tasks = append(tasks, func(ctx context.Context) error {
				for _, res := range e.applyResource(ctx, group, failedRefs) {
					results.Add(res)
				}
				return nil
			})
		}
		err := e.pool.Run(ctx, tasks)
		report.Results = append(report.Results, results.Items()...)
		if err != nil {
			report.FinishedAt = utc.Now()
			return report, err
		}
	}
	sortResults(report.Results)
	report.FinishedAt = utc.Now()
	return report, nil
}

// classes groups changes by dependency class, then by resource, keeping
// plan order.
func classes(changes []differ.Entry) [][][]differ.Entry {
	var out [][][]differ.Entry
	var cur [][]differ.Entry
	for i, entry := range changes {
		if i > 0 && entry.Kind.Class() != changes[i-1].Kind.Class() {
			out = append(out, cur)
			cur = nil
		}
		if n := len(cur); n > 0 && cur[n-1][0].Ref() == entry.Ref() {
			cur[n-1] = append(cur[n-1], entry)
			continue
		}
		cur = append(cur, []differ.Entry{entry})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func sortResults(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		ar, br := a.Entry.Ref(), b.Entry.Ref()
		switch {
		case ar.Less(br):
			return -1
		case br.Less(ar):
			return 1
		}
		switch {
		case a.Entry.Key < b.Entry.Key:
			return -1
		case a.Entry.Key > b.Entry.Key:
			return 1
		}
		return 0
	})
}

// applyResource runs the entries of one resource sequentially: the create
// first, then field writes batched per locator.
func (e *Engine) applyResource(ctx context.Context, entries []differ.Entry, failedRefs *failedSet) []Result {
	ref := entries[0].Ref()
	ctx = logging.WithResource(ctx, string(ref.Kind), ref.ID)
	log := logging.FromContext(ctx)
	spec, _ := e.reg.Kind(ref.Kind)
	keys := maps.Clone(entries[0].Keys)

	results := make([]Result, 0, len(entries))
	failAll := func(from int, err error) []Result {
		for _, entry := range entries[from:] {
			results = append(results, failed(entry, err))
			log.Error().Err(err).Str("key", entry.Key).Msg("Change failed")
		}
		return results
	}

	if dep, ok := e.failedDependency(spec, keys, failedRefs); ok {
		failedRefs.add(ref, errors.ErrDependencyFailed)
		return failAll(0, errors.NewDependencyError(dep.String(), nil))
	}

	covered := map[string]bool{}
	rest := entries
	if entries[0].Action == differ.ActionCreate {
		create := entries[0]
		handles, err := e.create(ctx, spec, create, keys)
		if err != nil {
			failedRefs.add(ref, err)
			results = append(results, failed(create, err))
			log.Error().Err(err).Msg("Create failed")
			return failAll(1, errors.NewDependencyError(ref.String(), err))
		}
		maps.Copy(keys, handles)
		results = append(results, applied(create))
		log.Info().Msg("Created")
		for key := range create.Bundle {
			covered[key] = true
		}
		rest = entries[1:]
	}

	var batches []*batch
	byKey := map[string]*batch{}
	for _, entry := range rest {
		if covered[entry.Key] {
			results = append(results, applied(entry))
			continue
		}
		m, err := e.reg.Resolve(entry.Kind, entry.Key)
		if err == nil && !m.Writable() {
			err = errors.ErrReadOnly
		}
		if err != nil {
			results = append(results, failed(entry, err))
			continue
		}
		b, err := newBatch(m, keys)
		if err != nil {
			results = append(results, failed(entry, err))
			continue
		}
		if existing, ok := byKey[b.id]; ok && b.mode != mapping.ModeCollection {
			existing.add(entry, m)
			continue
		}
		b.add(entry, m)
		byKey[b.id] = b
		batches = append(batches, b)
	}

	for _, b := range batches {
		for _, res := range e.writeBatch(ctx, b, keys) {
			if res.Outcome == OutcomeApplied {
				log.Info().Str("key", res.Entry.Key).Msg("Applied")
			} else {
				log.Error().Err(res.Err).Str("key", res.Entry.Key).Msg("Change failed")
			}
			results = append(results, res)
		}
	}
	return results
}

func (e *Engine) failedDependency(spec mapping.KindSpec, keys map[string]string, failedRefs *failedSet) (state.Ref, bool) {
	for _, dep := range spec.DependsOn {
		id, err := mapping.Expand(dep.ID, keys, false)
		if err != nil {
			continue
		}
		ref := state.Ref{Kind: dep.Kind, ID: id}
		if failedRefs.has(ref) {
			return ref, true
		}
	}
	return state.Ref{}, false
}

// create issues the create request and returns the handles captured from the
// response.
func (e *Engine) create(ctx context.Context, spec mapping.KindSpec, entry differ.Entry, keys map[string]string) (map[string]string, error) {
	c := spec.Create
	locator, err := mapping.Expand(c.Locator, keys, true)
	if err != nil {
		return nil, err
	}
	payload, err := template(c.Static, keys)
	if err != nil {
		return nil, err
	}
	if err := e.injectAll(payload, entry.Kind, entry.Bundle); err != nil {
		return nil, err
	}
	resp, err := e.write(ctx, locator, c.Verb, payload)
	if err != nil {
		return nil, err
	}
	handles := map[string]string{}
	for name, path := range c.Capture {
		if v, ok := mapping.Extract(resp, path); ok {
			handles[name] = fmt.Sprint(state.Normalize(v))
		}
	}
	return handles, nil
}

func (e *Engine) write(ctx context.Context, locator, verb string, payload any) (any, error) {
	return worker.Call(ctx, e.pool, func(ctx context.Context) (any, error) {
		logging.FromContext(ctx).Debug().Str("verb", verb).Str("locator", locator).Msg("Remote write")
		return e.exec.Write(ctx, locator, verb, payload)
	})
}

// batch is a set of entries written by one request, or, in collection mode,
// by one request per changed member.
type batch struct {
	id      string
	mode    mapping.WriteMode
	verb    string
	locator string
	write   mapping.Write
	entries []differ.Entry
	maps    []mapping.Entry
}

func newBatch(m mapping.Entry, keys map[string]string) (*batch, error) {
	b := &batch{mode: m.WriteMode(), write: *m.Write, verb: m.Write.Verb}
	if b.mode == mapping.ModeCollection {
		b.id = string(b.mode) + " " + m.Key
		return b, nil
	}
	locator, err := mapping.Expand(m.Write.Locator, keys, true)
	if err != nil {
		return nil, err
	}
	b.locator = locator
	b.id = string(b.mode) + " " + b.verb + " " + locator
	return b, nil
}

func (b *batch) add(entry differ.Entry, m mapping.Entry) {
	b.entries = append(b.entries, entry)
	b.maps = append(b.maps, m)
}

func (e *Engine) writeBatch(ctx context.Context, b *batch, keys map[string]string) []Result {
	switch b.mode {
	case mapping.ModeCollection:
		return []Result{e.writeCollection(ctx, b.entries[0], b.write, keys)}
	case mapping.ModeReplace:
		return e.writeReplace(ctx, b, keys)
	}

	err := e.writeFields(ctx, b, keys, b.entries, b.maps)
	if err == nil {
		return appliedAll(b.entries)
	}
	if len(b.entries) == 1 {
		return []Result{failed(b.entries[0], err)}
	}
	// Retry one field at a time so a single rejected value does not take
	// the others down with it.
	out := make([]Result, 0, len(b.entries))
	for i, entry := range b.entries {
		if err := e.writeFields(ctx, b, keys, b.entries[i:i+1], b.maps[i:i+1]); err != nil {
			out = append(out, failed(entry, err))
			continue
		}
		out = append(out, applied(entry))
	}
	return out
}

func (e *Engine) writeFields(ctx context.Context, b *batch, keys map[string]string, entries []differ.Entry, ms []mapping.Entry) error {
	payload := map[string]any{}
	for _, m := range ms {
		carry, err := template(m.Write.Carry, keys)
		if err != nil {
			return err
		}
		mapping.Merge(payload, carry)
	}
	for i, entry := range entries {
		if err := inject(payload, ms[i], entry.Desired); err != nil {
			return err
		}
	}
	_, err := e.write(ctx, b.locator, b.verb, payload)
	return err
}

func (e *Engine) writeReplace(ctx context.Context, b *batch, keys map[string]string) []Result {
	payload, err := template(b.write.Carry, keys)
	if err == nil {
		values := map[string]any{}
		for _, entry := range b.entries {
			maps.Copy(values, entry.Bundle)
			values[entry.Key] = entry.Desired
		}
		err = e.injectAll(payload, b.entries[0].Kind, values)
	}
	if err == nil {
		_, err = e.write(ctx, b.locator, b.verb, payload)
	}
	if err != nil {
		out := make([]Result, 0, len(b.entries))
		for _, entry := range b.entries {
			out = append(out, failed(entry, err))
		}
		return out
	}
	return appliedAll(b.entries)
}

func (e *Engine) writeCollection(ctx context.Context, entry differ.Entry, w mapping.Write, keys map[string]string) Result {
	add, remove := delta(entry.Desired, entry.Remote)
	var errs []error
	item := func(spec *mapping.Item, member string) {
		if spec == nil {
			errs = append(errs, fmt.Errorf("%s: no request defined for %q", entry.Key, member))
			return
		}
		values := maps.Clone(keys)
		values["item"] = member
		locator, err := mapping.Expand(spec.Locator, values, true)
		if err != nil {
			errs = append(errs, err)
			return
		}
		var payload any
		if spec.Payload != nil {
			if payload, err = template(spec.Payload, values); err != nil {
				errs = append(errs, err)
				return
			}
		}
		if _, err := e.write(ctx, locator, spec.Verb, payload); err != nil {
			errs = append(errs, err)
		}
	}
	for _, member := range add {
		item(w.Add, member)
	}
	for _, member := range remove {
		item(w.Remove, member)
	}
	if err := errors.Join(errs...); err != nil {
		return failed(entry, err)
	}
	return applied(entry)
}

func appliedAll(entries []differ.Entry) []Result {
	out := make([]Result, 0, len(entries))
	for _, entry := range entries {
		out = append(out, applied(entry))
	}
	return out
}
