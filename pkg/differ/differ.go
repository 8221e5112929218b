package differ

import (
	"fmt"
	"maps"

	"github.com/agentstation/orgsync/internal/matcher"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

// Differ handles change detection between a desired and a remote state.
type Differ interface {
	// Diff compares desired with remote. It does not modify either state
	// and returns the same plan for the same inputs.
	Diff(desired, remote *state.State) *Plan
}

// differ is the default implementation of Differ.
type differ struct {
	reg    *mapping.Registry
	ignore matcher.Set
	kinds  map[state.Kind]bool
	noops  bool
}

// New creates a Differ over a mapping registry.
func New(reg *mapping.Registry, opts ...Option) Differ {
	d := &differ{
		reg:   reg,
		kinds: make(map[state.Kind]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff implements Differ.
func (d *differ) Diff(desired, remote *state.State) *Plan {
	plan := &Plan{Version: d.reg.Version(), Entries: []Entry{}}
	for _, want := range desired.All() {
		if len(d.kinds) > 0 && !d.kinds[want.Kind] {
			continue
		}
		have, ok := remote.Get(want.Kind, want.ID)
		switch {
		case !ok:
			plan.fail(want, fmt.Errorf("remote state of %s was not fetched", want.Ref()))
			continue
		case have.FetchErr != nil:
			plan.fail(want, have.FetchErr)
			continue
		}
		d.instance(plan, want, have)
	}
	sortEntries(plan.Entries)
	sortGaps(plan.Gaps)
	sortFailures(plan.Failures)
	return plan
}

func (p *Plan) fail(inst state.Instance, err error) {
	p.Failures = append(p.Failures, Failure{Kind: inst.Kind, ID: inst.ID, Err: err, Reason: err.Error()})
}

func (d *differ) ignored(kind state.Kind, key string) bool {
	return d.ignore.Match(key, string(kind)+"."+key)
}

func (d *differ) instance(plan *Plan, want, have state.Instance) {
	spec, _ := d.reg.Kind(want.Kind)
	keys := want.Placeholders()
	maps.Copy(keys, have.Handles)

	if have.Absent {
		if !spec.Creatable() {
			plan.fail(want, fmt.Errorf("%s does not exist and cannot be created", want.Ref()))
			return
		}
		create := Entry{Kind: want.Kind, ID: want.ID, Action: ActionCreate, Keys: keys, Bundle: map[string]any{}}
		for _, key := range spec.Create.Fields {
			if v, ok := want.Fields[key]; ok && v != nil && !d.ignored(want.Kind, key) {
				create.Bundle[key] = v
			}
		}
		plan.Entries = append(plan.Entries, create)
	}

	for _, key := range want.FieldKeys() {
		desired := want.Fields[key]
		if desired == nil || d.ignored(want.Kind, key) {
			continue
		}
		entry, err := d.reg.Resolve(want.Kind, key)
		if err != nil {
			plan.Gaps = append(plan.Gaps, Gap{Kind: want.Kind, ID: want.ID, Key: key, Reason: GapUnmapped, Desired: desired})
			continue
		}
		remote, has := have.Fields[key]
		if !have.Absent && (has && state.Equal(desired, remote, entry.Comparison()) || clearsUnset(desired, remote)) {
			if d.noops {
				plan.Entries = append(plan.Entries, Entry{
					Kind: want.Kind, ID: want.ID, Key: key,
					Desired: desired, Remote: remote, Action: ActionNoop, Keys: keys,
				})
			}
			continue
		}
		if !entry.Writable() {
			plan.Gaps = append(plan.Gaps, Gap{Kind: want.Kind, ID: want.ID, Key: key, Reason: GapReadOnly, Desired: desired, Remote: remote})
			continue
		}
		plan.Entries = append(plan.Entries, Entry{
			Kind:    want.Kind,
			ID:      want.ID,
			Key:     key,
			Desired: desired,
			Remote:  remote,
			Action:  ActionUpdate,
			Keys:    keys,
			Bundle:  d.bundle(want, entry),
		})
	}
}

// clearsUnset reports whether an empty string is declared for a field the
// remote stores as null. GitHub keeps cleared strings as null, so writing ""
// again would never converge.
func clearsUnset(desired, remote any) bool {
	s, ok := desired.(string)
	return ok && s == "" && remote == nil
}

// bundle collects, for a replace-mode field, the desired value of every
// declared writable field written through the same locator.
func (d *differ) bundle(want state.Instance, entry mapping.Entry) map[string]any {
	if entry.WriteMode() != mapping.ModeReplace {
		return nil
	}
	out := map[string]any{}
	for _, key := range want.FieldKeys() {
		v := want.Fields[key]
		if v == nil || d.ignored(want.Kind, key) {
			continue
		}
		other, err := d.reg.Resolve(want.Kind, key)
		if err != nil || !other.Writable() || other.WriteMode() != mapping.ModeReplace {
			continue
		}
		if other.Write.Locator == entry.Write.Locator && other.Write.Verb == entry.Write.Verb {
			out[key] = v
		}
	}
	return out
}
