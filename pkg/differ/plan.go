// Package differ compares a desired state with the remote state fetched for
// it and produces an ordered, deterministic Plan of changes.
package differ

import (
	"cmp"
	"slices"

	"github.com/agentstation/orgsync/pkg/state"
)

// Action is what a plan entry asks the apply engine to do.
type Action string

const (
	// ActionNoop means desired and remote already agree.
	ActionNoop Action = "noop"
	// ActionCreate creates a missing resource.
	ActionCreate Action = "create-resource"
	// ActionUpdate sets one field to its desired value.
	ActionUpdate Action = "update-field"
	// ActionDelete removes a resource. The differ never emits it: a desired
	// state is not an exhaustive listing of the organization.
	ActionDelete Action = "delete-resource"
)

// Entry is one planned change.
type Entry struct {
	Kind    state.Kind `json:"kind" yaml:"kind"`
	ID      string     `json:"id" yaml:"id"`
	Key     string     `json:"key,omitempty" yaml:"key,omitempty"`
	Desired any        `json:"desired,omitempty" yaml:"desired,omitempty"`
	Remote  any        `json:"remote,omitempty" yaml:"remote,omitempty"`
	Action  Action     `json:"action" yaml:"action"`

	// Keys are the placeholder values used to render locators, including
	// handles captured from the remote.
	Keys map[string]string `json:"-" yaml:"-"`

	// Bundle holds the desired values that must travel with this entry's
	// write: every declared field sharing a replace-mode locator, or the
	// fields sent with a create.
	Bundle map[string]any `json:"-" yaml:"-"`
}

// Ref returns the entry's resource reference.
func (e Entry) Ref() state.Ref {
	return state.Ref{Kind: e.Kind, ID: e.ID}
}

// GapReason says why a declared field was left out of the plan.
type GapReason string

// Gap reasons.
const (
	GapUnmapped GapReason = "unmapped"
	GapReadOnly GapReason = "read-only"
)

// Gap is a coverage warning: a declared field the engine cannot reconcile.
type Gap struct {
	Kind    state.Kind `json:"kind" yaml:"kind"`
	ID      string     `json:"id" yaml:"id"`
	Key     string     `json:"key" yaml:"key"`
	Reason  GapReason  `json:"reason" yaml:"reason"`
	Desired any        `json:"desired,omitempty" yaml:"desired,omitempty"`
	Remote  any        `json:"remote,omitempty" yaml:"remote,omitempty"`
}

// Failure is a resource that could not be planned, usually because its
// remote state could not be read.
type Failure struct {
	Kind state.Kind `json:"kind" yaml:"kind"`
	ID   string     `json:"id" yaml:"id"`
	Err  error      `json:"-" yaml:"-"`

	Reason string `json:"reason" yaml:"reason"`
}

// Plan is the ordered result of a diff.
type Plan struct {
	Version  string    `json:"mapping_version" yaml:"mapping_version"`
	Entries  []Entry   `json:"entries" yaml:"entries"`
	Gaps     []Gap     `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Changes returns the entries whose action is not noop.
func (p *Plan) Changes() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.Action != ActionNoop {
			out = append(out, e)
		}
	}
	return out
}

// HasChanges reports whether applying the plan would write anything.
func (p *Plan) HasChanges() bool {
	for _, e := range p.Entries {
		if e.Action != ActionNoop {
			return true
		}
	}
	return false
}

// Summary counts a plan.
type Summary struct {
	Creates  int `json:"creates" yaml:"creates"`
	Updates  int `json:"updates" yaml:"updates"`
	Noops    int `json:"noops" yaml:"noops"`
	Gaps     int `json:"gaps" yaml:"gaps"`
	Failures int `json:"failures" yaml:"failures"`
}

// Summary returns counts per action.
func (p *Plan) Summary() Summary {
	s := Summary{Gaps: len(p.Gaps), Failures: len(p.Failures)}
	for _, e := range p.Entries {
		switch e.Action {
		case ActionCreate:
			s.Creates++
		case ActionUpdate:
			s.Updates++
		case ActionNoop:
			s.Noops++
		}
	}
	return s
}

// Total returns the number of writes the plan asks for.
func (s Summary) Total() int {
	return s.Creates + s.Updates
}

func compareRef(ak state.Kind, aid string, bk state.Kind, bid string) int {
	if c := cmp.Compare(ak.Class(), bk.Class()); c != 0 {
		return c
	}
	if c := cmp.Compare(ak, bk); c != 0 {
		return c
	}
	return cmp.Compare(aid, bid)
}

// sortEntries orders entries by (dependency class, kind, id, key). A create
// entry has an empty key and so precedes the field updates of its resource.
func sortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := compareRef(a.Kind, a.ID, b.Kind, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

func sortGaps(gaps []Gap) {
	slices.SortStableFunc(gaps, func(a, b Gap) int {
		if c := compareRef(a.Kind, a.ID, b.Kind, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

func sortFailures(failures []Failure) {
	slices.SortStableFunc(failures, func(a, b Failure) int {
		return compareRef(a.Kind, a.ID, b.Kind, b.ID)
	})
}
