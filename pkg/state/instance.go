package state

import (
	"maps"
	"slices"
)

// Instance is one resource: its identity, the placeholder keys used to address
// it remotely, and its field values.
type Instance struct {
	Kind Kind
	ID   string

	// Keys holds locator placeholder values (org, repo, team_slug, ...).
	Keys map[string]string

	// Fields maps config keys to loosely typed values.
	Fields map[string]any

	// Absent marks a remote instance whose underlying object does not exist.
	Absent bool

	// Handles are identifiers captured from the remote (a webhook id).
	Handles map[string]string

	// FetchErr is set when the instance could not be read at all.
	FetchErr error
}

// Ref returns the instance reference.
func (i Instance) Ref() Ref {
	return Ref{Kind: i.Kind, ID: i.ID}
}

// Field returns a field value.
func (i Instance) Field(key string) (any, bool) {
	v, ok := i.Fields[key]
	return v, ok
}

// FieldKeys returns the declared field keys in sorted order.
func (i Instance) FieldKeys() []string {
	return slices.Sorted(maps.Keys(i.Fields))
}

// Placeholders returns Keys overlaid with Handles.
func (i Instance) Placeholders() map[string]string {
	out := make(map[string]string, len(i.Keys)+len(i.Handles))
	maps.Copy(out, i.Keys)
	maps.Copy(out, i.Handles)
	return out
}

// Clone returns a deep copy.
func (i Instance) Clone() Instance {
	out := i
	out.Keys = maps.Clone(i.Keys)
	out.Handles = maps.Clone(i.Handles)
	if i.Fields != nil {
		out.Fields = make(map[string]any, len(i.Fields))
		for k, v := range i.Fields {
			out.Fields[k] = Clone(v)
		}
	}
	return out
}

// Ref identifies an instance.
type Ref struct {
	Kind Kind
	ID   string
}

func (r Ref) String() string {
	return string(r.Kind) + " " + r.ID
}

// Less orders refs by dependency class, kind, then id.
func (r Ref) Less(o Ref) bool {
	if r.Kind.Class() != o.Kind.Class() {
		return r.Kind.Class() < o.Kind.Class()
	}
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}
