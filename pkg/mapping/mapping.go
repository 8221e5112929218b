// Package mapping implements the field mapping registry: an immutable table
// that turns a (resource kind, config key) pair into remote read and write
// operations. The table is data; every conversion it names resolves to an
// explicit Codec function at load time.
package mapping

import (
	"net/http"
	"slices"
	"strings"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/state"
)

// Capability says whether a field can be written.
type Capability string

// Capabilities.
const (
	ReadOnly  Capability = "read-only"
	ReadWrite Capability = "read-write"
)

// WriteMode says how a field's desired value is turned into a request.
type WriteMode string

// Write modes.
const (
	// ModeField sets one path of the payload. Fields sharing a locator are
	// batched into one request.
	ModeField WriteMode = "field"

	// ModeReplace sends every declared field sharing the locator in one
	// payload, for endpoints that replace the whole object.
	ModeReplace WriteMode = "replace"

	// ModeCollection reconciles set membership with one request per added or
	// removed item.
	ModeCollection WriteMode = "collection"
)

// Select picks one element from a list payload.
type Select struct {
	Path   string `json:"path" yaml:"path"`
	Equals string `json:"equals" yaml:"equals"`
}

// Read describes how to obtain a field's current value.
type Read struct {
	Locator string  `json:"locator" yaml:"locator"`
	Path    string  `json:"path,omitempty" yaml:"path,omitempty"`
	Select  *Select `json:"select,omitempty" yaml:"select,omitempty"`
	Codec   string  `json:"codec,omitempty" yaml:"codec,omitempty"`
}

// Item is the request issued per collection member.
type Item struct {
	Locator string         `json:"locator" yaml:"locator"`
	Verb    string         `json:"verb" yaml:"verb"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Write describes how to set a field.
type Write struct {
	Locator string         `json:"locator,omitempty" yaml:"locator,omitempty"`
	Verb    string         `json:"verb,omitempty" yaml:"verb,omitempty"`
	Path    string         `json:"path,omitempty" yaml:"path,omitempty"`
	Mode    WriteMode      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Codec   string         `json:"codec,omitempty" yaml:"codec,omitempty"`
	Carry   map[string]any `json:"carry,omitempty" yaml:"carry,omitempty"`
	Add     *Item          `json:"add,omitempty" yaml:"add,omitempty"`
	Remove  *Item          `json:"remove,omitempty" yaml:"remove,omitempty"`
}

// Entry maps one config key of one kind.
type Entry struct {
	Kind       state.Kind       `json:"kind" yaml:"kind"`
	Key        string           `json:"key" yaml:"key"`
	Capability Capability       `json:"capability" yaml:"capability"`
	Compare    state.Comparison `json:"compare,omitempty" yaml:"compare,omitempty"`
	Read       Read             `json:"read" yaml:"read"`
	Write      *Write           `json:"write,omitempty" yaml:"write,omitempty"`

	decode Codec
	encode Codec
}

// Writable reports whether the engine may write this field.
func (e Entry) Writable() bool {
	return e.Capability == ReadWrite && e.Write != nil
}

// Decode converts a raw remote value into the declared representation.
func (e Entry) Decode(raw any) (any, error) {
	if e.decode.Decode == nil {
		return valueCodec.Decode(raw)
	}
	return e.decode.Decode(raw)
}

// Encode converts a declared value into the remote representation.
func (e Entry) Encode(v any) (any, error) {
	if e.encode.Encode == nil {
		return valueCodec.Encode(v)
	}
	return e.encode.Encode(v)
}

// Comparison returns the comparison mode, defaulting to scalar.
func (e Entry) Comparison() state.Comparison {
	if e.Compare == "" {
		return state.CompareScalar
	}
	return e.Compare
}

// WriteMode returns the write mode, defaulting to field.
func (e Entry) WriteMode() WriteMode {
	if e.Write == nil || e.Write.Mode == "" {
		return ModeField
	}
	return e.Write.Mode
}

// Create describes how a missing instance is created.
type Create struct {
	Locator string            `json:"locator" yaml:"locator"`
	Verb    string            `json:"verb" yaml:"verb"`
	Static  map[string]any    `json:"static,omitempty" yaml:"static,omitempty"`
	Fields  []string          `json:"fields,omitempty" yaml:"fields,omitempty"`
	Capture map[string]string `json:"capture,omitempty" yaml:"capture,omitempty"`
}

// List describes how instances of a kind are discovered for snapshots.
type List struct {
	Parent  state.Kind        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Locator string            `json:"locator" yaml:"locator"`
	Keys    map[string]string `json:"keys" yaml:"keys"`
}

// Dependency names a prerequisite instance by kind and id template.
type Dependency struct {
	Kind state.Kind `json:"kind" yaml:"kind"`
	ID   string     `json:"id" yaml:"id"`
}

// KindSpec carries per-kind operations that are not tied to one field.
type KindSpec struct {
	Kind      state.Kind        `json:"-" yaml:"-"`
	Probe     Read              `json:"probe" yaml:"probe"`
	Capture   map[string]string `json:"capture,omitempty" yaml:"capture,omitempty"`
	Create    *Create           `json:"create,omitempty" yaml:"create,omitempty"`
	List      *List             `json:"list,omitempty" yaml:"list,omitempty"`
	DependsOn []Dependency      `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Creatable reports whether missing instances can be created.
func (k KindSpec) Creatable() bool {
	return k.Create != nil
}

// CreatesField reports whether key is sent with the create request.
func (k KindSpec) CreatesField(key string) bool {
	return k.Create != nil && slices.Contains(k.Create.Fields, key)
}

type entryKey struct {
	kind state.Kind
	key  string
}

// Registry is the loaded mapping table. It is read-only after construction
// and safe for concurrent use.
type Registry struct {
	version string
	entries map[entryKey]Entry
	kinds   map[state.Kind]KindSpec
}

// Version returns the table version stamp.
func (r *Registry) Version() string {
	return r.version
}

// Resolve returns the entry for (kind, key) or a MappingNotFoundError.
func (r *Registry) Resolve(kind state.Kind, key string) (Entry, error) {
	e, ok := r.entries[entryKey{kind, key}]
	if !ok {
		return Entry{}, errors.NewMappingNotFoundError(string(kind), key)
	}
	return e, nil
}

// Kind returns the per-kind spec.
func (r *Registry) Kind(kind state.Kind) (KindSpec, bool) {
	k, ok := r.kinds[kind]
	return k, ok
}

// Entries returns every entry of kind sorted by key.
func (r *Registry) Entries(kind state.Kind) []Entry {
	var out []Entry
	for k, e := range r.entries {
		if k.kind == kind {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// All returns every entry in kind order, then key order.
func (r *Registry) All() []Entry {
	var out []Entry
	for _, kind := range state.Kinds {
		out = append(out, r.Entries(kind)...)
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Filter returns a registry holding only the kinds keep accepts.
func (r *Registry) Filter(keep func(state.Kind) bool) *Registry {
	out := &Registry{
		version: r.version,
		entries: make(map[entryKey]Entry),
		kinds:   make(map[state.Kind]KindSpec),
	}
	for k, e := range r.entries {
		if keep(k.kind) {
			out.entries[k] = e
		}
	}
	for k, spec := range r.kinds {
		if keep(k) {
			out.kinds[k] = spec
		}
	}
	return out
}

var verbs = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func validVerb(v string) bool {
	return slices.Contains(verbs, strings.ToUpper(v))
}
