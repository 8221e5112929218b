package state

import (
	"fmt"
	"maps"
	"slices"
)

// State is an immutable snapshot of resource instances. Accessors return
// copies so no caller can mutate a snapshot in place.
type State struct {
	org       string
	instances map[Kind]map[string]Instance
}

// Org returns the organization the snapshot belongs to.
func (s *State) Org() string {
	if s == nil {
		return ""
	}
	return s.org
}

// Get returns a copy of one instance.
func (s *State) Get(kind Kind, id string) (Instance, bool) {
	if s == nil {
		return Instance{}, false
	}
	inst, ok := s.instances[kind][id]
	if !ok {
		return Instance{}, false
	}
	return inst.Clone(), true
}

// Has reports whether an instance exists in the snapshot.
func (s *State) Has(kind Kind, id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.instances[kind][id]
	return ok
}

// Instances returns copies of every instance of kind sorted by id.
func (s *State) Instances(kind Kind) []Instance {
	if s == nil {
		return nil
	}
	byID := s.instances[kind]
	out := make([]Instance, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, byID[id].Clone())
	}
	return out
}

// All returns copies of every instance in dependency order.
func (s *State) All() []Instance {
	var out []Instance
	for _, kind := range Kinds {
		out = append(out, s.Instances(kind)...)
	}
	return out
}

// Len returns the number of instances.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, byID := range s.instances {
		n += len(byID)
	}
	return n
}

// Count returns the number of instances of kind.
func (s *State) Count(kind Kind) int {
	if s == nil {
		return 0
	}
	return len(s.instances[kind])
}

// Builder assembles a State. A Builder must not be used after Build.
type Builder struct {
	org       string
	instances map[Kind]map[string]Instance
}

// NewBuilder creates a builder for org.
func NewBuilder(org string) *Builder {
	return &Builder{org: org, instances: make(map[Kind]map[string]Instance)}
}

// Add stores a copy of inst. Adding the same (kind, id) twice is an error.
func (b *Builder) Add(inst Instance) error {
	if !inst.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", inst.Kind)
	}
	if inst.ID == "" {
		return fmt.Errorf("%s instance has an empty id", inst.Kind)
	}
	byID, ok := b.instances[inst.Kind]
	if !ok {
		byID = make(map[string]Instance)
		b.instances[inst.Kind] = byID
	}
	if _, dup := byID[inst.ID]; dup {
		return fmt.Errorf("duplicate %s %q", inst.Kind, inst.ID)
	}
	c := inst.Clone()
	if c.Fields == nil {
		c.Fields = map[string]any{}
	}
	for k, v := range c.Fields {
		c.Fields[k] = Normalize(v)
	}
	byID[inst.ID] = c
	return nil
}

// Put stores inst, replacing any existing instance with the same ref.
func (b *Builder) Put(inst Instance) {
	if byID, ok := b.instances[inst.Kind]; ok {
		delete(byID, inst.ID)
	}
	_ = b.Add(inst)
}

// Build returns the finished snapshot.
func (b *Builder) Build() *State {
	s := &State{org: b.org, instances: b.instances}
	b.instances = nil
	return s
}
