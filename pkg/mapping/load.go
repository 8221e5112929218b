package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/orgsync/internal/embedded"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/state"
)

// Table is the serialized form of a registry.
type Table struct {
	Version string              `yaml:"version"`
	Kinds   map[string]KindSpec `yaml:"kinds"`
	Fields  []Entry             `yaml:"fields"`
}

// New validates a table and builds a registry from it.
func New(table Table) (*Registry, error) {
	if table.Version == "" {
		return nil, errors.NewValidationError("version", nil, "mapping table has no version")
	}
	r := &Registry{
		version: table.Version,
		entries: make(map[entryKey]Entry, len(table.Fields)),
		kinds:   make(map[state.Kind]KindSpec, len(table.Kinds)),
	}

	for name, spec := range table.Kinds {
		kind, ok := state.ParseKind(name)
		if !ok {
			return nil, errors.NewValidationError("kinds", name, "unknown resource kind")
		}
		spec.Kind = kind
		if err := validateKind(spec); err != nil {
			return nil, err
		}
		if err := checkPlaceholders(placeholderScope(spec), spec.Probe.Locator); err != nil {
			return nil, errors.NewValidationError("kinds."+name+".probe", spec.Probe.Locator, err.Error())
		}
		r.kinds[kind] = spec
	}

	for i, e := range table.Fields {
		field := fmt.Sprintf("fields[%d]", i)
		if !e.Kind.Valid() {
			return nil, errors.NewValidationError(field, e.Kind, "unknown resource kind")
		}
		spec, ok := r.kinds[e.Kind]
		if !ok {
			return nil, errors.NewValidationError(field, e.Kind, "kind has no probe definition")
		}
		if e.Key == "" {
			return nil, errors.NewValidationError(field, nil, "empty config key")
		}
		k := entryKey{e.Kind, e.Key}
		if _, dup := r.entries[k]; dup {
			return nil, errors.NewValidationError(field, e.Key, fmt.Sprintf("duplicate mapping for %s.%s", e.Kind, e.Key))
		}
		resolved, err := resolveEntry(e)
		if err != nil {
			return nil, errors.NewValidationError(field, e.Key, err.Error())
		}
		if err := checkPlaceholders(placeholderScope(spec), entryLocators(resolved)...); err != nil {
			return nil, errors.NewValidationError(field, e.Key, err.Error())
		}
		r.entries[k] = resolved
	}
	return r, nil
}

func validateKind(spec KindSpec) error {
	field := "kinds." + string(spec.Kind)
	if spec.Probe.Locator == "" {
		return errors.NewValidationError(field, nil, "probe locator is required")
	}
	if c := spec.Create; c != nil {
		if c.Locator == "" || !validVerb(c.Verb) {
			return errors.NewValidationError(field+".create", c.Verb, "create needs a locator and a valid verb")
		}
	}
	if l := spec.List; l != nil {
		if l.Locator == "" {
			return errors.NewValidationError(field+".list", nil, "list locator is required")
		}
		if l.Parent != "" && !l.Parent.Valid() {
			return errors.NewValidationError(field+".list", l.Parent, "unknown parent kind")
		}
	}
	for _, d := range spec.DependsOn {
		if !d.Kind.Valid() || d.ID == "" {
			return errors.NewValidationError(field+".depends_on", d.Kind, "dependency needs a kind and an id template")
		}
	}
	return nil
}

// placeholderScope lists the placeholders an instance of spec's kind can
// fill: the org, its identity keys, the team slug derived from a team name,
// captured handles and collection members.
func placeholderScope(spec KindSpec) map[string]bool {
	scope := map[string]bool{state.KeyOrg: true, "item": true}
	for _, k := range spec.Kind.Identity() {
		scope[k] = true
		if k == state.KeyTeam {
			scope[state.KeyTeamSlug] = true
		}
	}
	for k := range spec.Capture {
		scope[k] = true
	}
	if spec.Create != nil {
		for k := range spec.Create.Capture {
			scope[k] = true
		}
	}
	return scope
}

func entryLocators(e Entry) []string {
	locators := []string{e.Read.Locator}
	if w := e.Write; w != nil {
		locators = append(locators, w.Locator)
		for _, item := range []*Item{w.Add, w.Remove} {
			if item != nil {
				locators = append(locators, item.Locator)
			}
		}
	}
	return locators
}

func checkPlaceholders(scope map[string]bool, locators ...string) error {
	for _, loc := range locators {
		for _, name := range Placeholders(loc) {
			if !scope[name] {
				return fmt.Errorf("unknown placeholder {%s} in %s", name, loc)
			}
		}
	}
	return nil
}

func resolveEntry(e Entry) (Entry, error) {
	if e.Capability == "" {
		e.Capability = ReadOnly
		if e.Write != nil {
			e.Capability = ReadWrite
		}
	}
	if e.Capability != ReadOnly && e.Capability != ReadWrite {
		return e, fmt.Errorf("unknown capability %q", e.Capability)
	}
	switch e.Compare {
	case "", state.CompareScalar, state.CompareSet, state.CompareOrdered:
	default:
		return e, fmt.Errorf("unknown comparison %q", e.Compare)
	}
	if e.Read.Locator == "" {
		return e, fmt.Errorf("read locator is required")
	}
	dec, ok := LookupCodec(e.Read.Codec)
	if !ok {
		return e, fmt.Errorf("unknown read codec %q", e.Read.Codec)
	}
	e.decode = dec
	e.encode = valueCodec

	if e.Capability == ReadOnly {
		return e, nil
	}
	w := e.Write
	if w == nil {
		return e, fmt.Errorf("read-write entry has no write descriptor")
	}
	enc, ok := LookupCodec(w.Codec)
	if !ok {
		return e, fmt.Errorf("unknown write codec %q", w.Codec)
	}
	e.encode = enc
	switch e.WriteMode() {
	case ModeField, ModeReplace:
		if w.Locator == "" || !validVerb(w.Verb) {
			return e, fmt.Errorf("write needs a locator and a valid verb")
		}
	case ModeCollection:
		if w.Add == nil || w.Remove == nil {
			return e, fmt.Errorf("collection write needs add and remove items")
		}
		if !validVerb(w.Add.Verb) || !validVerb(w.Remove.Verb) {
			return e, fmt.Errorf("collection items need valid verbs")
		}
		e.Compare = state.CompareSet
	default:
		return e, fmt.Errorf("unknown write mode %q", w.Mode)
	}
	w.Verb = strings.ToUpper(w.Verb)
	return e, nil
}

// Load parses a YAML mapping table.
func Load(data []byte) (*Registry, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.WrapParse("yaml", "mapping table", err)
	}
	return New(table)
}

// LoadFile parses a YAML mapping table from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return New(table)
}

// Default loads the table compiled into the binary.
func Default() (*Registry, error) {
	return Load(embedded.MappingTable)
}

// Marshal serializes a table.
func Marshal(table Table) ([]byte, error) {
	return yaml.MarshalWithOptions(table, yaml.Indent(2), yaml.IndentSequence(false))
}
