// Package config parses desired-state documents and merges a main document
// with an optional defaults document into one effective state.State.
package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
)

// Document is one desired-state document.
type Document struct {
	Org         string         `yaml:"org"`
	Settings    map[string]any `yaml:"settings,omitempty"`
	Repos       []Repo         `yaml:"repos,omitempty"`
	Teams       []Team         `yaml:"teams,omitempty"`
	Users       []User         `yaml:"users,omitempty"`
	Assignments []Assignment   `yaml:"assignments,omitempty"`

	// DefaultWebhook is attached to every repository that declares none.
	DefaultWebhook map[string]any `yaml:"default_webhook,omitempty"`

	// DefaultBranchProtections apply to every repository that declares none.
	DefaultBranchProtections []map[string]any `yaml:"default_branch_protections,omitempty"`
}

// Repo declares a repository. Keys other than the named ones are kept in
// Extra and treated as repository fields.
type Repo struct {
	Name              string
	Visibility        string
	Settings          map[string]any
	Webhook           map[string]any
	Webhooks          []map[string]any
	BranchProtections []map[string]any
	Extra             map[string]any
}

// Team declares a team and, optionally, its exact member set.
type Team struct {
	Name    string
	Members []string
	Extra   map[string]any
}

// User declares an organization member.
type User struct {
	Login string
	Role  string
	Extra map[string]any
}

// Assignment grants a team a permission on a repository.
type Assignment struct {
	Repo       string `yaml:"repo"`
	Team       string `yaml:"team"`
	Permission string `yaml:"permission,omitempty"`
}

// UnmarshalYAML implements yaml.BytesUnmarshaler.
func (r *Repo) UnmarshalYAML(data []byte) error {
	raw, err := rawMap(data)
	if err != nil {
		return err
	}
	if r.Name, err = takeString(raw, "name"); err != nil {
		return err
	}
	if r.Visibility, err = takeString(raw, "visibility"); err != nil {
		return err
	}
	if r.Settings, err = takeMap(raw, "settings"); err != nil {
		return err
	}
	if r.Webhook, err = takeMap(raw, "webhook"); err != nil {
		return err
	}
	if r.Webhooks, err = takeMaps(raw, "webhooks"); err != nil {
		return err
	}
	if r.BranchProtections, err = takeMaps(raw, "branch_protections"); err != nil {
		return err
	}
	r.Extra = extra(raw)
	return nil
}

// MarshalYAML writes the name first, then the known keys, then extras in
// key order.
func (r Repo) MarshalYAML() (any, error) {
	out := yaml.MapSlice{{Key: "name", Value: r.Name}}
	if r.Visibility != "" {
		out = append(out, yaml.MapItem{Key: "visibility", Value: r.Visibility})
	}
	if len(r.Settings) > 0 {
		out = append(out, yaml.MapItem{Key: "settings", Value: sortedMap(r.Settings)})
	}
	if len(r.Webhook) > 0 {
		out = append(out, yaml.MapItem{Key: "webhook", Value: sortedMap(r.Webhook)})
	}
	if len(r.Webhooks) > 0 {
		out = append(out, yaml.MapItem{Key: "webhooks", Value: sortedMaps(r.Webhooks)})
	}
	if len(r.BranchProtections) > 0 {
		out = append(out, yaml.MapItem{Key: "branch_protections", Value: sortedMaps(r.BranchProtections)})
	}
	return append(out, sortedMap(r.Extra)...), nil
}

// UnmarshalYAML implements yaml.BytesUnmarshaler.
func (t *Team) UnmarshalYAML(data []byte) error {
	raw, err := rawMap(data)
	if err != nil {
		return err
	}
	if t.Name, err = takeString(raw, "name"); err != nil {
		return err
	}
	if t.Members, err = takeStrings(raw, "members"); err != nil {
		return err
	}
	t.Extra = extra(raw)
	return nil
}

// MarshalYAML implements yaml.InterfaceMarshaler.
func (t Team) MarshalYAML() (any, error) {
	out := yaml.MapSlice{{Key: "name", Value: t.Name}}
	if t.Members != nil {
		out = append(out, yaml.MapItem{Key: "members", Value: t.Members})
	}
	return append(out, sortedMap(t.Extra)...), nil
}

// UnmarshalYAML implements yaml.BytesUnmarshaler.
func (u *User) UnmarshalYAML(data []byte) error {
	raw, err := rawMap(data)
	if err != nil {
		return err
	}
	if u.Login, err = takeString(raw, "login"); err != nil {
		return err
	}
	if u.Role, err = takeString(raw, "role"); err != nil {
		return err
	}
	u.Extra = extra(raw)
	return nil
}

// MarshalYAML implements yaml.InterfaceMarshaler.
func (u User) MarshalYAML() (any, error) {
	out := yaml.MapSlice{{Key: "login", Value: u.Login}}
	if u.Role != "" {
		out = append(out, yaml.MapItem{Key: "role", Value: u.Role})
	}
	return append(out, sortedMap(u.Extra)...), nil
}

func rawMap(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func takeString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	delete(raw, key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func takeStrings(raw map[string]any, key string) ([]string, error) {
	v, ok := raw[key]
	delete(raw, key)
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %T", key, v)
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%s entries must be strings, got %T", key, e)
		}
		out = append(out, s)
	}
	return out, nil
}

func takeMap(raw map[string]any, key string) (map[string]any, error) {
	v, ok := raw[key]
	delete(raw, key)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", key, v)
	}
	return m, nil
}

func takeMaps(raw map[string]any, key string) ([]map[string]any, error) {
	v, ok := raw[key]
	delete(raw, key)
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %T", key, v)
	}
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s entries must be mappings, got %T", key, e)
		}
		out = append(out, m)
	}
	return out, nil
}

func extra(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func sortedMap(m map[string]any) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if nested, ok := v.(map[string]any); ok {
			out = append(out, yaml.MapItem{Key: k, Value: sortedMap(nested)})
			continue
		}
		out = append(out, yaml.MapItem{Key: k, Value: v})
	}
	return out
}

func sortedMaps(ms []map[string]any) []yaml.MapSlice {
	out := make([]yaml.MapSlice, 0, len(ms))
	for _, m := range ms {
		out = append(out, sortedMap(m))
	}
	return out
}

// Marshal encodes a document as YAML.
func Marshal(doc *Document) ([]byte, error) {
	return yaml.MarshalWithOptions(doc, yaml.Indent(2), yaml.IndentSequence(false))
}
