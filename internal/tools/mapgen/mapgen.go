// Package mapgen derives mapping-table entries from the GitHub OpenAPI
// description. It looks at the PATCH, PUT and POST operations of the
// organization, repository and team endpoints and turns every JSON request
// body property into a read-write scalar entry. The runtime never imports
// it; its output is reviewed and merged into the table by hand or with
// Merge.
package mapgen

import (
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

// Endpoint ties an OpenAPI path to the kind whose settings it writes.
type Endpoint struct {
	Path    string
	Kind    state.Kind
	Locator string
}

// Endpoints are the paths the generator reads. Locators use the mapping
// table placeholders.
var Endpoints = []Endpoint{
	{Path: "/orgs/{org}", Kind: state.KindOrganization, Locator: "/orgs/{org}"},
	{Path: "/repos/{owner}/{repo}", Kind: state.KindRepository, Locator: "/repos/{org}/{repo}"},
	{Path: "/orgs/{org}/teams/{team_slug}", Kind: state.KindTeam, Locator: "/orgs/{org}/teams/{team_slug}"},
}

// verbs in order of preference when one property is accepted by several.
var verbs = []string{"patch", "put", "post"}

const maxRefDepth = 16

// Skipped records a property that was not turned into an entry.
type Skipped struct {
	Kind   state.Kind `json:"kind" yaml:"kind"`
	Key    string     `json:"key" yaml:"key"`
	Reason string     `json:"reason" yaml:"reason"`
}

// Result is a generated table and what was left out.
type Result struct {
	Table   mapping.Table
	Skipped []Skipped
}

// Parse decodes an OpenAPI description in JSON or YAML.
func Parse(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("openapi", "description", err)
	}
	if doc == nil {
		return nil, errors.NewValidationError("openapi", nil, "empty description")
	}
	return doc, nil
}

// Generate builds a table stamped with version from an OpenAPI document.
func Generate(doc map[string]any, version string) (*Result, error) {
	if version == "" {
		return nil, errors.NewValidationError("version", version, "version stamp is required")
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		return nil, errors.NewValidationError("paths", nil, "description has no paths object")
	}

	res := &Result{Table: mapping.Table{
		Version: version,
		Kinds:   map[string]mapping.KindSpec{},
	}}
	for _, ep := range Endpoints {
		ops, ok := paths[ep.Path].(map[string]any)
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for _, verb := range verbs {
			op, ok := ops[verb].(map[string]any)
			if !ok {
				continue
			}
			props := properties(doc, requestSchema(op), 0)
			for _, name := range sortedKeys(props) {
				if seen[name] {
					continue
				}
				seen[name] = true
				prop, _ := resolve(doc, props[name], 0).(map[string]any)
				if reason := skipReason(prop); reason != "" {
					res.Skipped = append(res.Skipped, Skipped{Kind: ep.Kind, Key: name, Reason: reason})
					continue
				}
				res.Table.Fields = append(res.Table.Fields, mapping.Entry{
					Kind:       ep.Kind,
					Key:        name,
					Capability: mapping.ReadWrite,
					Read:       mapping.Read{Locator: ep.Locator, Path: name},
					Write:      &mapping.Write{Locator: ep.Locator, Verb: strings.ToUpper(verb), Path: name},
				})
			}
		}
		if len(seen) > 0 {
			res.Table.Kinds[string(ep.Kind)] = mapping.KindSpec{Probe: mapping.Read{Locator: ep.Locator}}
		}
	}
	return res, nil
}

// Merge adds the generated entries that base does not map yet. Entries and
// kinds already in base are kept as they are; the result carries the
// generated version stamp.
func Merge(base, generated mapping.Table) mapping.Table {
	out := mapping.Table{
		Version: generated.Version,
		Kinds:   make(map[string]mapping.KindSpec, len(base.Kinds)),
		Fields:  slices.Clone(base.Fields),
	}
	for name, spec := range base.Kinds {
		out.Kinds[name] = spec
	}
	for name, spec := range generated.Kinds {
		if _, ok := out.Kinds[name]; !ok {
			out.Kinds[name] = spec
		}
	}

	have := make(map[string]bool, len(base.Fields))
	for _, e := range base.Fields {
		have[string(e.Kind)+"."+e.Key] = true
	}
	for _, e := range generated.Fields {
		if !have[string(e.Kind)+"."+e.Key] {
			out.Fields = append(out.Fields, e)
		}
	}
	return out
}

func requestSchema(op map[string]any) any {
	body, _ := op["requestBody"].(map[string]any)
	content, _ := body["content"].(map[string]any)
	media, _ := content["application/json"].(map[string]any)
	return media["schema"]
}

// properties collects the object properties of schema, following $ref and
// allOf.
func properties(doc map[string]any, schema any, depth int) map[string]any {
	s, ok := resolve(doc, schema, depth).(map[string]any)
	if !ok || depth > maxRefDepth {
		return nil
	}
	out := map[string]any{}
	if props, ok := s["properties"].(map[string]any); ok {
		for k, v := range props {
			out[k] = v
		}
	}
	if all, ok := s["allOf"].([]any); ok {
		for _, part := range all {
			for k, v := range properties(doc, part, depth+1) {
				out[k] = v
			}
		}
	}
	return out
}

// resolve follows local "#/..." references.
func resolve(doc map[string]any, schema any, depth int) any {
	for range maxRefDepth - depth {
		m, ok := schema.(map[string]any)
		if !ok {
			return schema
		}
		ref, ok := m["$ref"].(string)
		if !ok {
			return m
		}
		schema = lookup(doc, ref)
	}
	return nil
}

func lookup(doc map[string]any, ref string) any {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	var cur any = doc
	for part := range strings.SplitSeq(strings.TrimPrefix(ref, "#/"), "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func skipReason(prop map[string]any) string {
	switch {
	case prop == nil:
		return "unresolvable schema"
	case prop["readOnly"] == true:
		return "read-only property"
	case prop["deprecated"] == true:
		return "deprecated"
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ReadTable reads a mapping table file without validating it, so that
// Merge can extend tables that are still incomplete.
func ReadTable(path string) (mapping.Table, error) {
	var table mapping.Table
	data, err := os.ReadFile(path)
	if err != nil {
		return table, errors.WrapIO("read", path, err)
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return table, errors.WrapParse("yaml", path, err)
	}
	return table, nil
}
