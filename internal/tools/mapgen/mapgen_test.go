package mapgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

const description = `{
  "openapi": "3.0.3",
  "paths": {
    "/orgs/{org}": {
      "get": {},
      "patch": {
        "requestBody": {"content": {"application/json": {"schema": {
          "type": "object",
          "properties": {
            "description": {"type": "string"},
            "blog": {"type": "string"},
            "members_allowed_repository_creation_type": {"type": "string", "deprecated": true}
          }
        }}}}
      }
    },
    "/repos/{owner}/{repo}": {
      "patch": {
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/repo-update"}}}}
      },
      "put": {
        "requestBody": {"content": {"application/json": {"schema": {
          "properties": {"has_wiki": {"type": "boolean"}, "archived": {"type": "boolean"}}
        }}}}
      }
    },
    "/orgs/{org}/teams/{team_slug}": {
      "patch": {
        "requestBody": {"content": {"application/json": {"schema": {
          "allOf": [
            {"properties": {"privacy": {"type": "string"}}},
            {"$ref": "#/components/schemas/team-extra"}
          ]
        }}}}
      }
    },
    "/orgs/{org}/repos": {
      "post": {
        "requestBody": {"content": {"application/json": {"schema": {"properties": {"name": {"type": "string"}}}}}}
      }
    }
  },
  "components": {
    "schemas": {
      "repo-update": {
        "properties": {
          "has_wiki": {"type": "boolean"},
          "allow_merge_commit": {"type": "boolean"},
          "id": {"type": "integer", "readOnly": true}
        }
      },
      "team-extra": {"properties": {"notification_setting": {"type": "string"}}}
    }
  }
}`

func generate(t *testing.T) *Result {
	t.Helper()
	doc, err := Parse([]byte(description))
	require.NoError(t, err)
	res, err := Generate(doc, "2025-10-01")
	require.NoError(t, err)
	return res
}

func keys(table mapping.Table, kind state.Kind) []string {
	var out []string
	for _, e := range table.Fields {
		if e.Kind == kind {
			out = append(out, e.Key)
		}
	}
	return out
}

func TestGenerate(t *testing.T) {
	res := generate(t)
	table := res.Table

	assert.Equal(t, "2025-10-01", table.Version)
	assert.Equal(t, []string{"blog", "description"}, keys(table, state.KindOrganization))
	assert.Equal(t, []string{"allow_merge_commit", "has_wiki", "archived"}, keys(table, state.KindRepository))
	assert.Equal(t, []string{"notification_setting", "privacy"}, keys(table, state.KindTeam))

	for _, e := range table.Fields {
		assert.Equal(t, mapping.ReadWrite, e.Capability)
		assert.Equal(t, e.Key, e.Read.Path)
		require.NotNil(t, e.Write)
		assert.Equal(t, e.Read.Locator, e.Write.Locator)
	}
	assert.Contains(t, table.Kinds, "team")
}

func TestGeneratePrefersPatch(t *testing.T) {
	res := generate(t)
	for _, e := range res.Table.Fields {
		if e.Kind == state.KindRepository && e.Key == "has_wiki" {
			assert.Equal(t, "PATCH", e.Write.Verb)
			assert.Equal(t, "/repos/{org}/{repo}", e.Write.Locator)
		}
		if e.Key == "archived" {
			assert.Equal(t, "PUT", e.Write.Verb)
		}
	}
}

func TestGenerateSkips(t *testing.T) {
	res := generate(t)
	assert.ElementsMatch(t, []Skipped{
		{Kind: state.KindOrganization, Key: "members_allowed_repository_creation_type", Reason: "deprecated"},
		{Kind: state.KindRepository, Key: "id", Reason: "read-only property"},
	}, res.Skipped)
}

func TestGeneratedTableLoads(t *testing.T) {
	res := generate(t)
	data, err := mapping.Marshal(res.Table)
	require.NoError(t, err)

	reg, err := mapping.Load(data)
	require.NoError(t, err)
	assert.Equal(t, len(res.Table.Fields), reg.Len())

	e, err := reg.Resolve(state.KindTeam, "privacy")
	require.NoError(t, err)
	assert.True(t, e.Writable())
}

func TestMerge(t *testing.T) {
	base := mapping.Table{
		Version: "2024-01-01",
		Kinds:   map[string]mapping.KindSpec{"repository": {Probe: mapping.Read{Locator: "/repos/{org}/{repo}"}}},
		Fields: []mapping.Entry{{
			Kind:       state.KindRepository,
			Key:        "has_wiki",
			Capability: mapping.ReadOnly,
			Read:       mapping.Read{Locator: "/repos/{org}/{repo}", Path: "has_wiki"},
		}},
	}

	merged := Merge(base, generate(t).Table)
	assert.Equal(t, "2025-10-01", merged.Version)

	reg, err := mapping.New(merged)
	require.NoError(t, err)
	wiki, err := reg.Resolve(state.KindRepository, "has_wiki")
	require.NoError(t, err)
	assert.Equal(t, mapping.ReadOnly, wiki.Capability, "curated entries win")

	_, err = reg.Resolve(state.KindRepository, "allow_merge_commit")
	assert.NoError(t, err)
}

func TestGenerateErrors(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	require.Error(t, err)

	_, err = Generate(map[string]any{"openapi": "3.0.3"}, "v1")
	assert.True(t, errors.IsValidationError(err))

	_, err = Generate(map[string]any{"paths": map[string]any{}}, "")
	assert.True(t, errors.IsValidationError(err))
}
