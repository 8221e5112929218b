package orgsync_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/remote"
	"github.com/agentstation/orgsync/pkg/remote/memory"
	"github.com/agentstation/orgsync/pkg/save"
	"github.com/agentstation/orgsync/pkg/state"
	"github.com/agentstation/orgsync/pkg/worker"
)

func newClient(t *testing.T, gh *memory.GitHub, opts ...orgsync.Option) orgsync.Client {
	t.Helper()
	c, err := orgsync.New(append([]orgsync.Option{
		orgsync.WithExecutor(gh),
		orgsync.WithRateLimit(0, 0),
		orgsync.WithMaxRetries(1),
		orgsync.WithPoolOptions(worker.WithBackoff(time.Millisecond, 5*time.Millisecond)),
	}, opts...)...)
	require.NoError(t, err)
	return c
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), constants.FilePermissions))
	return path
}

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()
	gh := memory.New("acme")
	gh.AddRepo("harmony", map[string]any{"allow_merge_commit": true})
	c := newClient(t, gh)
	path := writeDoc(t, t.TempDir(), "org.yaml", `
org: acme
repos:
  - name: harmony
    settings:
      allow_merge_commit: false
`)

	plan, err := c.Diff(ctx, path)
	require.NoError(t, err)
	changes := plan.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, state.KindRepository, changes[0].Kind)
	assert.Equal(t, "harmony", changes[0].ID)
	assert.Equal(t, "allow_merge_commit", changes[0].Key)
	assert.Equal(t, false, changes[0].Desired)
	assert.Equal(t, true, changes[0].Remote)
	assert.Equal(t, differ.ActionUpdate, changes[0].Action)

	result, err := c.Sync(ctx, path, false)
	require.NoError(t, err)
	require.Len(t, result.Report.Results, 1)
	assert.Equal(t, apply.OutcomeApplied, result.Report.Results[0].Outcome)
	assert.True(t, result.Success())

	plan, err = c.Diff(ctx, path)
	require.NoError(t, err)
	assert.False(t, plan.HasChanges())
}

func TestDefaultsDocumentIsDiscovered(t *testing.T) {
	ctx := context.Background()
	gh := memory.New("acme")
	gh.AddRepo("x", map[string]any{"allow_merge_commit": true, "allow_squash_merge": false})
	dir := t.TempDir()
	path := writeDoc(t, dir, "org.yaml", "org: acme\nrepos:\n  - name: x\n    settings: {allow_merge_commit: false}\n")
	writeDoc(t, dir, constants.DefaultsFileName, "repos:\n  - name: x\n    settings: {allow_merge_commit: true, allow_squash_merge: true}\n")
	c := newClient(t, gh)

	desired, err := c.Load(path)
	require.NoError(t, err)
	inst, ok := desired.Get(state.KindRepository, "x")
	require.True(t, ok)
	assert.Equal(t, false, inst.Fields["allow_merge_commit"])
	assert.Equal(t, true, inst.Fields["allow_squash_merge"])

	plan, err := c.Diff(ctx, path)
	require.NoError(t, err)
	keys := []string{}
	for _, e := range plan.Changes() {
		keys = append(keys, e.Key)
	}
	assert.ElementsMatch(t, []string{"allow_merge_commit", "allow_squash_merge"}, keys)
}

func TestExplicitDefaultsPath(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "org.yaml", "repos:\n  - name: x\n")
	defaults := writeDoc(t, dir, "shared.yaml", "org: acme\n")
	c := newClient(t, memory.New("acme"), orgsync.WithDefaults(defaults))

	desired, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", desired.Org())
}

func TestFatalErrorsAbortBeforeRemoteCalls(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		check func(error) bool
	}{
		{name: "parse", doc: "org: acme\nrepos: [\n", check: func(err error) bool {
			var pe *errors.ParseError
			return errors.As(err, &pe)
		}},
		{name: "validation", doc: "org: acme\nassignments: [{repo: ghost, team: nobody, permission: push}]\n", check: errors.IsValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := memory.New("acme")
			c := newClient(t, gh)
			path := writeDoc(t, t.TempDir(), "org.yaml", tt.doc)

			_, err := c.Sync(context.Background(), path, false)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
			assert.True(t, errors.IsFatal(err))
			assert.Zero(t, gh.Requests())
		})
	}
}

func TestDryRunIsPure(t *testing.T) {
	gh := memory.New("acme")
	gh.AddRepo("api", map[string]any{"has_wiki": true})
	before := gh.Dump()
	rec := remote.NewRecorder(gh)
	c := newClient(t, gh, orgsync.WithExecutor(rec))
	path := writeDoc(t, t.TempDir(), "org.yaml", `
org: acme
settings: {description: changed}
repos:
  - name: api
    settings: {has_wiki: false}
  - name: new-repo
teams:
  - name: core
    members: [alice]
assignments:
  - {repo: new-repo, team: core, permission: push}
`)

	var skipped int
	c.OnSkipped(func(apply.Result) { skipped++ })

	result, err := c.Sync(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(gh.Dump()))
	assert.NotEmpty(t, rec.Calls())
	assert.Empty(t, rec.Writes())
	assert.True(t, result.Plan.HasChanges())
	assert.Equal(t, len(result.Plan.Changes()), skipped)
	assert.True(t, result.Success())
}

func TestDependencyOrderingAndShortCircuit(t *testing.T) {
	ctx := context.Background()
	doc := `
org: acme
repos: [{name: harmony}]
teams: [{name: core-team}]
assignments: [{repo: harmony, team: core-team, permission: push}]
`
	t.Run("ordering", func(t *testing.T) {
		c := newClient(t, memory.New("acme"))
		path := writeDoc(t, t.TempDir(), "org.yaml", doc)

		plan, err := c.Diff(ctx, path)
		require.NoError(t, err)
		pos := map[state.Kind]int{}
		for i, e := range plan.Entries {
			if e.Action == differ.ActionCreate {
				pos[e.Kind] = i
			}
		}
		require.Contains(t, pos, state.KindAssignment)
		assert.Less(t, pos[state.KindRepository], pos[state.KindAssignment])
		assert.Less(t, pos[state.KindTeam], pos[state.KindAssignment])

		result, err := c.Sync(ctx, path, false)
		require.NoError(t, err)
		assert.True(t, result.Success())

		plan, err = c.Diff(ctx, path)
		require.NoError(t, err)
		assert.False(t, plan.HasChanges())
	})

	t.Run("failed team create", func(t *testing.T) {
		gh := memory.New("acme")
		gh.Fail(http.MethodPost, "/orgs/acme/teams", http.StatusUnprocessableEntity, -1, 0)
		c := newClient(t, gh)
		path := writeDoc(t, t.TempDir(), "org.yaml", doc)

		var failed []apply.Result
		c.OnFailed(func(r apply.Result) { failed = append(failed, r) })

		result, err := c.Sync(ctx, path, false)
		require.NoError(t, err)
		assert.False(t, result.Success())

		var sawAssignment bool
		for _, r := range failed {
			if r.Entry.Kind == state.KindAssignment {
				sawAssignment = true
				assert.True(t, errors.IsDependencyFailed(r.Err))
			}
		}
		assert.True(t, sawAssignment)
		for _, r := range result.Report.Results {
			if r.Entry.Kind == state.KindAssignment {
				assert.NotEqual(t, apply.OutcomeApplied, r.Outcome)
			}
		}
	})
}

func TestCoverageTolerance(t *testing.T) {
	ctx := context.Background()
	logs := logging.CaptureLoggingForTest(t)
	gh := memory.New("acme")
	gh.AddRepo("api", map[string]any{"has_wiki": true})
	c := newClient(t, gh)
	path := writeDoc(t, t.TempDir(), "org.yaml", `
org: acme
repos:
  - name: api
    settings:
      has_wiki: false
      frobnicate_level: 11
`)

	result, err := c.Sync(ctx, path, false)
	require.NoError(t, err)
	assert.True(t, result.Success())
	for _, e := range result.Plan.Entries {
		assert.NotEqual(t, "frobnicate_level", e.Key)
	}
	require.Len(t, result.Plan.Gaps, 1)
	assert.Equal(t, "frobnicate_level", result.Plan.Gaps[0].Key)
	assert.Equal(t, differ.GapUnmapped, result.Plan.Gaps[0].Reason)
	logs.AssertContains(t, "frobnicate_level")
	logs.AssertContains(t, "Field not reconciled")

	plan, err := c.Diff(ctx, path)
	require.NoError(t, err)
	assert.False(t, plan.HasChanges())
}

func TestDiffIsDeterministic(t *testing.T) {
	gh := memory.New("acme")
	gh.AddRepo("a", map[string]any{"has_wiki": true, "has_issues": true})
	gh.AddRepo("b", map[string]any{"has_wiki": true})
	c := newClient(t, gh)
	path := writeDoc(t, t.TempDir(), "org.yaml", `
org: acme
settings: {description: Acme}
repos:
  - {name: b, settings: {has_wiki: false}}
  - {name: a, settings: {has_wiki: false, has_issues: false}}
  - {name: c}
teams: [{name: z}, {name: y, members: [bob, alice]}]
`)

	var outputs [][]byte
	for range 3 {
		plan, err := c.Diff(context.Background(), path)
		require.NoError(t, err)
		data, err := json.Marshal(plan)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func TestSyncFromOrgRoundTrip(t *testing.T) {
	ctx := context.Background()
	gh := memory.New("acme")
	gh.SetOrg(map[string]any{"description": "Acme Corp"})
	gh.AddRepo("web", map[string]any{"topics": []any{"site"}, "has_wiki": false})
	gh.AddRepo("api", map[string]any{"visibility": "private"})
	gh.AddHook("web", "https://ci.example.com", map[string]any{"events": []any{"push"}})
	gh.Protect("api", "main", map[string]any{"enforce_admins": true})
	core := gh.AddTeam("Core", map[string]any{"privacy": "closed"}, "alice")
	gh.Assign(core, "api", "push")
	gh.AddMember("alice", "admin")
	before := gh.Dump()
	c := newClient(t, gh)

	target := filepath.Join(t.TempDir(), "generated.yaml")
	res, err := c.SyncFromOrg(ctx, "acme", save.WithPath(target))
	require.NoError(t, err)
	assert.Equal(t, target, res.Path)
	assert.Equal(t, 2, res.Counts[state.KindRepository])
	assert.Equal(t, string(before), string(gh.Dump()), "generation never writes")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("# Generated by orgsync")))

	plan, err := c.Diff(ctx, target)
	require.NoError(t, err)
	assert.False(t, plan.HasChanges(), "changes: %+v", plan.Changes())
	assert.Empty(t, plan.Failures)
}

func TestSyncFromOrgToWriter(t *testing.T) {
	gh := memory.New("acme")
	gh.AddRepo("web", nil)
	c := newClient(t, gh)

	var buf bytes.Buffer
	res, err := c.SyncFromOrg(context.Background(), "acme", save.WithWriter(&buf))
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	assert.Contains(t, buf.String(), "org: acme")
	assert.Contains(t, buf.String(), "name: web")

	_, err = c.SyncFromOrg(context.Background(), "", save.WithWriter(&buf))
	assert.True(t, errors.IsValidationError(err))
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := orgsync.New(orgsync.WithExecutor(memory.New("acme")), orgsync.WithConcurrency(-1))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = orgsync.New(orgsync.WithExecutor(memory.New("acme")), orgsync.WithMappingFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)

	c, err := orgsync.New(orgsync.WithExecutor(memory.New("acme")))
	require.NoError(t, err)
	assert.NotZero(t, c.Registry().Len())
}

func TestCanceledSync(t *testing.T) {
	gh := memory.New("acme")
	c := newClient(t, gh)
	path := writeDoc(t, t.TempDir(), "org.yaml", "org: acme\nrepos: [{name: api}]\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Sync(ctx, path, false)
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
}
