package syncfromorg

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/pkg/remote/memory"
)

func execute(t *testing.T, app appcontext.Interface, args ...string) error {
	t.Helper()
	cmd := NewCommand(app)
	cmd.SetArgs(args)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd.ExecuteContext(context.Background())
}

func newOrg() *memory.GitHub {
	gh := memory.New("acme")
	gh.AddRepo("web", map[string]any{"has_wiki": false})
	gh.AddMember("alice", "admin")
	return gh
}

func TestSyncFromOrgWritesFile(t *testing.T) {
	gh := newOrg()
	app, out := appcontext.NewTestMock(t, gh, "table")
	target := filepath.Join(t.TempDir(), "acme.yaml")

	require.NoError(t, execute(t, app, target, "--org", "acme"))
	assert.Contains(t, out.String(), "Wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Generated by orgsync"))
	assert.Contains(t, string(data), "name: web")
	assert.Contains(t, string(data), "login: alice")
}

func TestSyncFromOrgDryRunPrints(t *testing.T) {
	gh := newOrg()
	app, out := appcontext.NewTestMock(t, gh, "table")
	dir := t.TempDir()
	target := filepath.Join(dir, "acme.yaml")

	require.NoError(t, execute(t, app, target, "--org", "acme", "--dry-run"))
	assert.Contains(t, out.String(), "org: acme")
	assert.NoFileExists(t, target)
}

func TestSyncFromOrgJSON(t *testing.T) {
	gh := newOrg()
	app, out := appcontext.NewTestMock(t, gh, "json")
	target := filepath.Join(t.TempDir(), "acme.yaml")

	require.NoError(t, execute(t, app, target, "--org", "acme"))
	var res struct {
		Path   string         `json:"path"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, target, res.Path)
	assert.Equal(t, 1, res.Counts["repository"])
}

func TestSyncFromOrgRequiresOrg(t *testing.T) {
	app, _ := appcontext.NewTestMock(t, newOrg(), "table")
	err := execute(t, app, filepath.Join(t.TempDir(), "x.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org")
}
