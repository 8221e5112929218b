package fetch

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/remote/memory"
	"github.com/agentstation/orgsync/pkg/state"
)

func seeded() *memory.GitHub {
	gh := memory.New("acme")
	gh.SetOrg(map[string]any{"description": "Acme Corp"})
	gh.AddRepo("api", map[string]any{"visibility": "private"})
	gh.AddRepo("web", nil)
	slug := gh.AddTeam("Core", map[string]any{"privacy": "closed"}, "alice")
	gh.Assign(slug, "api", "admin")
	gh.AddMember("alice", "admin")
	gh.AddMember("bob", "member")
	gh.AddHook("web", "https://ci.example.com", nil)
	gh.Protect("api", "main", map[string]any{"enforce_admins": true})
	return gh
}

func TestSnapshotDiscoversEveryKind(t *testing.T) {
	snap, err := newFetcher(t, seeded()).Snapshot(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Count(state.KindOrganization))
	assert.Equal(t, 2, snap.Count(state.KindRepository))
	assert.Equal(t, 1, snap.Count(state.KindTeam))
	assert.Equal(t, 2, snap.Count(state.KindUser))
	assert.Equal(t, 1, snap.Count(state.KindWebhook))
	assert.Equal(t, 1, snap.Count(state.KindBranchProtection))
	assert.Equal(t, 1, snap.Count(state.KindAssignment))

	org, _ := snap.Get(state.KindOrganization, "acme")
	assert.Equal(t, "Acme Corp", org.Fields["description"])

	api, _ := snap.Get(state.KindRepository, "api")
	assert.Equal(t, "private", api.Fields["visibility"])

	team, _ := snap.Get(state.KindTeam, "Core")
	assert.Equal(t, "core", team.Keys[state.KeyTeamSlug])
	assert.Equal(t, []any{"alice"}, team.Fields["members"])

	a, ok := snap.Get(state.KindAssignment, state.ID("api", "Core"))
	require.True(t, ok)
	assert.Equal(t, "admin", a.Fields["permission"])

	hook, ok := snap.Get(state.KindWebhook, state.ID("web", "https://ci.example.com"))
	require.True(t, ok)
	assert.Equal(t, true, hook.Fields["active"])

	bp, ok := snap.Get(state.KindBranchProtection, state.ID("api", "main"))
	require.True(t, ok)
	assert.Equal(t, true, bp.Fields["enforce_admins"])
}

func TestSnapshotFailsOnListingError(t *testing.T) {
	gh := seeded()
	gh.Fail(http.MethodGet, "/orgs/acme/teams", http.StatusForbidden, -1, 0)

	_, err := newFetcher(t, gh).Snapshot(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team")
}
