package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/agentstation/orgsync/pkg/constants"
)

var protectionFlags = []string{
	"enforce_admins",
	"allow_deletions",
	"allow_force_pushes",
	"required_linear_history",
	"required_conversation_resolution",
	"lock_branch",
}

func (g *GitHub) routes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /orgs/{org}", g.locked(g.getOrg))
	mux.HandleFunc("PATCH /orgs/{org}", g.locked(g.patchOrg))
	mux.HandleFunc("GET /orgs/{org}/repos", g.locked(g.listRepos))
	mux.HandleFunc("POST /orgs/{org}/repos", g.locked(g.postRepo))
	mux.HandleFunc("GET /orgs/{org}/members", g.locked(g.listMembers))
	mux.HandleFunc("GET /orgs/{org}/memberships/{user}", g.locked(g.getMembership))
	mux.HandleFunc("PUT /orgs/{org}/memberships/{user}", g.locked(g.putMembership))
	mux.HandleFunc("GET /orgs/{org}/teams", g.locked(g.listTeams))
	mux.HandleFunc("POST /orgs/{org}/teams", g.locked(g.postTeam))
	mux.HandleFunc("GET /orgs/{org}/teams/{team}", g.locked(g.getTeam))
	mux.HandleFunc("PATCH /orgs/{org}/teams/{team}", g.locked(g.patchTeam))
	mux.HandleFunc("GET /orgs/{org}/teams/{team}/members", g.locked(g.listTeamMembers))
	mux.HandleFunc("PUT /orgs/{org}/teams/{team}/memberships/{user}", g.locked(g.putTeamMembership))
	mux.HandleFunc("DELETE /orgs/{org}/teams/{team}/memberships/{user}", g.locked(g.deleteTeamMembership))
	mux.HandleFunc("GET /orgs/{org}/teams/{team}/repos", g.locked(g.listTeamRepos))
	mux.HandleFunc("GET /orgs/{org}/teams/{team}/repos/{owner}/{repo}", g.locked(g.getTeamRepo))
	mux.HandleFunc("PUT /orgs/{org}/teams/{team}/repos/{owner}/{repo}", g.locked(g.putTeamRepo))
	mux.HandleFunc("GET /repos/{owner}/{repo}", g.locked(g.getRepo))
	mux.HandleFunc("PATCH /repos/{owner}/{repo}", g.locked(g.patchRepo))
	mux.HandleFunc("PUT /repos/{owner}/{repo}/topics", g.locked(g.putTopics))
	mux.HandleFunc("GET /repos/{owner}/{repo}/hooks", g.locked(g.listHooks))
	mux.HandleFunc("POST /repos/{owner}/{repo}/hooks", g.locked(g.postHook))
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/hooks/{id}", g.locked(g.patchHook))
	mux.HandleFunc("GET /repos/{owner}/{repo}/branches", g.locked(g.listBranches))
	mux.HandleFunc("GET /repos/{owner}/{repo}/branches/{branch}/protection", g.locked(g.getProtection))
	mux.HandleFunc("PUT /repos/{owner}/{repo}/branches/{branch}/protection", g.locked(g.putProtection))

	g.mux = mux
}

type handler func(w http.ResponseWriter, r *http.Request, body map[string]any)

func (g *GitHub) locked(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "Problems parsing JSON")
				return
			}
		}
		owner := r.PathValue("org")
		if owner == "" {
			owner = r.PathValue("owner")
		}
		if owner != g.org {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		h(w, r, body)
	}
}

func (g *GitHub) getOrg(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
	writeJSON(w, http.StatusOK, g.s.Org)
}

func (g *GitHub) patchOrg(w http.ResponseWriter, _ *http.Request, body map[string]any) {
	merge(g.s.Org, body)
	writeJSON(w, http.StatusOK, g.s.Org)
}

func (g *GitHub) listRepos(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	var items []any
	for _, name := range slices.Sorted(maps.Keys(g.s.Repos)) {
		items = append(items, g.s.Repos[name])
	}
	writeList(w, r, items)
}

func (g *GitHub) postRepo(w http.ResponseWriter, _ *http.Request, body map[string]any) {
	name, _ := body["name"].(string)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if _, exists := g.s.Repos[name]; exists {
		writeError(w, http.StatusUnprocessableEntity, "name already exists on this account")
		return
	}
	writeJSON(w, http.StatusCreated, g.createRepo(name, body))
}

func (g *GitHub) getRepo(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	repo, ok := g.s.Repos[r.PathValue("repo")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (g *GitHub) patchRepo(w http.ResponseWriter, r *http.Request, body map[string]any) {
	repo, ok := g.s.Repos[r.PathValue("repo")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	merge(repo, body)
	if v, ok := body["visibility"].(string); ok {
		repo["private"] = v != "public"
	}
	writeJSON(w, http.StatusOK, repo)
}

func (g *GitHub) putTopics(w http.ResponseWriter, r *http.Request, body map[string]any) {
	repo, ok := g.s.Repos[r.PathValue("repo")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	names, _ := body["names"].([]any)
	repo["topics"] = clone(names)
	if repo["topics"] == nil {
		repo["topics"] = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"names": repo["topics"]})
}

func (g *GitHub) listMembers(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	var items []any
	for _, login := range slices.Sorted(maps.Keys(g.s.Members)) {
		items = append(items, map[string]any{"login": login})
	}
	writeList(w, r, items)
}

func (g *GitHub) membership(login string) map[string]any {
	return map[string]any{
		"state": "active",
		"role":  g.s.Members[login],
		"user":  map[string]any{"login": login},
	}
}

func (g *GitHub) getMembership(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	login := r.PathValue("user")
	if _, ok := g.s.Members[login]; !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, g.membership(login))
}

func (g *GitHub) putMembership(w http.ResponseWriter, r *http.Request, body map[string]any) {
	login := r.PathValue("user")
	role, _ := body["role"].(string)
	if role == "" {
		role = "member"
	}
	if role != "member" && role != "admin" {
		writeError(w, http.StatusUnprocessableEntity, "role must be member or admin")
		return
	}
	g.s.Members[login] = role
	writeJSON(w, http.StatusOK, g.membership(login))
}

func (g *GitHub) listTeams(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	var items []any
	for _, slug := range slices.Sorted(maps.Keys(g.s.Teams)) {
		items = append(items, g.s.Teams[slug])
	}
	writeList(w, r, items)
}

func (g *GitHub) postTeam(w http.ResponseWriter, _ *http.Request, body map[string]any) {
	name, _ := body["name"].(string)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	for _, t := range g.s.Teams {
		if t["name"] == name {
			writeError(w, http.StatusUnprocessableEntity, "Name must be unique for this org")
			return
		}
	}
	slug := g.createTeam(name, body)
	writeJSON(w, http.StatusCreated, g.s.Teams[slug])
}

func (g *GitHub) team(w http.ResponseWriter, r *http.Request) (string, map[string]any, bool) {
	slug := r.PathValue("team")
	t, ok := g.s.Teams[slug]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
	}
	return slug, t, ok
}

func (g *GitHub) getTeam(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	if _, t, ok := g.team(w, r); ok {
		writeJSON(w, http.StatusOK, t)
	}
}

func (g *GitHub) patchTeam(w http.ResponseWriter, r *http.Request, body map[string]any) {
	if _, t, ok := g.team(w, r); ok {
		merge(t, body)
		writeJSON(w, http.StatusOK, t)
	}
}

func (g *GitHub) listTeamMembers(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	slug, _, ok := g.team(w, r)
	if !ok {
		return
	}
	var items []any
	for _, login := range slices.Sorted(maps.Keys(g.s.TeamMembers[slug])) {
		items = append(items, map[string]any{"login": login})
	}
	writeList(w, r, items)
}

func (g *GitHub) putTeamMembership(w http.ResponseWriter, r *http.Request, body map[string]any) {
	slug, _, ok := g.team(w, r)
	if !ok {
		return
	}
	role, _ := body["role"].(string)
	if role == "" {
		role = "member"
	}
	login := r.PathValue("user")
	g.s.TeamMembers[slug][login] = role
	writeJSON(w, http.StatusOK, map[string]any{"state": "active", "role": role})
}

func (g *GitHub) deleteTeamMembership(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	slug, _, ok := g.team(w, r)
	if !ok {
		return
	}
	delete(g.s.TeamMembers[slug], r.PathValue("user"))
	w.WriteHeader(http.StatusNoContent)
}

func (g *GitHub) teamRepo(repo, permission string) map[string]any {
	out := clone(g.s.Repos[repo])
	flags := map[string]any{}
	granted := false
	for _, level := range constants.PermissionLadder {
		if level == permission {
			granted = true
		}
		flags[level] = granted
	}
	out["permissions"] = flags
	out["role_name"] = permission
	return out
}

func (g *GitHub) listTeamRepos(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	slug, _, ok := g.team(w, r)
	if !ok {
		return
	}
	var items []any
	for _, repo := range slices.Sorted(maps.Keys(g.s.TeamRepos[slug])) {
		items = append(items, g.teamRepo(repo, g.s.TeamRepos[slug][repo]))
	}
	writeList(w, r, items)
}

func (g *GitHub) getTeamRepo(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	slug, _, ok := g.team(w, r)
	if !ok {
		return
	}
	repo := r.PathValue("repo")
	permission, ok := g.s.TeamRepos[slug][repo]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, g.teamRepo(repo, permission))
}

func (g *GitHub) putTeamRepo(w http.ResponseWriter, r *http.Request, body map[string]any) {
	slug, _, ok := g.team(w, r)
	if !ok {
		return
	}
	repo := r.PathValue("repo")
	if _, exists := g.s.Repos[repo]; !exists {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	permission, _ := body["permission"].(string)
	if permission == "" {
		permission = "push"
	}
	if !slices.Contains(constants.PermissionLadder, permission) {
		writeError(w, http.StatusUnprocessableEntity, "invalid permission")
		return
	}
	g.s.TeamRepos[slug][repo] = permission
	w.WriteHeader(http.StatusNoContent)
}

func (g *GitHub) listHooks(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	repo := r.PathValue("repo")
	if _, ok := g.s.Repos[repo]; !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	items := make([]any, 0, len(g.s.Hooks[repo]))
	for _, h := range g.s.Hooks[repo] {
		items = append(items, h)
	}
	writeList(w, r, items)
}

func (g *GitHub) postHook(w http.ResponseWriter, r *http.Request, body map[string]any) {
	repo := r.PathValue("repo")
	if _, ok := g.s.Repos[repo]; !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	cfg, _ := body["config"].(map[string]any)
	if url, _ := cfg["url"].(string); url == "" {
		writeError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	writeJSON(w, http.StatusCreated, g.createHook(repo, body))
}

func (g *GitHub) patchHook(w http.ResponseWriter, r *http.Request, body map[string]any) {
	repo := r.PathValue("repo")
	for _, h := range g.s.Hooks[repo] {
		if fmt.Sprint(h["id"]) == r.PathValue("id") {
			merge(h, body)
			writeJSON(w, http.StatusOK, h)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Not Found")
}

func (g *GitHub) listBranches(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	repo, ok := g.s.Repos[r.PathValue("repo")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	protected := g.s.Protections[r.PathValue("repo")]
	names := slices.Collect(maps.Keys(protected))
	if def, _ := repo["default_branch"].(string); def != "" && !slices.Contains(names, def) {
		names = append(names, def)
	}
	slices.Sort(names)
	onlyProtected := r.URL.Query().Get("protected") == "true"
	var items []any
	for _, name := range names {
		_, isProtected := protected[name]
		if onlyProtected && !isProtected {
			continue
		}
		items = append(items, map[string]any{"name": name, "protected": isProtected})
	}
	writeList(w, r, items)
}

func (g *GitHub) getProtection(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	p, ok := g.s.Protections[r.PathValue("repo")][r.PathValue("branch")]
	if !ok {
		writeError(w, http.StatusNotFound, "Branch not protected")
		return
	}
	out := clone(p)
	if out == nil {
		out = map[string]any{}
	}
	for _, flag := range protectionFlags {
		enabled, _ := out[flag].(bool)
		out[flag] = map[string]any{"enabled": enabled}
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *GitHub) putProtection(w http.ResponseWriter, r *http.Request, body map[string]any) {
	repo := r.PathValue("repo")
	if _, ok := g.s.Repos[repo]; !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	for _, required := range []string{"required_status_checks", "enforce_admins", "required_pull_request_reviews", "restrictions"} {
		if _, ok := body[required]; !ok {
			writeError(w, http.StatusUnprocessableEntity, required+" is missing")
			return
		}
	}
	if g.s.Protections[repo] == nil {
		g.s.Protections[repo] = map[string]map[string]any{}
	}
	g.s.Protections[repo][r.PathValue("branch")] = clone(body)
	g.getProtection(w, r, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

// writeList pages items when the request carries per_page, advertising the
// next page with a Link header the way GitHub does.
func writeList(w http.ResponseWriter, r *http.Request, items []any) {
	if items == nil {
		items = []any{}
	}
	q := r.URL.Query()
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 {
		writeJSON(w, http.StatusOK, items)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	start := min((page-1)*perPage, len(items))
	end := min(start+perPage, len(items))
	if end < len(items) {
		q.Set("page", strconv.Itoa(page+1))
		next := *r.URL
		next.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next.String()))
	}
	writeJSON(w, http.StatusOK, items[start:end])
}

func secondsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
