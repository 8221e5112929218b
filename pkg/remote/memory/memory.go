// Package memory is an in-memory GitHub organization that speaks the subset
// of the REST API named by the default mapping table. It implements
// remote.Executor directly and http.Handler for transport tests.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/state"
)

type store struct {
	Org         map[string]any                       `json:"org"`
	Repos       map[string]map[string]any            `json:"repos"`
	Teams       map[string]map[string]any            `json:"teams"`
	TeamMembers map[string]map[string]string         `json:"team_members"`
	TeamRepos   map[string]map[string]string         `json:"team_repos"`
	Members     map[string]string                    `json:"members"`
	Hooks       map[string][]map[string]any          `json:"hooks"`
	Protections map[string]map[string]map[string]any `json:"protections"`
	NextID      int64                                `json:"next_id"`
}

type fault struct {
	verb       string
	prefix     string
	status     int
	retryAfter int
	times      int
}

// GitHub is the fake. The zero value is not usable; call New.
type GitHub struct {
	mu       sync.Mutex
	org      string
	s        store
	faults   []*fault
	requests int
	mux      *http.ServeMux
}

// New creates an empty organization.
func New(org string) *GitHub {
	g := &GitHub{
		org: org,
		s: store{
			Org:         map[string]any{"login": org, "name": org, "description": ""},
			Repos:       map[string]map[string]any{},
			Teams:       map[string]map[string]any{},
			TeamMembers: map[string]map[string]string{},
			TeamRepos:   map[string]map[string]string{},
			Members:     map[string]string{},
			Hooks:       map[string][]map[string]any{},
			Protections: map[string]map[string]map[string]any{},
			NextID:      1,
		},
	}
	g.routes()
	return g
}

// Fail makes the next times requests whose verb and path prefix match fail
// with status. A negative times fails forever. retryAfter sets a Retry-After
// header in seconds when positive.
func (g *GitHub) Fail(verb, pathPrefix string, status, times, retryAfter int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults = append(g.faults, &fault{verb: verb, prefix: pathPrefix, status: status, times: times, retryAfter: retryAfter})
}

// Requests returns the number of requests served.
func (g *GitHub) Requests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests
}

// Dump serializes the whole organization deterministically.
func (g *GitHub) Dump() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, err := json.Marshal(g.s)
	if err != nil {
		panic(err)
	}
	return data
}

// Read implements remote.Executor.
func (g *GitHub) Read(ctx context.Context, locator string) (any, error) {
	return g.call(ctx, errors.OpRead, http.MethodGet, locator, nil)
}

// Write implements remote.Executor.
func (g *GitHub) Write(ctx context.Context, locator, verb string, payload any) (any, error) {
	return g.call(ctx, errors.OpWrite, verb, locator, payload)
}

func (g *GitHub) call(ctx context.Context, op, verb, locator string, payload any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapRemote(op, verb, locator, err)
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.WrapRemote(op, verb, locator, err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(verb, locator, body).WithContext(ctx)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	if rec.Code >= http.StatusBadRequest {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &msg)
		re := errors.NewRemoteError(op, verb, locator, rec.Code, msg.Message)
		re.RateLimited = rec.Code == http.StatusTooManyRequests
		if s := rec.Header().Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				re.RetryAfter = secondsToDuration(secs)
			}
		}
		return nil, re
	}
	if rec.Body.Len() == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		return nil, errors.WrapRemote(op, verb, locator, err)
	}
	return out, nil
}

// ServeHTTP implements http.Handler.
func (g *GitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests++
	for _, f := range g.faults {
		if f.times == 0 || (f.verb != "" && f.verb != r.Method) || !strings.HasPrefix(r.URL.Path, f.prefix) {
			continue
		}
		if f.times > 0 {
			f.times--
		}
		g.mu.Unlock()
		if f.retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(f.retryAfter))
		}
		writeError(w, f.status, "injected failure")
		return
	}
	g.mu.Unlock()
	g.mux.ServeHTTP(w, r)
}

// SetOrg merges fields into the organization.
func (g *GitHub) SetOrg(fields map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	merge(g.s.Org, fields)
}

// AddRepo creates a repository with GitHub's defaults overlaid by fields.
func (g *GitHub) AddRepo(name string, fields map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createRepo(name, fields)
}

// AddTeam creates a team and its members.
func (g *GitHub) AddTeam(name string, fields map[string]any, members ...string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	slug := g.createTeam(name, fields)
	for _, m := range members {
		g.s.TeamMembers[slug][m] = "member"
	}
	return slug
}

// AddMember adds an organization member.
func (g *GitHub) AddMember(login, role string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.s.Members[login] = role
}

// Assign grants a team permission on a repository.
func (g *GitHub) Assign(teamSlug, repo, permission string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.s.TeamRepos[teamSlug][repo] = permission
}

// AddHook creates a repository webhook.
func (g *GitHub) AddHook(repo, url string, fields map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	payload := map[string]any{"config": map[string]any{"url": url}}
	merge(payload, fields)
	g.createHook(repo, payload)
}

// Protect sets branch protection.
func (g *GitHub) Protect(repo, branch string, fields map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.s.Protections[repo] == nil {
		g.s.Protections[repo] = map[string]map[string]any{}
	}
	g.s.Protections[repo][branch] = clone(fields)
}

func (g *GitHub) id() int64 {
	id := g.s.NextID
	g.s.NextID++
	return id
}

func (g *GitHub) createRepo(name string, fields map[string]any) map[string]any {
	repo := map[string]any{
		"id":                     g.id(),
		"name":                   name,
		"full_name":              g.org + "/" + name,
		"private":                false,
		"visibility":             "public",
		"description":            nil,
		"homepage":               nil,
		"fork":                   false,
		"archived":               false,
		"is_template":            false,
		"default_branch":         "main",
		"has_issues":             true,
		"has_projects":           true,
		"has_wiki":               true,
		"has_discussions":        false,
		"allow_merge_commit":     true,
		"allow_squash_merge":     true,
		"allow_rebase_merge":     true,
		"allow_auto_merge":       false,
		"allow_update_branch":    false,
		"delete_branch_on_merge": false,
		"topics":                 []any{},
	}
	merge(repo, fields)
	if v, ok := repo["visibility"].(string); ok {
		repo["private"] = v != "public"
	}
	g.s.Repos[name] = repo
	return repo
}

func (g *GitHub) createTeam(name string, fields map[string]any) string {
	slug := state.Slug(name)
	team := map[string]any{
		"id":                   g.id(),
		"name":                 name,
		"slug":                 slug,
		"description":          nil,
		"privacy":              "secret",
		"notification_setting": "notifications_enabled",
	}
	merge(team, fields)
	g.s.Teams[slug] = team
	g.s.TeamMembers[slug] = map[string]string{}
	g.s.TeamRepos[slug] = map[string]string{}
	return slug
}

func (g *GitHub) createHook(repo string, payload map[string]any) map[string]any {
	hook := map[string]any{
		"id":     g.id(),
		"type":   "Repository",
		"name":   "web",
		"active": true,
		"events": []any{"push"},
		"config": map[string]any{"content_type": "form", "insecure_ssl": "0"},
	}
	merge(hook, payload)
	g.s.Hooks[repo] = append(g.s.Hooks[repo], hook)
	return hook
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				merge(dm, sm)
				continue
			}
		}
		dst[k] = clone(v)
	}
}

func clone[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memory: clone: %v", err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("memory: clone: %v", err))
	}
	return out
}
