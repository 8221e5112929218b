package transport_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/remote"
	"github.com/agentstation/orgsync/pkg/remote/memory"
)

var _ remote.Executor = (*transport.Client)(nil)

// headerLog records request headers in front of a handler.
type headerLog struct {
	mu      sync.Mutex
	next    http.Handler
	headers map[string]http.Header
	paths   []string
}

func (h *headerLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.headers[r.URL.Path] = r.Header.Clone()
	h.paths = append(h.paths, r.URL.RequestURI())
	h.mu.Unlock()
	h.next.ServeHTTP(w, r)
}

func newServer(t *testing.T, gh *memory.GitHub, opts ...transport.Option) (*transport.Client, *headerLog) {
	t.Helper()
	log := &headerLog{next: gh, headers: map[string]http.Header{}}
	srv := httptest.NewServer(log)
	t.Cleanup(srv.Close)

	client, err := transport.New(append([]transport.Option{transport.WithBaseURL(srv.URL)}, opts...)...)
	require.NoError(t, err)
	return client, log
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	gh := memory.New("acme")
	gh.AddRepo("harmony", map[string]any{"has_wiki": true})
	client, _ := newServer(t, gh)

	got, err := client.Read(ctx, "/repos/acme/harmony")
	require.NoError(t, err)
	repo, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "harmony", repo["name"])
	assert.Equal(t, true, repo["has_wiki"])

	_, err = client.Write(ctx, "/repos/acme/harmony", http.MethodPatch, map[string]any{"has_wiki": false})
	require.NoError(t, err)

	got, err = client.Read(ctx, "/repos/acme/harmony")
	require.NoError(t, err)
	assert.Equal(t, false, got.(map[string]any)["has_wiki"])
}

func TestWriteNoContent(t *testing.T) {
	ctx := context.Background()
	gh := memory.New("acme")
	gh.AddRepo("harmony", nil)
	slug := gh.AddTeam("Core", nil)
	client, _ := newServer(t, gh)

	out, err := client.Write(ctx, fmt.Sprintf("/orgs/acme/teams/%s/repos/acme/harmony", slug), http.MethodPut, map[string]any{"permission": "push"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestPagination(t *testing.T) {
	gh := memory.New("acme")
	for i := range 250 {
		gh.AddRepo(fmt.Sprintf("repo-%03d", i), nil)
	}
	client, log := newServer(t, gh)

	got, err := client.Read(context.Background(), "/orgs/acme/repos")
	require.NoError(t, err)
	list, ok := got.([]any)
	require.True(t, ok)
	assert.Len(t, list, 250)
	assert.Equal(t, 3, gh.Requests())
	assert.Contains(t, log.paths[0], "per_page=100")
	assert.Contains(t, log.paths[2], "page=3")
}

func TestEmptyList(t *testing.T) {
	client, _ := newServer(t, memory.New("acme"))

	got, err := client.Read(context.Background(), "/orgs/acme/repos")
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestAuthentication(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "bearer", token: "ghp_secret", want: "Bearer ghp_secret"},
		{name: "anonymous", token: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, log := newServer(t, memory.New("acme"), transport.WithToken(tt.token), transport.WithUserAgent("orgsync-test"))

			_, err := client.Read(context.Background(), "/orgs/acme")
			require.NoError(t, err)
			h := log.headers["/orgs/acme"]
			assert.Equal(t, tt.want, h.Get("Authorization"))
			assert.Equal(t, "orgsync-test", h.Get("User-Agent"))
		})
	}
}

func TestTeamRepoMediaType(t *testing.T) {
	gh := memory.New("acme")
	gh.AddRepo("harmony", nil)
	slug := gh.AddTeam("Core", nil)
	gh.Assign(slug, "harmony", "push")
	client, log := newServer(t, gh)

	locator := fmt.Sprintf("/orgs/acme/teams/%s/repos/acme/harmony", slug)
	_, err := client.Read(context.Background(), locator)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.github.v3.repository+json", log.headers[locator].Get("Accept"))

	_, err = client.Read(context.Background(), "/repos/acme/harmony")
	require.NoError(t, err)
	assert.NotEqual(t, "application/vnd.github.v3.repository+json", log.headers["/repos/acme/harmony"].Get("Accept"))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter int
		check      func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsNotFound(err))
				assert.False(t, errors.IsTransient(err))
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsUnauthorized(err))
				assert.False(t, errors.IsTransient(err))
			},
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			retryAfter: 7,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsRateLimited(err))
				assert.True(t, errors.IsTransient(err))
				wait, ok := errors.RetryAfter(err)
				assert.True(t, ok)
				assert.Equal(t, 7*time.Second, wait)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTransient(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := memory.New("acme")
			gh.Fail(http.MethodGet, "/orgs/acme", tt.status, 1, tt.retryAfter)
			client, _ := newServer(t, gh)

			_, err := client.Read(context.Background(), "/orgs/acme")
			require.Error(t, err)
			var re *errors.RemoteError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, "/orgs/acme", re.Locator)
			tt.check(t, err)
		})
	}
}

func TestPrimaryRateLimit(t *testing.T) {
	reset := time.Now().Add(30 * time.Second).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(reset))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := transport.New(transport.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Read(context.Background(), "/orgs/acme")
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
	assert.False(t, errors.IsUnauthorized(err))
	wait, ok := errors.RetryAfter(err)
	assert.True(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestCanceledContext(t *testing.T) {
	client, _ := newServer(t, memory.New("acme"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Read(ctx, "/orgs/acme")
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := transport.New(transport.WithBaseURL("://bad"))
	require.Error(t, err)
}
