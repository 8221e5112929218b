package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.github.com/orgs/acme", nil)
	(&BearerAuth{}).Apply(req, "token-123")
	assert.Equal(t, "Bearer token-123", req.Header.Get("Authorization"))
}

func TestNoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.github.com/orgs/acme", nil)
	(&NoAuth{}).Apply(req, "token-123")
	assert.Empty(t, req.Header.Get("Authorization"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestAuthTransportDoesNotMutateRequest(t *testing.T) {
	var seen string
	rt := &authTransport{
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			seen = r.Header.Get("Authorization")
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}),
		auth:  &BearerAuth{},
		token: "abc",
	}
	req := httptest.NewRequest(http.MethodGet, "https://api.github.com/orgs/acme", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer abc", seen)
	assert.Empty(t, req.Header.Get("Authorization"))
}
