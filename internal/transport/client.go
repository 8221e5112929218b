// Package transport implements remote.Executor over the GitHub REST API
// using go-github for request construction, authentication plumbing,
// rate-limit detection and pagination.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// teamRepoPath matches the team repository permission endpoint, which only
// returns the permission payload with the repository media type.
var teamRepoPath = regexp.MustCompile(`^orgs/[^/]+/teams/[^/]+/repos/[^/]+/[^/?]+$`)

const repositoryMediaType = "application/vnd.github.v3.repository+json"

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com/"

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	PageSize   int
	HTTPClient *http.Client
}

// Option is a functional option for Client.
type Option func(*Options)

// WithBaseURL targets a GitHub Enterprise Server or test API.
func WithBaseURL(u string) Option {
	return func(o *Options) { o.BaseURL = u }
}

// WithToken sets the bearer credential.
func WithToken(token string) Option {
	return func(o *Options) { o.Token = token }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *Options) { o.UserAgent = ua }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped
// with authentication.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// Client is a remote.Executor backed by the GitHub REST API.
type Client struct {
	gh       *github.Client
	pageSize int
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	o := Options{Timeout: DefaultHTTPTimeout, PageSize: constants.DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := &http.Client{Timeout: o.Timeout}
	if o.HTTPClient != nil {
		c := *o.HTTPClient
		httpClient = &c
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	var auth Authenticator = &BearerAuth{}
	if o.Token == "" {
		auth = &NoAuth{}
		logging.Warn().Msg("No GitHub token configured, requests are unauthenticated")
	}
	httpClient.Transport = &authTransport{base: base, auth: auth, token: o.Token}

	gh := github.NewClient(httpClient)
	if o.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.BaseURL, "/") + "/")
		if err != nil {
			return nil, errors.NewConfigError("api_url", "invalid base URL", err)
		}
		gh.BaseURL = u
	}
	if o.UserAgent != "" {
		gh.UserAgent = o.UserAgent
	}
	return &Client{gh: gh, pageSize: o.PageSize}, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.gh.BaseURL.String()
}

// Read implements remote.Executor. List payloads are followed across pages
// and returned as one list.
func (c *Client) Read(ctx context.Context, locator string) (any, error) {
	rel, err := c.relative(locator, true)
	if err != nil {
		return nil, errors.WrapRemote(errors.OpRead, http.MethodGet, locator, err)
	}

	var all []any
	for page := 1; page <= constants.MaxPages; page++ {
		pageRel := rel
		if page > 1 {
			pageRel = withQuery(rel, "page", strconv.Itoa(page))
		}
		req, err := c.gh.NewRequest(http.MethodGet, pageRel, nil)
		if err != nil {
			return nil, errors.WrapRemote(errors.OpRead, http.MethodGet, locator, err)
		}
		if teamRepoPath.MatchString(strings.SplitN(rel, "?", 2)[0]) {
			req.Header.Set("Accept", repositoryMediaType)
		}

		var payload any
		resp, err := c.gh.Do(ctx, req, &payload)
		if err != nil {
			return nil, remoteError(errors.OpRead, http.MethodGet, locator, err)
		}
		list, ok := payload.([]any)
		if !ok {
			return payload, nil
		}
		all = append(all, list...)
		if resp.NextPage == 0 {
			break
		}
		logging.FromContext(ctx).Debug().Str("locator", locator).Int("next_page", resp.NextPage).Msg("Following pagination")
		page = resp.NextPage - 1
	}
	if all == nil {
		all = []any{}
	}
	return all, nil
}

// Write implements remote.Executor.
func (c *Client) Write(ctx context.Context, locator, verb string, payload any) (any, error) {
	rel, err := c.relative(locator, false)
	if err != nil {
		return nil, errors.WrapRemote(errors.OpWrite, verb, locator, err)
	}
	req, err := c.gh.NewRequest(verb, rel, payload)
	if err != nil {
		return nil, errors.WrapRemote(errors.OpWrite, verb, locator, err)
	}
	var out any
	if _, err := c.gh.Do(ctx, req, &out); err != nil {
		return nil, remoteError(errors.OpWrite, verb, locator, err)
	}
	return out, nil
}

// relative turns a locator into a URL relative to the base URL, adding the
// page size to reads.
func (c *Client) relative(locator string, read bool) (string, error) {
	rel := strings.TrimPrefix(locator, "/")
	if _, err := url.Parse(rel); err != nil {
		return "", err
	}
	if read && c.pageSize > 0 {
		rel = withQuery(rel, "per_page", strconv.Itoa(c.pageSize))
	}
	return rel, nil
}

func withQuery(rel, key, value string) string {
	u, err := url.Parse(rel)
	if err != nil {
		return rel
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
