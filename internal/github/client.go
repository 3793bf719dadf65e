// Package github fetches repository, gist, and user metadata from the GitHub
// API and maps GitHub page links to raw file URLs.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/fetch"
)

// APIBase is the GitHub REST API root.
const APIBase = "https://api.github.com"

// Errors.
var (
	ErrInvalidURL   = errors.New("invalid GitHub URL format")
	ErrRepoNotFound = errors.New("repository not found (404)")
	ErrRateLimited  = errors.New("GitHub API rate limit exceeded")
	ErrUnauthorized = errors.New("GitHub API authentication failed")
	ErrAPIError     = errors.New("GitHub API error")
)

// Owner is the account that owns a repository or gist.
type Owner struct {
	Login string `json:"login"`
}

// Repo contains repository metadata from the GitHub API.
type Repo struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	CreatedAt   string `json:"created_at"`
	Owner       Owner  `json:"owner"`
}

// Gist contains gist metadata from the GitHub API.
type Gist struct {
	HTMLURL   string              `json:"html_url"`
	CreatedAt string              `json:"created_at"`
	Owner     Owner               `json:"owner"`
	Files     map[string]GistFile `json:"files"`
}

// GistFile is one file of a gist.
type GistFile struct {
	Filename string `json:"filename"`
}

// User contains user metadata from the GitHub API.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// DisplayName returns the user's name, falling back to the login.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Login
}

// Client is a GitHub API client.
type Client struct {
	fetch   *fetch.Client
	pool    *TokenPool
	apiBase string
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTokenPool sets the credential pool.
func WithTokenPool(p *TokenPool) ClientOption {
	return func(c *Client) {
		c.pool = p
	}
}

// WithAPIBase sets a custom API root (for testing).
func WithAPIBase(base string) ClientOption {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(base, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a GitHub API client on top of fc.
func NewClient(fc *fetch.Client, opts ...ClientOption) *Client {
	c := &Client{
		fetch:   fc,
		apiBase: APIBase,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL patterns for GitHub pages.
var (
	// Matches: https://github.com/owner/repo/anything, github.com/owner/repo.git
	repoURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?(?:[/?#].*)?$`)
	// Matches: https://github.com/owner
	orgURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([a-zA-Z0-9_.-]+)/?$`)
	// Matches: https://gist.github.com/owner/id
	gistURLPattern = regexp.MustCompile(`gist\.github\.com/[\w-]+/(\w+)`)
)

// ParseRepoURL parses a GitHub repository URL and returns (owner, repo).
// Supported formats:
//   - https://github.com/owner/repo
//   - https://github.com/owner/repo.git
//   - https://github.com/owner/repo/tree/main/docs
//   - github.com/owner/repo
func ParseRepoURL(input string) (owner, repo string, err error) {
	input = strings.TrimSpace(input)
	if m := repoURLPattern.FindStringSubmatch(input); m != nil {
		return m[1], m[2], nil
	}
	return "", "", ErrInvalidURL
}

// IsOrganizationURL reports whether input names an account rather than a repo.
func IsOrganizationURL(input string) bool {
	return orgURLPattern.MatchString(strings.TrimSpace(input))
}

// GistID extracts the gist id from a gist URL.
func GistID(input string) (string, bool) {
	m := gistURLPattern.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RepoAPIURL maps a repository or gist page URL to its API URL.
func (c *Client) RepoAPIURL(pageURL string) (string, error) {
	if id, ok := GistID(pageURL); ok {
		return fmt.Sprintf("%s/gists/%s", c.apiBase, id), nil
	}
	owner, repo, err := ParseRepoURL(strings.Replace(pageURL, "/wiki", "", 1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/repos/%s/%s", c.apiBase, owner, repo), nil
}

// UserAPIURL returns the API URL for a login.
func (c *Client) UserAPIURL(login string) string {
	return fmt.Sprintf("%s/users/%s", c.apiBase, login)
}

// FetchRepo fetches repository metadata.
func (c *Client) FetchRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	var r Repo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", c.apiBase, owner, repo), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// FetchGist fetches gist metadata.
func (c *Client) FetchGist(ctx context.Context, id string) (*Gist, error) {
	var g Gist
	if err := c.getJSON(ctx, fmt.Sprintf("%s/gists/%s", c.apiBase, id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// FetchUser fetches a user's profile.
func (c *Client) FetchUser(ctx context.Context, login string) (*User, error) {
	var u User
	if err := c.getJSON(ctx, c.UserAPIURL(login), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchFile returns the decoded contents of a repository file. It follows
// symlinks that the raw file host would serve as a bare path.
func (c *Client) FetchFile(ctx context.Context, owner, repo, path, ref string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.apiBase, owner, repo, strings.TrimLeft(path, "/"))
	if ref != "" {
		u += "?ref=" + ref
	}
	var body struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return "", err
	}
	if body.Encoding != "" && body.Encoding != "base64" {
		return "", fetch.Malformed("unsupported content encoding "+body.Encoding, nil)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return "", fetch.Malformed("decoding file content", err)
	}
	return string(decoded), nil
}

// getJSON fetches an API URL with a pooled credential and decodes the body.
func (c *Client) getJSON(ctx context.Context, apiURL string, v any) error {
	cred, err := c.pool.Acquire()
	if err != nil {
		return err
	}

	resp, err := c.fetch.Get(ctx, apiURL,
		fetch.WithAccept("application/vnd.github.v3+json"),
		fetch.WithBearerToken(cred.Token))
	if err != nil {
		return c.mapError(resp, err, cred)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrAPIError, err)
	}
	return nil
}

func (c *Client) mapError(resp *fetch.Response, err error, cred Credential) error {
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		return err
	}

	switch se.StatusCode {
	case http.StatusNotFound:
		return ErrRepoNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp != nil && resp.Header.Get("X-RateLimit-Remaining") == "0" {
			c.pool.MarkExhausted(cred.Token, rateLimitReset(resp.Header))
			c.logger.Info("GitHub token rate limited", zap.String("login", cred.Login))
			return fmt.Errorf("%w: %w", ErrRateLimited, fetch.ErrRateLimited)
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		if resp != nil {
			c.pool.MarkExhausted(cred.Token, rateLimitReset(resp.Header))
		}
		return fmt.Errorf("%w: %w", ErrRateLimited, fetch.ErrRateLimited)
	default:
		return fmt.Errorf("%w: status %d", ErrAPIError, se.StatusCode)
	}
}

// rateLimitReset reads X-RateLimit-Reset, defaulting to an hour from now.
func rateLimitReset(h http.Header) time.Time {
	if s := h.Get("X-RateLimit-Reset"); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}
	return time.Now().Add(time.Hour)
}

// RawFileURL maps a repository blob link, either absolute or a page-relative
// href such as "/owner/repo/blob/main/CITATION", to its raw content URL.
func RawFileURL(href string) string {
	path := strings.TrimPrefix(href, "https://github.com")
	path = strings.TrimPrefix(path, "http://github.com")
	path = strings.Replace(path, "/blob", "", 1)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://raw.githubusercontent.com" + path
}
