package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/matsen/citeas/internal/fetch"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		// Full HTTPS URLs
		{
			name:      "https url",
			input:     "https://github.com/citeas/citeas-api",
			wantOwner: "citeas",
			wantRepo:  "citeas-api",
		},
		{
			name:      "https url with .git",
			input:     "https://github.com/citeas/citeas-api.git",
			wantOwner: "citeas",
			wantRepo:  "citeas-api",
		},
		{
			name:      "deep link",
			input:     "https://github.com/tidyverse/ggplot2/blob/main/inst/CITATION",
			wantOwner: "tidyverse",
			wantRepo:  "ggplot2",
		},
		{
			name:      "trailing slash",
			input:     "https://github.com/numpy/numpy/",
			wantOwner: "numpy",
			wantRepo:  "numpy",
		},
		{
			name:      "www host",
			input:     "http://www.github.com/numpy/numpy",
			wantOwner: "numpy",
			wantRepo:  "numpy",
		},
		// Without protocol
		{
			name:      "without protocol",
			input:     "github.com/citeas/citeas-api",
			wantOwner: "citeas",
			wantRepo:  "citeas-api",
		},
		// Invalid inputs
		{
			name:    "organization only",
			input:   "https://github.com/tidyverse",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "gitlab url",
			input:   "https://gitlab.com/citeas/citeas-api",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseRepoURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if owner != tt.wantOwner {
					t.Errorf("ParseRepoURL() owner = %v, want %v", owner, tt.wantOwner)
				}
				if repo != tt.wantRepo {
					t.Errorf("ParseRepoURL() repo = %v, want %v", repo, tt.wantRepo)
				}
			}
		})
	}
}

func TestIsOrganizationURL(t *testing.T) {
	if !IsOrganizationURL("https://github.com/tidyverse") {
		t.Error("organization URL not recognised")
	}
	if IsOrganizationURL("https://github.com/tidyverse/ggplot2") {
		t.Error("repository URL treated as organization")
	}
}

func TestRepoAPIURL(t *testing.T) {
	c := NewClient(fetch.NewClient())
	tests := []struct {
		input string
		want  string
	}{
		{"https://github.com/citeas/citeas-api", "https://api.github.com/repos/citeas/citeas-api"},
		{"https://github.com/citeas/citeas-api/wiki", "https://api.github.com/repos/citeas/citeas-api"},
		{"https://www.github.com/citeas/citeas-api/", "https://api.github.com/repos/citeas/citeas-api"},
		{"https://gist.github.com/someone/abc123", "https://api.github.com/gists/abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := c.RepoAPIURL(tt.input)
			if err != nil {
				t.Fatalf("RepoAPIURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RepoAPIURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRawFileURL(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/tidyverse/ggplot2/blob/main/inst/CITATION", "https://raw.githubusercontent.com/tidyverse/ggplot2/main/inst/CITATION"},
		{"https://github.com/owner/repo/blob/master/codemeta.json", "https://raw.githubusercontent.com/owner/repo/master/codemeta.json"},
	}
	for _, tt := range tests {
		if got := RawFileURL(tt.href); got != tt.want {
			t.Errorf("RawFileURL(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func newAPIServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *fetch.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, fetch.NewClient(fetch.WithRateLimit(0))
}

func TestFetchRepoAndUser(t *testing.T) {
	server, fc := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok1" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/repos/octo/hello":
			fmt.Fprint(w, `{"name":"hello","html_url":"https://github.com/octo/hello","created_at":"2015-03-01T00:00:00Z","owner":{"login":"octo"}}`)
		case "/users/octo":
			fmt.Fprint(w, `{"login":"octo","name":"Octo Cat"}`)
		default:
			http.NotFound(w, r)
		}
	})

	pool := NewTokenPool([]Credential{{Login: "me", Token: "tok1"}})
	c := NewClient(fc, WithAPIBase(server.URL), WithTokenPool(pool))
	ctx := context.Background()

	repo, err := c.FetchRepo(ctx, "octo", "hello")
	if err != nil {
		t.Fatalf("FetchRepo() error = %v", err)
	}
	if repo.Name != "hello" || repo.Owner.Login != "octo" {
		t.Errorf("repo = %+v", repo)
	}

	user, err := c.FetchUser(ctx, "octo")
	if err != nil {
		t.Fatalf("FetchUser() error = %v", err)
	}
	if user.DisplayName() != "Octo Cat" {
		t.Errorf("DisplayName() = %q", user.DisplayName())
	}

	if _, err := c.FetchRepo(ctx, "octo", "missing"); !errors.Is(err, ErrRepoNotFound) {
		t.Errorf("FetchRepo(missing) error = %v, want ErrRepoNotFound", err)
	}
}

func TestFetchFile(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("citEntry(title = \"x\")"))
	server, fc := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/o/r/contents/CITATION" || r.URL.Query().Get("ref") != "master" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"content":%q,"encoding":"base64"}`, content)
	})

	c := NewClient(fc, WithAPIBase(server.URL))
	got, err := c.FetchFile(context.Background(), "o", "r", "CITATION", "master")
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if got != `citEntry(title = "x")` {
		t.Errorf("FetchFile() = %q", got)
	}
}

func TestRateLimitRotatesTokens(t *testing.T) {
	reset := time.Now().Add(time.Hour).Unix()
	server, fc := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer limited" {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"login":"octo","name":""}`)
	})

	pool := NewTokenPool([]Credential{{Login: "a", Token: "limited"}, {Login: "b", Token: "fresh"}})
	c := NewClient(fc, WithAPIBase(server.URL), WithTokenPool(pool))
	ctx := context.Background()

	_, err := c.FetchUser(ctx, "octo")
	if !errors.Is(err, ErrRateLimited) || !fetch.IsRateLimited(err) {
		t.Fatalf("first FetchUser() error = %v, want rate limited", err)
	}

	for i := 0; i < 3; i++ {
		user, err := c.FetchUser(ctx, "octo")
		if err != nil {
			t.Fatalf("FetchUser() after rotation error = %v", err)
		}
		if user.DisplayName() != "octo" {
			t.Errorf("DisplayName() = %q, want login fallback", user.DisplayName())
		}
	}
}
