package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/matsen/citeas/internal/extract"
	"github.com/matsen/citeas/internal/fetch"
)

// hostRewriter sends every request to a local test server, keeping the
// original host in r.Host.
type hostRewriter struct {
	target *url.URL
}

func (h hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.Host = req.URL.Host
	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// newTestClient answers 200 for the listed "host/path" routes and 404
// otherwise.
func newTestClient(t *testing.T, ok ...string) *fetch.Client {
	t.Helper()
	routes := make(map[string]bool)
	for _, r := range ok {
		routes[r] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !routes[r.Host+r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	return fetch.NewClient(
		fetch.WithHTTPClient(&http.Client{Transport: hostRewriter{target: target}}),
		fetch.WithRateLimit(1000),
	)
}

type fakeSearcher struct {
	results []string
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestClassifyUnsupported(t *testing.T) {
	c := New(newTestClient(t))
	tests := []struct {
		input   string
		message string
	}{
		{"https://example.org/paper.pdf", "PDF documents are not supported"},
		{"https://example.org/paper.PDF", "PDF documents are not supported"},
		{"https://example.org/notes.doc", "Word documents are not supported"},
		{"https://example.org/notes.docx", "Word documents are not supported"},
		{"ftp://example.org/tool.tar.gz", "FTP URLs are not supported"},
		{"   ", "no identifier given"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := c.Classify(context.Background(), tt.input)
			if !IsUnsupported(err) {
				t.Fatalf("err = %v, want unsupported", err)
			}
			var ue *UnsupportedError
			if !errors.As(err, &ue) || ue.Message != tt.message {
				t.Errorf("message = %q, want %q", err, tt.message)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	fc := newTestClient(t, "scipy.org/", "numpy.readthedocs.io/en/latest/reference/citing.html")
	search := &fakeSearcher{results: []string{"https://example.org/search-hit"}}
	c := New(fc, WithSearcher(search))

	tests := []struct {
		name           string
		input          string
		wantKind       Kind
		wantRoot       string
		wantContent    string
		wantContentURL string
	}{
		{
			name:           "doi",
			input:          "10.5281/zenodo.1234",
			wantKind:       KindDOI,
			wantRoot:       extract.KindUserInput,
			wantContent:    "https://doi.org/10.5281/zenodo.1234",
			wantContentURL: "https://doi.org/10.5281/zenodo.1234",
		},
		{
			name:           "url",
			input:          "https://github.com/citeas/citeas-api",
			wantKind:       KindURL,
			wantRoot:       extract.KindUserInput,
			wantContent:    "https://github.com/citeas/citeas-api",
			wantContentURL: "https://github.com/citeas/citeas-api",
		},
		{
			name:           "url in text",
			input:          "see https://github.com/citeas/citeas-api for code",
			wantKind:       KindURL,
			wantRoot:       extract.KindUserInput,
			wantContent:    "https://github.com/citeas/citeas-api",
			wantContentURL: "https://github.com/citeas/citeas-api",
		},
		{
			name:           "arxiv prefix",
			input:          "arxiv:1812.02329",
			wantKind:       KindArxiv,
			wantRoot:       extract.KindUserInput,
			wantContent:    "arxiv:1812.02329",
			wantContentURL: "https://arxiv.org/abs/1812.02329",
		},
		{
			name:           "bare arxiv id",
			input:          "1812.02329",
			wantKind:       KindArxiv,
			wantRoot:       extract.KindUserInput,
			wantContent:    "arxiv:1812.02329",
			wantContentURL: "https://arxiv.org/abs/1812.02329",
		},
		{
			name:           "reachable host",
			input:          "scipy.org",
			wantKind:       KindHost,
			wantRoot:       extract.KindUserInput,
			wantContent:    "http://scipy.org",
			wantContentURL: "http://scipy.org",
		},
		{
			name:           "readthedocs citation page",
			input:          "https://numpy.readthedocs.io/en/latest",
			wantKind:       KindURL,
			wantRoot:       extract.KindUserInput,
			wantContent:    "https://numpy.readthedocs.io/en/latest/reference/citing.html",
			wantContentURL: "https://numpy.readthedocs.io/en/latest/reference/citing.html",
		},
		{
			name:           "unreachable host falls to search",
			input:          "nothere.example",
			wantKind:       KindKeyword,
			wantRoot:       extract.KindKeywordSearch,
			wantContent:    "https://example.org/search-hit",
			wantContentURL: "https://example.org/search-hit",
		},
		{
			name:           "free text",
			input:          "ggplot2",
			wantKind:       KindKeyword,
			wantRoot:       extract.KindKeywordSearch,
			wantContent:    "https://example.org/search-hit",
			wantContentURL: "https://example.org/search-hit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := c.Classify(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if cl.Kind != tt.wantKind || cl.RootStep != tt.wantRoot {
				t.Errorf("Kind, RootStep = %s, %s; want %s, %s", cl.Kind, cl.RootStep, tt.wantKind, tt.wantRoot)
			}
			if cl.Content != tt.wantContent || cl.ContentURL != tt.wantContentURL {
				t.Errorf("Content, ContentURL = %q, %q; want %q, %q", cl.Content, cl.ContentURL, tt.wantContent, tt.wantContentURL)
			}
			if tt.wantKind == KindKeyword && cl.KeyWord != tt.input {
				t.Errorf("KeyWord = %q, want %q", cl.KeyWord, tt.input)
			}
		})
	}
}

func TestClassifyKeywordResults(t *testing.T) {
	tests := []struct {
		name        string
		searcher    *fakeSearcher
		wantContent string
		wantURL     string
	}{
		{
			name: "skips citebay and pdf",
			searcher: &fakeSearcher{results: []string{
				"https://citebay.com/how-to-cite/ggplot2",
				"https://example.org/manual.pdf",
				"https://ggplot2.tidyverse.org/",
			}},
			wantContent: "https://ggplot2.tidyverse.org/",
			wantURL:     "https://ggplot2.tidyverse.org/",
		},
		{
			name:        "search failure keeps text",
			searcher:    &fakeSearcher{err: ErrNoResults},
			wantContent: "ggplot2",
		},
		{
			name:        "only skipped results",
			searcher:    &fakeSearcher{results: []string{"https://citebay.com/x"}},
			wantContent: "ggplot2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(newTestClient(t), WithSearcher(tt.searcher))
			cl, err := c.Classify(context.Background(), "ggplot2")
			if err != nil {
				t.Fatal(err)
			}
			if cl.Content != tt.wantContent || cl.ContentURL != tt.wantURL {
				t.Errorf("Content, ContentURL = %q, %q", cl.Content, cl.ContentURL)
			}
			if len(tt.searcher.queries) != 1 || tt.searcher.queries[0] != "ggplot2 software citation" {
				t.Errorf("queries = %v", tt.searcher.queries)
			}
		})
	}
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"29186385", "29186385"},
		{"scipy stats", "scipy citation"},
		{"ggplot2", "ggplot2 software citation"},
		{"1234567", "1234567 software citation"},
	}
	for _, tt := range tests {
		if got := searchQuery(tt.input); got != tt.want {
			t.Errorf("searchQuery(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReadTheDocsCandidates(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://x.readthedocs.io/en/stable", "https://x.readthedocs.io/en/stable/citation.html"},
		{"https://x.readthedocs.io/en/latest/", "https://x.readthedocs.io/en/latest/citation.html"},
		{"https://x.readthedocs.io/", "https://x.readthedocs.io/en/stable/citation.html"},
		{"https://x.readthedocs.io", "https://x.readthedocs.io/en/stable/citation.html"},
	}
	for _, tt := range tests {
		got := readTheDocsCandidates(tt.input)
		if len(got) != 2 || got[0] != tt.want {
			t.Errorf("readTheDocsCandidates(%q) = %v, want first %q", tt.input, got, tt.want)
		}
	}
}

func TestReadTheDocsFallback(t *testing.T) {
	c := New(newTestClient(t))
	cl, err := c.Classify(context.Background(), "https://quiet.readthedocs.io/")
	if err != nil {
		t.Fatal(err)
	}
	if cl.ContentURL != "https://quiet.readthedocs.io/" {
		t.Errorf("ContentURL = %q, want the original URL", cl.ContentURL)
	}
}
