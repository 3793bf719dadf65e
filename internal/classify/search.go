package classify

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/matsen/citeas/internal/fetch"
)

// DefaultSearchURL is the DuckDuckGo HTML endpoint.
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

// maxResults is how many result links are returned.
const maxResults = 3

// ErrNoResults is returned when a search page lists no results.
var ErrNoResults = errors.New("web search returned no results")

// Searcher runs a web search and returns result URLs in rank order.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// DuckDuckGo searches the DuckDuckGo HTML interface.
type DuckDuckGo struct {
	fetch   *fetch.Client
	baseURL string
}

// NewDuckDuckGo creates a searcher. An empty baseURL uses DefaultSearchURL.
func NewDuckDuckGo(fc *fetch.Client, baseURL string) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	return &DuckDuckGo{fetch: fc, baseURL: baseURL}
}

// Search returns up to three result URLs.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]string, error) {
	resp, err := d.fetch.Get(ctx, d.baseURL+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	results := parseResults(resp.Text())
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// parseResults reads result links (anchors with class result__a) from a
// results page, unwrapping redirect links.
func parseResults(page string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(page))
	for len(out) < maxResults {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "a" || !hasAttr {
			continue
		}
		var href string
		var isResult bool
		for {
			key, val, more := z.TagAttr()
			switch string(key) {
			case "href":
				href = string(val)
			case "class":
				isResult = strings.Contains(string(val), "result__a")
			}
			if !more {
				break
			}
		}
		if isResult {
			if u := unwrapRedirect(href); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// unwrapRedirect maps "//duckduckgo.com/l/?uddg=<target>" to the target.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
