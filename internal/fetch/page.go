package fetch

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxHops bounds meta-refresh redirects followed by Page.
const maxHops = 5

// metaRefreshPattern matches <meta http-equiv="refresh" content="0; url=...">.
var metaRefreshPattern = regexp.MustCompile(`(?i)<meta[^>]*?url=(.*?)["']`)

// Page fetches a web page, following meta-refresh redirects, and returns the
// final body and URL.
func (c *Client) Page(ctx context.Context, rawURL string, opts ...RequestOption) (body, finalURL string, err error) {
	seen := make(map[string]bool)
	current := rawURL
	for hop := 0; hop <= maxHops; hop++ {
		seen[current] = true
		resp, err := c.Get(ctx, current, opts...)
		if err != nil {
			return "", current, err
		}
		body, finalURL = resp.Text(), resp.URL
		if finalURL != "" {
			seen[finalURL] = true
		}

		m := metaRefreshPattern.FindStringSubmatch(body)
		if m == nil {
			return body, finalURL, nil
		}
		next := resolveReference(current, strings.TrimSpace(m[1]))
		if next == "" || seen[next] {
			return body, finalURL, nil
		}
		current = next
	}
	return body, finalURL, nil
}

// PageText is Page without the final URL. Failures yield "".
func (c *Client) PageText(ctx context.Context, rawURL string, opts ...RequestOption) string {
	body, _, err := c.Page(ctx, rawURL, opts...)
	if err != nil {
		return ""
	}
	return body
}

// Probe reports whether rawURL answers 2xx within timeout, trying HEAD
// first and falling back to GET. It never returns an error.
func (c *Client) Probe(ctx context.Context, rawURL string, timeout time.Duration) bool {
	if _, err := c.Head(ctx, rawURL, WithRequestTimeout(timeout)); err == nil {
		return true
	}
	_, err := c.Get(ctx, rawURL, WithRequestTimeout(timeout), NoCache())
	return err == nil
}

func resolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// Link is one entry of an RFC 8288 Link header.
type Link struct {
	URL    string
	Rel    string
	Params map[string]string
}

// ParseLinkHeader parses every Link header value in h.
func ParseLinkHeader(h http.Header) []Link {
	var links []Link
	for _, value := range h.Values("Link") {
		for _, part := range splitLinkValues(value) {
			if l, ok := parseLink(part); ok {
				links = append(links, l)
			}
		}
	}
	return links
}

// splitLinkValues splits on commas that are outside <...> and quotes.
func splitLinkValues(s string) []string {
	var parts []string
	var inURL, inQuote bool
	start := 0
	for i, r := range s {
		switch {
		case r == '<' && !inQuote:
			inURL = true
		case r == '>' && !inQuote:
			inURL = false
		case r == '"' && !inURL:
			inQuote = !inQuote
		case r == ',' && !inURL && !inQuote:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseLink(s string) (Link, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return Link{}, false
	}
	end := strings.Index(s, ">")
	if end < 0 {
		return Link{}, false
	}
	l := Link{URL: strings.TrimSpace(s[1:end]), Params: make(map[string]string)}
	for _, param := range strings.Split(s[end+1:], ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"`)
		l.Params[key] = value
		if key == "rel" {
			l.Rel = value
		}
	}
	return l, true
}

// HasRel reports whether the link's rel list contains rel.
func (l Link) HasRel(rel string) bool {
	for _, r := range strings.Fields(l.Rel) {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}
