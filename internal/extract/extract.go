// Package extract implements the extractor for every registered step kind.
//
// Extractors read their parent's content and content URL, fetch whatever
// source they specialize in, and return the new content. Finding nothing is
// signaled with an empty Output. Fetch and parse failures are returned as
// errors; the engine records them and treats the step as empty.
package extract

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/matsen/citeas/internal/fetch"
	"github.com/matsen/citeas/internal/github"
)

// Sources holds the collaborators shared by all extractors.
type Sources struct {
	fetch    *fetch.Client
	github   *github.Client
	logger   *zap.Logger
	arxivAPI string
}

// Option configures Sources.
type Option func(*Sources)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sources) {
		s.logger = l
	}
}

// WithArxivAPI overrides the arXiv query endpoint.
func WithArxivAPI(u string) Option {
	return func(s *Sources) {
		s.arxivAPI = u
	}
}

// New creates extractors backed by fc and gh.
func New(fc *fetch.Client, gh *github.Client, opts ...Option) *Sources {
	s := &Sources{
		fetch:    fc,
		github:   gh,
		logger:   zap.NewNop(),
		arxivAPI: DefaultArxivAPI,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// page fetches a page, following meta refreshes.
func (s *Sources) page(ctx context.Context, u string) (string, error) {
	body, _, err := s.fetch.Page(ctx, u)
	return body, err
}

// findOrEmpty returns the first submatch of re in text, or the whole match
// when re has no groups.
func findOrEmpty(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return m[1]
	}
	return m[0]
}

func stripNewLines(text string) string {
	return strings.NewReplacer("\n", " ", "\r", "").Replace(text)
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// hrefs returns the href attribute of every anchor in page, in document order.
func hrefs(page string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way the page is done.
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					out = append(out, string(val))
				}
				if !more {
					break
				}
			}
		}
	}
}

// firstHref returns the first anchor href in page matched by re.
func firstHref(page string, re *regexp.Regexp) string {
	for _, h := range hrefs(page) {
		if re.MatchString(h) {
			return h
		}
	}
	return ""
}
