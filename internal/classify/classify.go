// Package classify turns a raw user identifier into the root of a search:
// the root step kind, its content, and its content URL.
package classify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/extract"
	"github.com/matsen/citeas/internal/fetch"
)

// DefaultProbeTimeout bounds each reachability probe.
const DefaultProbeTimeout = 2 * time.Second

// Kind is how an identifier was recognized.
type Kind string

// Identifier kinds.
const (
	KindDOI     Kind = "doi"
	KindURL     Kind = "url"
	KindArxiv   Kind = "arxiv"
	KindHost    Kind = "host"
	KindKeyword Kind = "keyword"
)

// ErrUnsupportedInput is returned for identifiers that are rejected before
// any search runs.
var ErrUnsupportedInput = errors.New("unsupported input")

// UnsupportedError carries the user-facing reason an input was rejected.
type UnsupportedError struct {
	Input   string
	Message string
}

func (e *UnsupportedError) Error() string {
	return e.Message
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedInput
}

// IsUnsupported reports whether err rejects the input.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedInput)
}

// Classification is the starting point of a search.
type Classification struct {
	Input      string `json:"input"`
	Kind       Kind   `json:"kind"`
	RootStep   string `json:"root_step"`
	Content    string `json:"content"`
	ContentURL string `json:"content_url"`
	KeyWord    string `json:"key_word,omitempty"`
}

var (
	embeddedURL  = regexp.MustCompile(`https?://[^\s]+`)
	bareArxivID  = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	hostLike     = regexp.MustCompile(`^[\w-]+(\.[\w-]+)+(:\d+)?(/\S*)?$`)
	eightDigitID = regexp.MustCompile(`^\d{8}$`)
)

// Classifier recognizes identifiers.
type Classifier struct {
	fetch        *fetch.Client
	searcher     Searcher
	probeTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSearcher sets the web search used for free text.
func WithSearcher(s Searcher) Option {
	return func(c *Classifier) {
		c.searcher = s
	}
}

// WithProbeTimeout overrides DefaultProbeTimeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New creates a classifier. Without a searcher, free text is passed on as
// the keyword itself.
func New(fc *fetch.Client, opts ...Option) *Classifier {
	c := &Classifier{
		fetch:        fc,
		probeTimeout: DefaultProbeTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify applies the recognition rules in order: rejection, DOI, URL,
// arXiv id, reachable host, and finally web search.
func (c *Classifier) Classify(ctx context.Context, raw string) (Classification, error) {
	input := strings.TrimSpace(raw)
	if err := checkSupported(input); err != nil {
		return Classification{}, err
	}

	cl := Classification{Input: input, RootStep: extract.KindUserInput}
	switch {
	case strings.HasPrefix(input, "10."):
		cl.Kind = KindDOI
		cl.ContentURL = extract.DOIResolver + input

	case isHTTP(input):
		cl.Kind = KindURL
		cl.ContentURL = input

	case embeddedURL.MatchString(input):
		cl.Kind = KindURL
		cl.ContentURL = embeddedURL.FindString(input)

	case strings.HasPrefix(strings.ToLower(input), "arxiv:"):
		cl.Kind = KindArxiv
		cl.ContentURL = "https://arxiv.org/abs/" + strings.TrimSpace(input[len("arxiv:"):])

	case bareArxivID.MatchString(input):
		cl.Kind = KindArxiv
		cl.ContentURL = "https://arxiv.org/abs/" + input

	case hostLike.MatchString(input) && c.fetch.Probe(ctx, "http://"+input, c.probeTimeout):
		cl.Kind = KindHost
		cl.ContentURL = "http://" + input

	default:
		return c.keyword(ctx, input), nil
	}

	if strings.HasPrefix(cl.ContentURL, "ftp://") {
		return Classification{}, &UnsupportedError{Input: input, Message: "FTP URLs are not supported"}
	}
	if strings.Contains(cl.ContentURL, "readthedocs") {
		cl.ContentURL = c.citationPage(ctx, cl.ContentURL)
	}

	cl.Content = cl.ContentURL
	if cl.Kind == KindArxiv {
		cl.Content = "arxiv:" + strings.TrimPrefix(cl.ContentURL, "https://arxiv.org/abs/")
	}
	c.logger.Debug("classified identifier",
		zap.String("input", input),
		zap.String("kind", string(cl.Kind)),
		zap.String("content_url", cl.ContentURL))
	return cl, nil
}

// checkSupported rejects document files and FTP URLs.
func checkSupported(input string) error {
	lower := strings.ToLower(input)
	switch {
	case input == "":
		return &UnsupportedError{Input: input, Message: "no identifier given"}
	case strings.HasSuffix(lower, ".pdf"):
		return &UnsupportedError{Input: input, Message: "PDF documents are not supported"}
	case strings.HasSuffix(lower, ".doc"), strings.HasSuffix(lower, ".docx"):
		return &UnsupportedError{Input: input, Message: "Word documents are not supported"}
	case strings.HasPrefix(lower, "ftp://"):
		return &UnsupportedError{Input: input, Message: "FTP URLs are not supported"}
	}
	return nil
}

// keyword searches the web for free text. When the search finds nothing,
// the text itself becomes the content.
func (c *Classifier) keyword(ctx context.Context, input string) Classification {
	cl := Classification{
		Input:    input,
		Kind:     KindKeyword,
		RootStep: extract.KindKeywordSearch,
		Content:  input,
		KeyWord:  input,
	}
	if c.searcher == nil {
		return cl
	}
	results, err := c.searcher.Search(ctx, searchQuery(input))
	if err != nil {
		c.logger.Info("web search failed", zap.String("input", input), zap.Error(err))
		return cl
	}
	for _, u := range results {
		if strings.Contains(u, "citebay.com") || strings.HasSuffix(strings.ToLower(u), ".pdf") {
			continue
		}
		cl.Content = u
		cl.ContentURL = u
		break
	}
	return cl
}

func searchQuery(input string) string {
	switch {
	case eightDigitID.MatchString(input):
		return input // PubMed id
	case strings.Contains(input, "scipy"):
		return "scipy citation"
	}
	return fmt.Sprintf("%s software citation", input)
}

// citationPage finds the citation page of a Read the Docs site, returning
// u unchanged when none responds.
func (c *Classifier) citationPage(ctx context.Context, u string) string {
	for _, candidate := range readTheDocsCandidates(u) {
		if _, err := c.fetch.Get(ctx, candidate, fetch.WithRequestTimeout(c.probeTimeout), fetch.NoCache()); err == nil {
			return candidate
		}
	}
	return u
}

func readTheDocsCandidates(u string) []string {
	options := []string{"citation.html", "reference/citing.html"}
	var base string
	switch {
	case strings.HasSuffix(u, "en/stable"), strings.HasSuffix(u, "en/latest"):
		base = u + "/"
	case strings.HasSuffix(u, "en/stable/"), strings.HasSuffix(u, "en/latest/"):
		base = u
	case strings.HasSuffix(u, "/"):
		base = u + "en/stable/"
	default:
		base = u + "/en/stable/"
	}
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = base + opt
	}
	return out
}

func isHTTP(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
