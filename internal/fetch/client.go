// Package fetch provides the shared HTTP client used by extractors.
//
// Every request has a bounded timeout and waits on a per-host rate limiter.
// GET responses may be cached, and concurrent identical GETs are coalesced.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/matsen/citeas/internal/metrics"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is requests per second allowed to one host.
	DefaultRateLimit = 5.0

	// DefaultUserAgent identifies the service to remote hosts.
	DefaultUserAgent = "CiteAs (https://citeas.org)"

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 8 << 20
)

// Client is a rate-limited, caching HTTP client.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	rateLimit  rate.Limit
	cache      *Cache
	logger     *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	group    singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets the per-host request rate. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.rateLimit = rate.Inf
			return
		}
		c.rateLimit = rate.Limit(perSecond)
	}
}

// WithCache enables response caching.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a fetch client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		rateLimit:  rate.Limit(DefaultRateLimit),
		logger:     zap.NewNop(),
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string // final URL after redirects
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

type requestConfig struct {
	method  string
	header  http.Header
	noCache bool
	timeout time.Duration
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.header.Set(key, value)
	}
}

// WithAccept sets the Accept header.
func WithAccept(value string) RequestOption {
	return WithHeader("Accept", value)
}

// WithBearerToken sets an Authorization bearer token.
func WithBearerToken(token string) RequestOption {
	return func(rc *requestConfig) {
		if token != "" {
			rc.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// NoCache bypasses the response cache for this request.
func NoCache() RequestOption {
	return func(rc *requestConfig) {
		rc.noCache = true
	}
}

// WithRequestTimeout overrides the client timeout for this request.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) {
		rc.timeout = d
	}
}

// Get fetches rawURL. Non-2xx responses return a *StatusError together
// with the response so callers can inspect headers.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, opts)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodHead, rawURL, append(opts, NoCache()))
}

func (c *Client) do(ctx context.Context, method, rawURL string, opts []RequestOption) (*Response, error) {
	rc := &requestConfig{method: method, header: make(http.Header), timeout: c.timeout}
	for _, opt := range opts {
		opt(rc)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrNetwork, rawURL)
	}

	cacheable := c.cache != nil && !rc.noCache && method == http.MethodGet
	key := cacheKey(method, rawURL, rc.header)
	if cacheable {
		if e, ok := c.cache.Get(ctx, key); ok {
			return entryResponse(e), nil
		}
	}

	// Coalesce identical in-flight requests. The shared call is detached
	// from every caller's cancellation and bounded only by rc.timeout.
	ch := c.group.DoChan(flightKey(key, rc), func() (any, error) {
		return c.roundTrip(context.WithoutCancel(ctx), u, rc)
	})
	var v any
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	case r := <-ch:
		v, err = r.Val, r.Err
	}
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && v != nil {
			return v.(*Response), err
		}
		return nil, err
	}
	resp := v.(*Response)
	if cacheable {
		c.cache.Put(ctx, key, &Entry{
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
			FetchedAt:  time.Now().UTC(),
		})
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, u *url.URL, rc *requestConfig) (*Response, error) {
	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrNetwork, err)
	}

	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, rc.method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header = rc.header.Clone()
	req.Header.Set("User-Agent", c.userAgent)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues(u.Host, "error").Inc()
		c.logger.Debug("request failed", zap.String("url", u.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, u.String())
	}
	metrics.FetchRequestsTotal.WithLabelValues(u.Host, strconv.Itoa(httpResp.StatusCode)).Inc()

	resp := &Response{
		URL:        httpResp.Request.URL.String(),
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.logger.Debug("non-2xx response", zap.String("url", u.String()), zap.Int("status", httpResp.StatusCode))
		return resp, &StatusError{StatusCode: httpResp.StatusCode, URL: u.String()}
	}
	return resp, nil
}

// limiter returns the rate limiter for host, creating it on first use.
func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.rateLimit, 1)
		c.limiters[host] = l
	}
	return l
}

func cacheKey(method, rawURL string, header http.Header) string {
	return method + " " + rawURL + " accept=" + header.Get("Accept") + " auth=" + strconv.FormatBool(header.Get("Authorization") != "")
}

// flightKey separates in-flight requests that differ in timeout or caching.
func flightKey(key string, rc *requestConfig) string {
	return key + " timeout=" + rc.timeout.String() + " nocache=" + strconv.FormatBool(rc.noCache)
}

func entryResponse(e *Entry) *Response {
	return &Response{URL: e.URL, StatusCode: e.StatusCode, Header: e.Header, Body: e.Body}
}
