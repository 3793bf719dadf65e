package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/metrics"
)

// Default cache bounds.
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 24 * time.Hour
)

// Entry is a cached response.
type Entry struct {
	URL        string      `json:"url"` // final URL after redirects
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Persister is a cache tier that survives restarts.
type Persister interface {
	LoadResponse(ctx context.Context, key string, maxAge time.Duration) (*Entry, bool, error)
	SaveResponse(ctx context.Context, key string, e *Entry) error
}

// Cache is a two-tier response cache: a size and age bounded in-memory LRU
// in front of an optional persisted tier.
type Cache struct {
	mem     *expirable.LRU[string, *Entry]
	persist Persister
	ttl     time.Duration
	logger  *zap.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithPersister adds a persisted second tier.
func WithPersister(p Persister) CacheOption {
	return func(c *Cache) {
		c.persist = p
	}
}

// WithCacheLogger sets the logger used for persisted-tier failures.
func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates a cache holding at most size entries for ttl each.
func NewCache(size int, ttl time.Duration, opts ...CacheOption) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		mem:    expirable.NewLRU[string, *Entry](size, nil, ttl),
		ttl:    ttl,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a cached entry, consulting the persisted tier on a memory miss.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	if e, ok := c.mem.Get(key); ok {
		metrics.CacheRequestsTotal.WithLabelValues("memory", "hit").Inc()
		return e, true
	}
	metrics.CacheRequestsTotal.WithLabelValues("memory", "miss").Inc()

	if c.persist == nil {
		return nil, false
	}
	e, ok, err := c.persist.LoadResponse(ctx, key, c.ttl)
	if err != nil {
		c.logger.Warn("loading cached response", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheRequestsTotal.WithLabelValues("persisted", "miss").Inc()
		return nil, false
	}
	metrics.CacheRequestsTotal.WithLabelValues("persisted", "hit").Inc()
	c.mem.Add(key, e)
	return e, true
}

// Put stores an entry in every tier.
func (c *Cache) Put(ctx context.Context, key string, e *Entry) {
	c.mem.Add(key, e)
	if c.persist == nil {
		return
	}
	if err := c.persist.SaveResponse(ctx, key, e); err != nil {
		c.logger.Warn("saving cached response", zap.String("key", key), zap.Error(err))
	}
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	return c.mem.Len()
}

// Purge empties the in-memory tier.
func (c *Cache) Purge() {
	c.mem.Purge()
}
