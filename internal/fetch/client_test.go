package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{WithRateLimit(0), WithTimeout(2 * time.Second)}, opts...)...)
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept") != "application/vnd.citationstyles.csl+json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"title":"x"}`))
	}))
	defer server.Close()

	c := newTestClient(WithUserAgent("test-agent"))
	resp, err := c.Get(context.Background(), server.URL, WithAccept("application/vnd.citationstyles.csl+json"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Text() != `{"title":"x"}` {
		t.Errorf("body = %q", resp.Text())
	}
}

func TestGet_StatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantNotFound  bool
		wantRateLimit bool
		wantTransient bool
	}{
		{"not found", http.StatusNotFound, true, false, false},
		{"rate limited", http.StatusTooManyRequests, false, true, true},
		{"server error", http.StatusBadGateway, false, false, true},
		{"forbidden", http.StatusForbidden, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			resp, err := newTestClient().Get(context.Background(), server.URL)
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status {
				t.Fatalf("Get() error = %v, want StatusError %d", err, tt.status)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response should accompany a StatusError")
			}
			if IsNotFound(err) != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v", IsNotFound(err))
			}
			if IsRateLimited(err) != tt.wantRateLimit {
				t.Errorf("IsRateLimited() = %v", IsRateLimited(err))
			}
			if IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient() = %v", IsTransient(err))
			}
		})
	}
}

func TestGet_InvalidURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com/file", "not a url", "http://"} {
		if _, err := newTestClient().Get(context.Background(), u); !errors.Is(err, ErrNetwork) {
			t.Errorf("Get(%q) error = %v, want ErrNetwork", u, err)
		}
	}
}

func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	c := newTestClient(WithTimeout(50 * time.Millisecond))
	_, err := c.Get(context.Background(), server.URL)
	if !errors.Is(err, ErrNetwork) || !IsTransient(err) {
		t.Errorf("Get() error = %v, want transient ErrNetwork", err)
	}
}

func TestGet_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, "response %d", n)
	}))
	defer server.Close()

	c := newTestClient(WithCache(NewCache(10, time.Minute)))
	ctx := context.Background()

	first, _ := c.Get(ctx, server.URL)
	second, _ := c.Get(ctx, server.URL)
	if first.Text() != second.Text() || hits.Load() != 1 {
		t.Errorf("cached GET hit server %d times (%q, %q)", hits.Load(), first.Text(), second.Text())
	}

	third, _ := c.Get(ctx, server.URL, NoCache())
	if third.Text() != "response 2" {
		t.Errorf("NoCache() GET = %q, want fresh response", third.Text())
	}

	// A different Accept header is a different cache entry.
	c.Get(ctx, server.URL, WithAccept("application/json"))
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(WithCache(NewCache(10, time.Minute)))
	c.Get(context.Background(), server.URL)
	c.Get(context.Background(), server.URL)
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestGet_CoalescesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), server.URL); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestGet_CoalescedCallerSurvivesOtherCancellation(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient()
	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, server.URL)
		firstErr <- err
	}()
	<-started

	type result struct {
		resp *Response
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := c.Get(context.Background(), server.URL)
		second <- result{resp, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first Get() error = %v, want context.Canceled", err)
	}

	close(release)
	got := <-second
	if got.err != nil {
		t.Fatalf("second Get() error = %v", got.err)
	}
	if got.resp.Text() != "ok" {
		t.Errorf("second body = %q", got.resp.Text())
	}
}

func TestFlightKey(t *testing.T) {
	short := &requestConfig{timeout: 2 * time.Second}
	normal := &requestConfig{timeout: 10 * time.Second}
	fresh := &requestConfig{timeout: 10 * time.Second, noCache: true}

	if flightKey("GET u", short) == flightKey("GET u", normal) {
		t.Error("requests with different timeouts share a flight")
	}
	if flightKey("GET u", normal) == flightKey("GET u", fresh) {
		t.Error("cached and uncached requests share a flight")
	}
	if flightKey("GET u", normal) != flightKey("GET u", &requestConfig{timeout: 10 * time.Second}) {
		t.Error("identical requests should share a flight")
	}
}

type memPersister struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func (p *memPersister) LoadResponse(_ context.Context, key string, _ time.Duration) (*Entry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	return e, ok, nil
}

func (p *memPersister) SaveResponse(_ context.Context, key string, e *Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = e
	return nil
}

func TestCache_PersistedTier(t *testing.T) {
	p := &memPersister{entries: make(map[string]*Entry)}
	ctx := context.Background()

	c := NewCache(10, time.Minute, WithPersister(p))
	c.Put(ctx, "k", &Entry{URL: "https://x", StatusCode: 200, Body: []byte("body")})
	c.Purge()

	e, ok := c.Get(ctx, "k")
	if !ok || string(e.Body) != "body" {
		t.Fatalf("Get() after purge = %v, %v; want persisted entry", e, ok)
	}
	if c.Len() != 1 {
		t.Errorf("persisted hit should repopulate memory tier, Len() = %d", c.Len())
	}
}
