package github

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matsen/citeas/internal/metrics"
)

// ErrPoolExhausted is returned when every configured token is rate limited.
var ErrPoolExhausted = errors.New("all GitHub tokens are rate limited")

// Credential is one GitHub login and token.
type Credential struct {
	Login string
	Token string
}

// ParseTokens parses "login:token,login:token". A bare token without a
// login is accepted.
func ParseTokens(s string) ([]Credential, error) {
	var creds []Credential
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		login, token, ok := strings.Cut(part, ":")
		if !ok {
			token, login = login, ""
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("empty token in %q", part)
		}
		creds = append(creds, Credential{Login: strings.TrimSpace(login), Token: token})
	}
	return creds, nil
}

type tokenState struct {
	cred    Credential
	resetAt time.Time
}

// TokenPool hands out tokens round-robin, skipping tokens that are rate
// limited until their reset time passes. A pool with no tokens hands out
// the empty credential, which means anonymous requests.
type TokenPool struct {
	mu     sync.Mutex
	tokens []*tokenState
	next   int
	now    func() time.Time
}

// NewTokenPool creates a pool over creds.
func NewTokenPool(creds []Credential) *TokenPool {
	p := &TokenPool{now: time.Now}
	for _, c := range creds {
		p.tokens = append(p.tokens, &tokenState{cred: c})
	}
	return p
}

// Len returns the number of configured tokens.
func (p *TokenPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.tokens)
}

// Acquire returns the next usable credential.
func (p *TokenPool) Acquire() (Credential, error) {
	if p == nil || len(p.tokens) == 0 {
		return Credential{}, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.tokens {
		t := p.tokens[p.next]
		p.next = (p.next + 1) % len(p.tokens)
		if !t.resetAt.After(now) {
			return t.cred, nil
		}
	}
	metrics.GithubTokensExhausted.Inc()
	return Credential{}, ErrPoolExhausted
}

// MarkExhausted benches token until reset.
func (p *TokenPool) MarkExhausted(token string, reset time.Time) {
	if p == nil || token == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tokens {
		if t.cred.Token == token {
			t.resetAt = reset
		}
	}
}
