// Package config handles service configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration stored in
// ~/.config/citeas/config.yml.
type Config struct {
	ListenAddr       string   `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty"`
	GitHubTokens     []string `yaml:"github_tokens,omitempty" json:"github_tokens,omitempty"` // "login:token"
	UserAgent        string   `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	FetchTimeout     Duration `yaml:"fetch_timeout,omitempty" json:"fetch_timeout,omitempty"`
	ProbeTimeout     Duration `yaml:"probe_timeout,omitempty" json:"probe_timeout,omitempty"`
	ResolveTimeout   Duration `yaml:"resolve_timeout,omitempty" json:"resolve_timeout,omitempty"`
	CacheTTL         Duration `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`
	CacheSize        int      `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
	CacheDB          string   `yaml:"cache_db,omitempty" json:"cache_db,omitempty"` // empty disables the persisted tier
	RateLimitPerHost float64  `yaml:"rate_limit_per_host,omitempty" json:"rate_limit_per_host,omitempty"`
	SearchURL        string   `yaml:"search_url,omitempty" json:"search_url,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddr:       ":8080",
		UserAgent:        "CiteAs (https://citeas.org)",
		FetchTimeout:     Duration(10 * time.Second),
		ProbeTimeout:     Duration(2 * time.Second),
		ResolveTimeout:   Duration(60 * time.Second),
		CacheTTL:         Duration(24 * time.Hour),
		CacheSize:        1024,
		RateLimitPerHost: 5,
		SearchURL:        "https://html.duckduckgo.com/html/",
	}
}

// Duration is a time.Duration written as "10s" or "1h30m" in YAML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML accepts a Go duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if parsed, err := time.ParseDuration(node.Value); err == nil {
		*d = Duration(parsed)
		return nil
	}
	secs, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalYAML writes d as a duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// MarshalJSON writes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	for name, d := range map[string]Duration{
		"fetch_timeout":   c.FetchTimeout,
		"probe_timeout":   c.ProbeTimeout,
		"resolve_timeout": c.ResolveTimeout,
		"cache_ttl":       c.CacheTTL,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name))
		}
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig))
	}
	if c.RateLimitPerHost < 0 {
		errs = append(errs, fmt.Errorf("%w: rate_limit_per_host must not be negative", ErrInvalidConfig))
	}
	if c.SearchURL != "" {
		if u, err := url.Parse(c.SearchURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: search_url %q is not an absolute URL", ErrInvalidConfig, c.SearchURL))
		}
	}
	return errors.Join(errs...)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print: tokens keep only their login.
func (c *Config) Redacted() *Config {
	out := *c
	out.GitHubTokens = make([]string, len(c.GitHubTokens))
	for i, t := range c.GitHubTokens {
		login, _, ok := strings.Cut(t, ":")
		if ok && login != "" {
			out.GitHubTokens[i] = login + ":***"
		} else {
			out.GitHubTokens[i] = "***"
		}
	}
	return &out
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
