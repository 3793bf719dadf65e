package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "citeas"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override file values.
const (
	EnvGitHubTokens = "GITHUB_TOKENS"
	EnvListenAddr   = "CITEAS_ADDR"
	EnvPort         = "PORT"
	EnvCacheDB      = "CITEAS_CACHE_DB"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *Config

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/citeas/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file with environment
// overrides applied. A missing file yields the defaults.
func LoadGlobalConfig() (*Config, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}
	cfg, err := LoadFile(GlobalConfigPath())
	if err != nil {
		return nil, err
	}
	globalConfigCache = cfg
	return cfg, nil
}

// LoadFile loads the configuration at path over the defaults and applies
// environment overrides. An empty or missing path yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	cfg.CacheDB = ExpandPath(cfg.CacheDB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable envKey when set, else
// fallback.
func GetConfigValue(envKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvGitHubTokens); v != "" {
		cfg.GitHubTokens = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.GitHubTokens = append(cfg.GitHubTokens, t)
			}
		}
	}
	if port := os.Getenv(EnvPort); port != "" {
		cfg.ListenAddr = ":" + port
	}
	cfg.ListenAddr = GetConfigValue(EnvListenAddr, cfg.ListenAddr)
	cfg.CacheDB = GetConfigValue(EnvCacheDB, cfg.CacheDB)
}

// HelpfulConfigMessage explains where the config file lives.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`Configuration is read from %s.

Tip: create it to add GitHub tokens and a persisted cache:
  mkdir -p %s
  printf 'github_tokens:\n  - login:token\ncache_db: ~/.cache/citeas/responses.db\n' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
