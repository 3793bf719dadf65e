package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvGitHubTokens, EnvListenAddr, EnvPort, EnvCacheDB} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	configDir := filepath.Join(dir, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/citeas/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "citeas", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	def := Default()
	if cfg.ListenAddr != def.ListenAddr || cfg.ResolveTimeout != def.ResolveTimeout || len(cfg.GitHubTokens) != 0 {
		t.Errorf("missing file should give defaults, got %+v", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	writeConfig(t, tmpDir, `
listen_addr: "127.0.0.1:9000"
github_tokens:
  - alice:tok1
  - bob:tok2
fetch_timeout: 5s
cache_db: /var/cache/citeas.db
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if len(cfg.GitHubTokens) != 2 {
		t.Errorf("GitHubTokens = %v", cfg.GitHubTokens)
	}
	if cfg.FetchTimeout.Std() != 5*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout.Std())
	}
	// Keys absent from the file keep their defaults.
	if cfg.ProbeTimeout.Std() != 2*time.Second || cfg.CacheSize != 1024 {
		t.Errorf("ProbeTimeout, CacheSize = %v, %d", cfg.ProbeTimeout.Std(), cfg.CacheSize)
	}
	if cfg.CacheDB != "/var/cache/citeas.db" {
		t.Errorf("CacheDB = %q", cfg.CacheDB)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	writeConfig(t, tmpDir, "fetch_timeout: [not, a, duration]\n")
	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should fail on invalid YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "tokens",
			env:  map[string]string{EnvGitHubTokens: "carol:tok3, dave:tok4,"},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.GitHubTokens) != 2 || cfg.GitHubTokens[1] != "dave:tok4" {
					t.Errorf("GitHubTokens = %v", cfg.GitHubTokens)
				}
			},
		},
		{
			name: "port",
			env:  map[string]string{EnvPort: "5000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ListenAddr != ":5000" {
					t.Errorf("ListenAddr = %q", cfg.ListenAddr)
				}
			},
		},
		{
			name: "addr beats port",
			env:  map[string]string{EnvPort: "5000", EnvListenAddr: "0.0.0.0:7000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ListenAddr != "0.0.0.0:7000" {
					t.Errorf("ListenAddr = %q", cfg.ListenAddr)
				}
			},
		},
		{
			name: "cache db",
			env:  map[string]string{EnvCacheDB: "/tmp/responses.db"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.CacheDB != "/tmp/responses.db" {
					t.Errorf("CacheDB = %q", cfg.CacheDB)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte("github_tokens: [erin:tok5]\nlisten_addr: ':8081'\n"), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("TEST_CONFIG_KEY", "from-env")
	if got := GetConfigValue("TEST_CONFIG_KEY", "from-config"); got != "from-env" {
		t.Errorf("GetConfigValue() = %q, want from-env", got)
	}

	t.Setenv("TEST_CONFIG_KEY", "")
	if got := GetConfigValue("TEST_CONFIG_KEY", "from-config"); got != "from-config" {
		t.Errorf("GetConfigValue() = %q, want from-config", got)
	}
}

func TestGlobalConfigCache(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	writeConfig(t, tmpDir, "user_agent: first\n")
	cfg1, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}

	writeConfig(t, tmpDir, "user_agent: second\n")
	cfg2, _ := LoadGlobalConfig()
	if cfg2.UserAgent != cfg1.UserAgent {
		t.Error("cached config should be returned until reset")
	}

	ResetGlobalConfigCache()
	cfg3, _ := LoadGlobalConfig()
	if cfg3.UserAgent != "second" {
		t.Errorf("UserAgent after reset = %q", cfg3.UserAgent)
	}
}

func TestHelpfulConfigMessage(t *testing.T) {
	msg := HelpfulConfigMessage()
	if len(msg) < 50 {
		t.Error("HelpfulConfigMessage() seems too short")
	}
}
