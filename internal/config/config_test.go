// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, .env files, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv(EnvAccessToken, "")

	path := writeConfig(t, "config.yaml", `
matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ledger:example.org"
  access_token: "syt_test"
  allowed_rooms:
    - "!ops:example.org"
  command_prefix: "!ledger"
  typing_indicator: true

ledger:
  backend: "files"
  path: "/srv/ledger/emails_by_state"

bot:
  locale: "ru"
  dedupe_ttl: "5m"
  dedupe_size: 50

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  addr: "127.0.0.1:9000"
  path: "/metrics"
  refresh_interval: "15s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.Homeserver != "https://matrix.example.org" {
		t.Errorf("Matrix.Homeserver = %q", cfg.Matrix.Homeserver)
	}
	if cfg.Matrix.AccessToken != "syt_test" {
		t.Errorf("Matrix.AccessToken = %q, want %q", cfg.Matrix.AccessToken, "syt_test")
	}
	if len(cfg.Matrix.AllowedRooms) != 1 {
		t.Errorf("Matrix.AllowedRooms len = %d, want 1", len(cfg.Matrix.AllowedRooms))
	}
	if !cfg.Matrix.TypingIndicator {
		t.Error("Matrix.TypingIndicator = false, want true")
	}
	if cfg.Ledger.Backend != "files" || cfg.Ledger.Path != "/srv/ledger/emails_by_state" {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
	if cfg.Bot.Locale != "ru" {
		t.Errorf("Bot.Locale = %q, want %q", cfg.Bot.Locale, "ru")
	}
	if cfg.Bot.DedupeTTL != 5*time.Minute {
		t.Errorf("Bot.DedupeTTL = %v, want %v", cfg.Bot.DedupeTTL, 5*time.Minute)
	}
	if cfg.Bot.DedupeSize != 50 {
		t.Errorf("Bot.DedupeSize = %d, want 50", cfg.Bot.DedupeSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9000" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Metrics.RefreshInterval != 15*time.Second {
		t.Errorf("Metrics.RefreshInterval = %v, want %v", cfg.Metrics.RefreshInterval, 15*time.Second)
	}
	if err := cfg.Matrix.Validate(); err != nil {
		t.Errorf("Matrix.Validate() error = %v", err)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	t.Setenv(EnvAccessToken, "")

	path := writeConfig(t, "config.toml", `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@ledger:example.org"
access_token = "syt_toml"
allowed_users = ["@alice:example.org", "@bob:example.org"]

[ledger]
backend = "memory"

[bot]
dedupe_ttl = "1m"

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.AccessToken != "syt_toml" {
		t.Errorf("Matrix.AccessToken = %q", cfg.Matrix.AccessToken)
	}
	if len(cfg.Matrix.AllowedUsers) != 2 {
		t.Errorf("Matrix.AllowedUsers len = %d, want 2", len(cfg.Matrix.AllowedUsers))
	}
	if cfg.Ledger.Backend != "memory" {
		t.Errorf("Ledger.Backend = %q", cfg.Ledger.Backend)
	}
	if cfg.Bot.DedupeTTL != time.Minute {
		t.Errorf("Bot.DedupeTTL = %v", cfg.Bot.DedupeTTL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	path := writeConfig(t, "config.yaml", "matrix:\n  homeserver: \"https://matrix.org\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ledger.Backend != "sqlite" {
		t.Errorf("Ledger.Backend = %q, want sqlite", cfg.Ledger.Backend)
	}
	wantPath := filepath.Join(dataHome, "ledger", "ledger.db")
	if cfg.Ledger.Path != wantPath {
		t.Errorf("Ledger.Path = %q, want %q", cfg.Ledger.Path, wantPath)
	}
	if cfg.Bot.Locale != "en" {
		t.Errorf("Bot.Locale = %q, want en", cfg.Bot.Locale)
	}
	if cfg.Bot.DedupeTTL != 10*time.Minute || cfg.Bot.DedupeSize != 1000 {
		t.Errorf("Bot = %+v", cfg.Bot)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if cfg.Metrics.Addr != ":9464" || cfg.Metrics.Path != "/metrics" || cfg.Metrics.RefreshInterval != 30*time.Second {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_LEDGER_HOMESERVER", "https://hs.example.org")
	t.Setenv("TEST_LEDGER_DB", "/tmp/from-env.db")
	t.Setenv(EnvAccessToken, "")

	path := writeConfig(t, "config.yaml", `
matrix:
  homeserver: "${TEST_LEDGER_HOMESERVER}"
  access_token: "${TEST_LEDGER_UNSET_TOKEN}"
ledger:
  path: "${TEST_LEDGER_DB}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matrix.Homeserver != "https://hs.example.org" {
		t.Errorf("Matrix.Homeserver = %q", cfg.Matrix.Homeserver)
	}
	if cfg.Ledger.Path != "/tmp/from-env.db" {
		t.Errorf("Ledger.Path = %q", cfg.Ledger.Path)
	}
	if cfg.Matrix.AccessToken != "" {
		t.Errorf("Matrix.AccessToken = %q, want empty for unset var", cfg.Matrix.AccessToken)
	}
}

func TestLoad_AccessTokenEnvOverride(t *testing.T) {
	t.Setenv(EnvAccessToken, "syt_from_env")

	path := writeConfig(t, "config.yaml", `
matrix:
  homeserver: "https://matrix.org"
  user_id: "@ledger:matrix.org"
  access_token: "ignored"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matrix.AccessToken != "syt_from_env" {
		t.Errorf("Matrix.AccessToken = %q, want %q", cfg.Matrix.AccessToken, "syt_from_env")
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	const key = "TEST_LEDGER_DOTENV_TOKEN"
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=syt_dotenv\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	content := "matrix:\n  access_token: \"${" + key + "}\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvAccessToken, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matrix.AccessToken != "syt_dotenv" {
		t.Errorf("Matrix.AccessToken = %q, want %q", cfg.Matrix.AccessToken, "syt_dotenv")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "matrix: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "config.yaml", "bot:\n  dedupe_ttl: \"soon\"\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "dedupe_ttl") {
		t.Errorf("error = %v, want mention of dedupe_ttl", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Ledger.Path = "/tmp/ledger.db"
		if err := parseDurations(cfg); err != nil {
			t.Fatalf("parseDurations: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "redis" }, "ledger.backend"},
		{"missing path", func(c *Config) { c.Ledger.Path = "" }, "ledger.path"},
		{"memory needs no path", func(c *Config) { c.Ledger.Backend = "memory"; c.Ledger.Path = "" }, ""},
		{"bad locale", func(c *Config) { c.Bot.Locale = "de" }, "bot.locale"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad metrics path", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Path = "metrics" }, "metrics.path"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestMatrixConfig_Validate(t *testing.T) {
	base := MatrixConfig{
		Homeserver:  "https://matrix.org",
		UserID:      "@ledger:matrix.org",
		AccessToken: "syt_x",
	}

	tests := []struct {
		name    string
		mutate  func(*MatrixConfig)
		wantErr string
	}{
		{"valid", func(*MatrixConfig) {}, ""},
		{"missing homeserver", func(m *MatrixConfig) { m.Homeserver = "" }, "matrix.homeserver"},
		{"bad scheme", func(m *MatrixConfig) { m.Homeserver = "ftp://matrix.org" }, "http or https"},
		{"missing user", func(m *MatrixConfig) { m.UserID = "" }, "matrix.user_id"},
		{"malformed user", func(m *MatrixConfig) { m.UserID = "ledger" }, "@name:server"},
		{"missing token", func(m *MatrixConfig) { m.AccessToken = "" }, EnvAccessToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := base
			tc.mutate(&m)
			err := m.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/ledger/custom.yaml")
	if got := DefaultConfigPath(); got != "/etc/ledger/custom.yaml" {
		t.Errorf("DefaultConfigPath() = %q", got)
	}

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultConfigPath(); got != filepath.Join("/xdg", "ledger", "config.yaml") {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
}
