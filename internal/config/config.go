// ABOUTME: Configuration loading and parsing for the state-ledger bot and admin CLI
// ABOUTME: Supports YAML or TOML files, .env files, ${VAR} expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389/state-ledger/internal/ledger"
)

// Environment variables read by the loader.
const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "LEDGER_CONFIG"
	// EnvAccessToken overrides matrix.access_token. The bot credential is
	// expected to come from here (or a .env file), never from the config text.
	EnvAccessToken = "LEDGER_MATRIX_ACCESS_TOKEN"
)

// Config represents the complete state-ledger configuration
type Config struct {
	Matrix  MatrixConfig  `yaml:"matrix" toml:"matrix"`
	Ledger  LedgerConfig  `yaml:"ledger" toml:"ledger"`
	Bot     BotConfig     `yaml:"bot" toml:"bot"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// MatrixConfig holds the chat transport settings
type MatrixConfig struct {
	Homeserver      string   `yaml:"homeserver" toml:"homeserver"`
	UserID          string   `yaml:"user_id" toml:"user_id"`
	AccessToken     string   `yaml:"access_token" toml:"access_token"`
	AllowedRooms    []string `yaml:"allowed_rooms" toml:"allowed_rooms"`
	AllowedUsers    []string `yaml:"allowed_users" toml:"allowed_users"`
	CommandPrefix   string   `yaml:"command_prefix" toml:"command_prefix"`
	TypingIndicator bool     `yaml:"typing_indicator" toml:"typing_indicator"`
}

// LedgerConfig selects the storage backend
type LedgerConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // sqlite, files, memory
	Path    string `yaml:"path" toml:"path"`       // database file or directory
}

// BotConfig holds conversation settings
type BotConfig struct {
	Locale     string        `yaml:"locale" toml:"locale"` // en, ru
	DedupeTTL  time.Duration `yaml:"-" toml:"-"`
	DedupeSize int           `yaml:"dedupe_size" toml:"dedupe_size"`

	DedupeTTLRaw string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled" toml:"enabled"`
	Addr            string        `yaml:"addr" toml:"addr"`
	Path            string        `yaml:"path" toml:"path"`
	RefreshInterval time.Duration `yaml:"-" toml:"-"`

	RefreshIntervalRaw string `yaml:"refresh_interval" toml:"refresh_interval"`
}

// DefaultConfigPath returns the config file location.
// Priority: LEDGER_CONFIG env var > XDG_CONFIG_HOME/ledger/config.yaml > ~/.config/ledger/config.yaml
func DefaultConfigPath() string {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ledger", "config.yaml")
}

// DefaultDataPath returns the ledger data directory.
// Priority: XDG_DATA_HOME/ledger > ~/.local/share/ledger
func DefaultDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "ledger")
}

// Load reads a configuration file and returns a parsed, validated Config.
//
// A .env file in the working directory and one next to the config file are
// loaded first; variables already set in the environment win. ${VAR_NAME}
// patterns are then expanded. Files ending in .toml are parsed as TOML,
// everything else as YAML. The Matrix section is not validated here; the
// bot calls MatrixConfig.Validate itself.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads each existing file without overriding set variables.
func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("loading env file %s: %w", abs, err)
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = ledger.BackendSQLite
	}
	if cfg.Ledger.Path == "" {
		switch cfg.Ledger.Backend {
		case ledger.BackendSQLite:
			cfg.Ledger.Path = filepath.Join(DefaultDataPath(), "ledger.db")
		case ledger.BackendFiles:
			cfg.Ledger.Path = filepath.Join(DefaultDataPath(), "emails_by_state")
		}
	}
	if cfg.Bot.Locale == "" {
		cfg.Bot.Locale = "en"
	}
	if cfg.Bot.DedupeTTLRaw == "" {
		cfg.Bot.DedupeTTLRaw = "10m"
	}
	if cfg.Bot.DedupeSize == 0 {
		cfg.Bot.DedupeSize = 1000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9464"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.RefreshIntervalRaw == "" {
		cfg.Metrics.RefreshIntervalRaw = "30s"
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv(EnvAccessToken); token != "" {
		cfg.Matrix.AccessToken = token
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Bot.DedupeTTL, err = time.ParseDuration(cfg.Bot.DedupeTTLRaw)
	if err != nil {
		return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Bot.DedupeTTLRaw, err)
	}

	cfg.Metrics.RefreshInterval, err = time.ParseDuration(cfg.Metrics.RefreshIntervalRaw)
	if err != nil {
		return fmt.Errorf("parsing refresh_interval %q: %w", cfg.Metrics.RefreshIntervalRaw, err)
	}

	return nil
}

// Validate checks everything except the Matrix section.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case ledger.BackendSQLite, ledger.BackendFiles:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for backend %q", c.Ledger.Backend)
		}
	case ledger.BackendMemory:
	default:
		return fmt.Errorf("ledger.backend must be sqlite, files or memory, got %q", c.Ledger.Backend)
	}

	switch c.Bot.Locale {
	case "en", "ru":
	default:
		return fmt.Errorf("bot.locale must be en or ru, got %q", c.Bot.Locale)
	}

	if c.Bot.DedupeTTL <= 0 {
		return fmt.Errorf("bot.dedupe_ttl must be positive")
	}
	if c.Bot.DedupeSize < 0 {
		return fmt.Errorf("bot.dedupe_size must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /")
		}
		if c.Metrics.RefreshInterval <= 0 {
			return fmt.Errorf("metrics.refresh_interval must be positive")
		}
	}

	return nil
}

// Validate checks that the Matrix credentials are usable.
func (m *MatrixConfig) Validate() error {
	if m.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(m.Homeserver)
	if err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("matrix.homeserver must use http or https scheme")
	}
	if m.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if !strings.HasPrefix(m.UserID, "@") || !strings.Contains(m.UserID, ":") {
		return fmt.Errorf("matrix.user_id must look like @name:server, got %q", m.UserID)
	}
	if m.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required (set %s)", EnvAccessToken)
	}
	return nil
}
