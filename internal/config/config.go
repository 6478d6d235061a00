// Package config handles environment configuration and .env loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvClientID     = "FIREBOLT_CLIENT_ID"
	EnvClientSecret = "FIREBOLT_CLIENT_SECRET"
	EnvAccountName  = "FIREBOLT_ACCOUNT_NAME"
	EnvAPIEndpoint  = "FIREBOLT_API_ENDPOINT"
	EnvProfile      = "FIREBOLT_PROFILE"
	EnvEngineName   = "FIREBOLT_ENGINE_NAME"
	EnvDatabaseName = "FIREBOLT_DATABASE_NAME"
	EnvLogLevel     = "FIREBOLT_LOG_LEVEL"
	EnvTimeout      = "FIREBOLT_TIMEOUT"
	EnvConfigDir    = "FIREBOLT_CONFIG_DIR"
	EnvHistory      = "FIREBOLT_HISTORY"
)

// DefaultAPIEndpoint is the resource API used when nothing else is configured.
const DefaultAPIEndpoint = "https://api.app.firebolt.io"

// Config holds the values read from FIREBOLT_* environment variables.
// Empty strings mean "not set"; the CLI layers flags and profiles around them.
type Config struct {
	ClientID     string
	ClientSecret string
	AccountName  string
	APIEndpoint  string
	Profile      string
	EngineName   string
	DatabaseName string
	LogLevel     string        // debug, info, warn, error (default "warn")
	Timeout      time.Duration // zero means no statement deadline
	ConfigDir    string        // default ~/.firebolt
	History      bool          // persist REPL history (default true)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// ProfilePath is the YAML profile file.
func (c *Config) ProfilePath() string { return filepath.Join(c.ConfigDir, "config.yaml") }

// TokenCachePath is the on-disk access token cache.
func (c *Config) TokenCachePath() string { return filepath.Join(c.ConfigDir, "token.json") }

// HistoryPath is the REPL history database.
func (c *Config) HistoryPath() string { return filepath.Join(c.ConfigDir, "history.db") }

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		AccountName:  os.Getenv(EnvAccountName),
		APIEndpoint:  os.Getenv(EnvAPIEndpoint),
		Profile:      os.Getenv(EnvProfile),
		EngineName:   os.Getenv(EnvEngineName),
		DatabaseName: os.Getenv(EnvDatabaseName),
		LogLevel:     os.Getenv(EnvLogLevel),
		ConfigDir:    os.Getenv(EnvConfigDir),
		History:      parseBoolEnvDefault(EnvHistory, true),
	}

	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid duration %q: %w", EnvTimeout, v, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("%s must not be negative", EnvTimeout)
		}
		cfg.Timeout = d
	}

	if cfg.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			cfg.ConfigDir = ".firebolt"
			cfg.Warnings = append(cfg.Warnings, "cannot determine home directory; using ./.firebolt for configuration")
		} else {
			cfg.ConfigDir = filepath.Join(home, ".firebolt")
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if (cfg.ClientID == "") != (cfg.ClientSecret == "") {
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("only one of %s and %s is set; the other comes from the profile", EnvClientID, EnvClientSecret))
	}
	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// env vars take precedence
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
