package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile used when none is selected.
const DefaultProfile = "default"

// UserConfig represents ~/.firebolt/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current_profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile represents a single named configuration profile.
type Profile struct {
	ClientID     string `yaml:"client-id,omitempty" json:"client_id,omitempty"`
	ClientSecret string `yaml:"client-secret,omitempty" json:"client_secret,omitempty"`
	AccountName  string `yaml:"account-name,omitempty" json:"account_name,omitempty"`
	APIEndpoint  string `yaml:"api-endpoint,omitempty" json:"api_endpoint,omitempty"`
	DatabaseName string `yaml:"database-name,omitempty" json:"database_name,omitempty"`
	EngineName   string `yaml:"engine-name,omitempty" json:"engine_name,omitempty"`
	Output       string `yaml:"output,omitempty" json:"output,omitempty"`
}

// newUserConfig returns an empty configuration.
func newUserConfig() *UserConfig {
	return &UserConfig{CurrentProfile: DefaultProfile, Profiles: map[string]Profile{}}
}

// ActiveProfile returns the profile to use based on the override or current-profile.
func (c *UserConfig) ActiveProfile(override string) Profile {
	return c.Profiles[c.activeName(override)]
}

func (c *UserConfig) activeName(override string) string {
	if override != "" {
		return override
	}
	if c.CurrentProfile != "" {
		return c.CurrentProfile
	}
	return DefaultProfile
}

// LoadUserConfig reads the profile file at path. A missing file is returned as an empty config
// together with an error satisfying errors.Is(err, os.ErrNotExist).
func LoadUserConfig(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return newUserConfig(), fmt.Errorf("read config: %w", err)
	}
	cfg := newUserConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return newUserConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	for name, p := range cfg.Profiles {
		p.AccountName = strings.ToLower(p.AccountName)
		cfg.Profiles[name] = p
	}
	return cfg, nil
}

// loadUserConfigOrEmpty treats a missing file as an empty config.
func loadUserConfigOrEmpty(path string) (*UserConfig, error) {
	cfg, err := LoadUserConfig(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return cfg, nil
}

// SaveUserConfig writes cfg to path with owner-only permissions.
func SaveUserConfig(path string, cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
