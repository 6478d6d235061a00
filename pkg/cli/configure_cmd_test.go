package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSaved(t *testing.T, dir string) *UserConfig {
	t.Helper()
	cfg, err := LoadUserConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestConfigureFromFlags(t *testing.T) {
	dir := isolateEnv(t)

	out, err := runCLI(t, "", "configure", "--client-id", "id-1", "--client-secret", "super-secret-value",
		"--account-name", "ACME", "--database-name", "sales")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully updated firebolt-cli configuration")

	cfg := loadSaved(t, dir)
	assert.Equal(t, DefaultProfile, cfg.CurrentProfile)
	p := cfg.Profiles[DefaultProfile]
	assert.Equal(t, "id-1", p.ClientID)
	assert.Equal(t, "super-secret-value", p.ClientSecret)
	assert.Equal(t, "acme", p.AccountName)
	assert.Equal(t, "sales", p.DatabaseName)
	assert.Empty(t, p.EngineName)

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second call only touches the given flag.
	_, err = runCLI(t, "", "configure", "--engine-name", "etl")
	require.NoError(t, err)
	p = loadSaved(t, dir).Profiles[DefaultProfile]
	assert.Equal(t, "etl", p.EngineName)
	assert.Equal(t, "sales", p.DatabaseName)
}

func TestConfigureInteractive(t *testing.T) {
	dir := isolateEnv(t)

	_, err := runCLI(t, "", "configure", "--database-name", "keep-me")
	require.NoError(t, err)

	out, err := runCLI(t, "id-2\nsecret-2\nMyAccount\n\netl\n", "configure")
	require.NoError(t, err)
	assert.Contains(t, out, "Client ID [None]: ")
	assert.Contains(t, out, "Database name [keep-me]: ")

	p := loadSaved(t, dir).Profiles[DefaultProfile]
	assert.Equal(t, "id-2", p.ClientID)
	assert.Equal(t, "secret-2", p.ClientSecret)
	assert.Equal(t, "myaccount", p.AccountName)
	assert.Equal(t, "keep-me", p.DatabaseName)
	assert.Equal(t, "etl", p.EngineName)
}

func TestPromptProfileHidesStoredSecret(t *testing.T) {
	var out bytes.Buffer
	prev := Profile{ClientID: "id", ClientSecret: "s3cr3t"}
	p, err := promptProfile(strings.NewReader("\n\n\n\n\n"), &out, prev)
	require.NoError(t, err)
	assert.Equal(t, prev, p)
	assert.Contains(t, out.String(), "Client Secret [************]: ")
	assert.NotContains(t, out.String(), "s3cr3t")
}

func TestConfigureShow(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "", "configure", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration found")

	_, err = runCLI(t, "", "configure", "--client-id", "id", "--client-secret", "abcd1234567890wxyz")
	require.NoError(t, err)

	out, err := runCLI(t, "", "configure", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "client-secret: abcd****wxyz")
	assert.NotContains(t, out, "abcd1234567890wxyz")

	out, err = runCLI(t, "", "configure", "show", "--reveal", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"client_secret": "abcd1234567890wxyz"`)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd****6789", maskSecret("abcdef0123456789"))
}

func TestConfigureProfiles(t *testing.T) {
	dir := isolateEnv(t)

	_, err := runCLI(t, "", "configure", "--account-name", "one")
	require.NoError(t, err)
	_, err = runCLI(t, "", "configure", "-p", "staging", "--account-name", "two")
	require.NoError(t, err)

	cfg := loadSaved(t, dir)
	assert.Equal(t, DefaultProfile, cfg.CurrentProfile)
	assert.Equal(t, "two", cfg.Profiles["staging"].AccountName)

	_, err = runCLI(t, "", "configure", "use-profile", "missing")
	require.Error(t, err)

	out, err := runCLI(t, "", "configure", "use-profile", "staging")
	require.NoError(t, err)
	assert.Contains(t, out, `Active profile set to "staging"`)
	assert.Equal(t, "staging", loadSaved(t, dir).CurrentProfile)

	out, err = runCLI(t, "", "configure", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully reset firebolt-cli configuration")
	cfg = loadSaved(t, dir)
	assert.Equal(t, Profile{}, cfg.Profiles["staging"])
	assert.Equal(t, "one", cfg.Profiles[DefaultProfile].AccountName)
}

func TestLoadUserConfigMissingFile(t *testing.T) {
	cfg, err := loadUserConfigOrEmpty(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Profiles)
	assert.Equal(t, DefaultProfile, cfg.CurrentProfile)
}
