package cli

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebolt-db/firebolt-cli/internal/api/apitest"
	"github.com/firebolt-db/firebolt-cli/internal/config"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// isolateEnv points HOME and the config directory at a temp dir and clears FIREBOLT_* variables.
// It returns the config directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		config.EnvClientID, config.EnvClientSecret, config.EnvAccountName, config.EnvAPIEndpoint,
		config.EnvProfile, config.EnvEngineName, config.EnvDatabaseName, config.EnvLogLevel,
		config.EnvTimeout, config.EnvHistory,
	} {
		t.Setenv(k, "")
	}
	dir := filepath.Join(home, ".firebolt")
	t.Setenv(config.EnvConfigDir, dir)
	return dir
}

// runCLI executes the root command with args and stdin, returning captured stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	done := captureStdout(t)
	err := rootCmd.Execute()
	return done(), err
}

// serverArgs returns the connection flags for the fake API.
func serverArgs(srv *apitest.Server) []string {
	return []string{
		"--api-endpoint", srv.URL,
		"--account-name", apitest.Account,
		"--client-id", apitest.ClientID,
		"--client-secret", apitest.ClientSecret,
	}
}

// withServer appends the fake API connection flags to args.
func withServer(srv *apitest.Server, args ...string) []string {
	return append(args, serverArgs(srv)...)
}

func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return domain.ExitFailure
}

func TestVersion(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "firebolt-cli version dev")

	out, err = runCLI(t, "", "version", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
	assert.Contains(t, out, `"platform": "`+runtime.GOOS+"/"+runtime.GOARCH+`"`)
}

func TestZeroArgCommandsRejectUnexpectedPositionalArgs(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "version", args: []string{"version", "extra"}},
		{name: "configure show", args: []string{"configure", "show", "extra"}},
		{name: "database list", args: []string{"database", "list", "extra"}},
		{name: "engine list", args: []string{"engine", "list", "extra"}},
		{name: "ingest", args: []string{"ingest", "extra"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, "", tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unknown command \"extra\"")
		})
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "", "database", "list", "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, exitCodeOf(t, err))
}

func TestInvalidOutputFormat(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "", "version", "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, exitCodeOf(t, err))
}

func TestMissingCredentials(t *testing.T) {
	isolateEnv(t)
	srv := apitest.NewServer(t)

	_, err := runCLI(t, "", "database", "list", "--api-endpoint", srv.URL, "--account-name", apitest.Account)
	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, exitCodeOf(t, err))
	assert.Contains(t, err.Error(), "client id and client secret are required")
	assert.Empty(t, srv.Requests)
}

func TestEnvOverridesProfile(t *testing.T) {
	isolateEnv(t)
	srv := apitest.NewServer(t)
	srv.AddDatabase(domain.Database{Name: "envdb", Region: "us-east-1"})

	_, err := runCLI(t, "", "configure", "--account-name", "other", "--client-id", "x", "--client-secret", "y")
	require.NoError(t, err)

	t.Setenv(config.EnvAccountName, apitest.Account)
	t.Setenv(config.EnvClientID, apitest.ClientID)
	t.Setenv(config.EnvClientSecret, apitest.ClientSecret)
	out, err := runCLI(t, "", "database", "list", "--api-endpoint", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 databases")
	assert.Contains(t, srv.Requests, "GET /v1/accounts/acme/databases")
}

func TestPick(t *testing.T) {
	assert.Equal(t, "flag", pick(true, "flag", "env", "prof", "def"))
	assert.Equal(t, "", pick(true, "", "env", "prof", "def"))
	assert.Equal(t, "env", pick(false, "flag", "env", "prof", "def"))
	assert.Equal(t, "prof", pick(false, "flag", "", "prof", "def"))
	assert.Equal(t, "def", pick(false, "flag", "", "", "def"))
}

func TestCompletion(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "firebolt")

	_, err = runCLI(t, "", "completion", "tcsh")
	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, exitCodeOf(t, err))
}
