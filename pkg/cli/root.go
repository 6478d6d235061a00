package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/firebolt-db/firebolt-cli/internal/api"
	"github.com/firebolt-db/firebolt-cli/internal/config"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// exitCoder is implemented by errors that choose the process exit code.
type exitCoder interface {
	ExitCode() int
}

// exitError ends the process with code after the outcome was already reported.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// ExitCode implements exitCoder.
func (e *exitError) ExitCode() int { return e.code }

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return domain.ExitFailure
	}
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return domain.ExitSuccess
	}

	var reported *exitError
	if errors.As(err, &reported) {
		return reported.code
	}

	output, _ := rootCmd.PersistentFlags().GetString("output")
	if output == "json" {
		errObj := map[string]interface{}{
			"error": err.Error(),
		}
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			errObj["http_status"] = apiErr.HTTPStatus
			errObj["code"] = apiErr.Code
		}
		var remote *domain.RemoteError
		if errors.As(err, &remote) && remote.Statement != "" {
			errObj["statement"] = remote.Statement
		}
		_ = printJSON(os.Stdout, errObj)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return domain.ExitFailure
}

// globalOptions holds the persistent flags and everything resolved from them.
type globalOptions struct {
	clientID     string
	clientSecret string
	accountName  string
	apiEndpoint  string
	output       string
	profile      string
	yes          bool
	verbose      bool
	timeout      time.Duration

	env    *config.Config
	user   *UserConfig
	prof   Profile
	logger *slog.Logger
	client *api.Client
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "firebolt",
		Short:         "Firebolt command line client",
		Long:          "Manage databases and engines, run SQL, and load data from S3 into fact tables.",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.resolve(cmd)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.ErrUsage("%v", err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.clientID, "client-id", "", "Service account client id")
	pf.StringVar(&g.clientSecret, "client-secret", "", "Service account client secret")
	pf.StringVar(&g.accountName, "account-name", "", "Name of the account")
	pf.StringVar(&g.apiEndpoint, "api-endpoint", config.DefaultAPIEndpoint, "API endpoint")
	pf.StringVarP(&g.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&g.profile, "profile", "p", "", "Config profile to use")
	pf.BoolVarP(&g.yes, "yes", "y", false, "Automatically confirm every prompt")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")
	pf.DurationVar(&g.timeout, "timeout", 0, "Deadline for the whole command, e.g. 10m (0 means none)")
	_ = pf.MarkHidden("api-endpoint")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigureCmd(g))
	rootCmd.AddCommand(newQueryCmd(g))
	rootCmd.AddCommand(newDatabaseCmd(g))
	rootCmd.AddCommand(newEngineCmd(g))
	rootCmd.AddCommand(newTableCmd(g))
	rootCmd.AddCommand(newIngestCmd(g))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve applies flag > env > profile > default precedence and sets up logging.
func (g *globalOptions) resolve(cmd *cobra.Command) error {
	env, err := config.LoadFromEnv()
	if err != nil {
		return domain.ErrUsage("%v", err)
	}
	g.env = env

	if !cmd.Flags().Changed("profile") {
		g.profile = env.Profile
	}
	g.user, err = loadUserConfigOrEmpty(env.ProfilePath())
	if err != nil {
		return err
	}
	g.prof = g.user.ActiveProfile(g.profile)

	flags := cmd.Flags()
	g.clientID = pick(flags.Changed("client-id"), g.clientID, env.ClientID, g.prof.ClientID, "")
	g.clientSecret = pick(flags.Changed("client-secret"), g.clientSecret, env.ClientSecret, g.prof.ClientSecret, "")
	g.accountName = pick(flags.Changed("account-name"), g.accountName, env.AccountName, g.prof.AccountName, "")
	g.apiEndpoint = pick(flags.Changed("api-endpoint"), g.apiEndpoint, env.APIEndpoint, g.prof.APIEndpoint, config.DefaultAPIEndpoint)
	g.output = pick(flags.Changed("output"), g.output, "", g.prof.Output, "table")
	if !flags.Changed("timeout") {
		g.timeout = env.Timeout
	}
	if err := validateOutputFormat(g.output); err != nil {
		return domain.ErrUsage("%v", err)
	}

	level := env.SlogLevel()
	if g.verbose {
		level = slog.LevelDebug
	}
	g.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	for _, w := range env.Warnings {
		g.logger.Warn(w)
	}
	g.logger.Debug("configuration resolved",
		"profile", g.user.activeName(g.profile),
		"account", g.accountName,
		"api_endpoint", g.apiEndpoint,
		"output", g.output,
		"timeout", g.timeout)
	return nil
}

// pick returns the flag value when set, else the first non-empty of env, profile, and def.
func pick(changed bool, flagVal, envVal, profVal, def string) string {
	switch {
	case changed:
		return flagVal
	case envVal != "":
		return envVal
	case profVal != "":
		return profVal
	default:
		return def
	}
}

// apiClient returns the authenticated resource API client.
func (g *globalOptions) apiClient() (*api.Client, error) {
	if g.client != nil {
		return g.client, nil
	}
	if g.accountName == "" {
		return nil, domain.ErrUsage("account name is required: pass --account-name, set %s, or run 'firebolt configure'",
			config.EnvAccountName)
	}
	if g.clientID == "" || g.clientSecret == "" {
		return nil, domain.ErrUsage("client id and client secret are required: pass --client-id/--client-secret, set %s/%s, or run 'firebolt configure'",
			config.EnvClientID, config.EnvClientSecret)
	}
	auth := api.NewClientCredentials(g.apiEndpoint, g.clientID, g.clientSecret, g.env.TokenCachePath())
	g.client = api.NewClient(g.apiEndpoint, g.accountName, auth)
	g.client.UserAgent = "firebolt-cli/" + version
	return g.client, nil
}

// context returns the command context bounded by --timeout.
func (g *globalOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

// databaseName resolves a command-local --database-name.
func (g *globalOptions) databaseName(cmd *cobra.Command, flagVal string) string {
	return pick(cmd.Flags().Changed("database-name"), flagVal, g.env.DatabaseName, g.prof.DatabaseName, "")
}

// engineName resolves a command-local --engine-name.
func (g *globalOptions) engineName(cmd *cobra.Command, flagVal string) string {
	return pick(cmd.Flags().Changed("engine-name"), flagVal, g.env.EngineName, g.prof.EngineName, "")
}

// executor connects to the engine serving database. An empty engine selects the
// database's default engine.
func (g *globalOptions) executor(ctx context.Context, engine, database string) (domain.Executor, error) {
	if database == "" {
		return nil, domain.ErrUsage("database name is required: pass --database-name, set %s, or run 'firebolt configure'",
			config.EnvDatabaseName)
	}
	client, err := g.apiClient()
	if err != nil {
		return nil, err
	}
	endpoint, err := client.ResolveEngineEndpoint(ctx, engine, database)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("engine endpoint resolved", "engine", engine, "database", database, "endpoint", endpoint)
	return api.NewQueryClient(client, endpoint, database), nil
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return domain.ErrUsage("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
