package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

func newConfigureCmd(g *globalOptions) *cobra.Command {
	var (
		databaseName string
		engineName   string
	)

	cmd := &cobra.Command{
		Use:     "configure",
		Aliases: []string{"config"},
		Short:   "Store configuration in a profile",
		Long: "Store client credentials, account, database, and engine defaults in ~/.firebolt/config.yaml.\n" +
			"Without flags the values are prompted for interactively.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := g.user.activeName(g.profile)
			p := g.user.Profiles[name]

			changed := false
			set := func(flag string, dst *string, val string) {
				if cmd.Flags().Changed(flag) {
					*dst = val
					changed = true
				}
			}
			set("client-id", &p.ClientID, g.clientID)
			set("client-secret", &p.ClientSecret, g.clientSecret)
			set("account-name", &p.AccountName, g.accountName)
			set("api-endpoint", &p.APIEndpoint, g.apiEndpoint)
			set("database-name", &p.DatabaseName, databaseName)
			set("engine-name", &p.EngineName, engineName)

			if !changed {
				var err error
				p, err = promptProfile(cmd.InOrStdin(), os.Stdout, p)
				if err != nil {
					return err
				}
			}
			p.AccountName = strings.ToLower(p.AccountName)

			g.user.Profiles[name] = p
			if g.user.CurrentProfile == "" {
				g.user.CurrentProfile = name
			}
			if err := SaveUserConfig(g.env.ProfilePath(), g.user); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    g.env.ProfilePath(),
				})
			}
			_, _ = fmt.Fprintln(os.Stdout, "Successfully updated firebolt-cli configuration")
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseName, "database-name", "", "Default database")
	cmd.Flags().StringVar(&engineName, "engine-name", "", "Default engine")

	cmd.AddCommand(newConfigureShowCmd(g))
	cmd.AddCommand(newConfigureUseProfileCmd(g))
	cmd.AddCommand(newConfigureResetCmd(g))

	return cmd
}

// promptProfile asks for each value, keeping the previous one on empty input.
func promptProfile(in io.Reader, out io.Writer, prev Profile) (Profile, error) {
	reader := bufio.NewReader(in)
	p := prev

	secretHint := ""
	if prev.ClientSecret != "" {
		secretHint = "************"
	}
	prompts := []struct {
		label  string
		hint   string
		dst    *string
		secret bool
	}{
		{"Client ID", prev.ClientID, &p.ClientID, false},
		{"Client Secret", secretHint, &p.ClientSecret, true},
		{"Account name", prev.AccountName, &p.AccountName, false},
		{"Database name", prev.DatabaseName, &p.DatabaseName, false},
		{"Engine name", prev.EngineName, &p.EngineName, false},
	}
	for _, q := range prompts {
		hint := q.hint
		if hint == "" {
			hint = "None"
		}
		_, _ = fmt.Fprintf(out, "%s [%s]: ", q.label, hint)
		val, err := readAnswer(in, reader, q.secret)
		if err != nil {
			return prev, err
		}
		if q.secret {
			_, _ = fmt.Fprintln(out)
		}
		if val != "" {
			*q.dst = val
		}
	}
	return p, nil
}

// readAnswer reads one line; secrets typed on a terminal are not echoed.
func readAnswer(in io.Reader, reader *bufio.Reader, secret bool) (string, error) {
	if f, ok := in.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newConfigureShowCmd(g *globalOptions) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the stored configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(g.user.Profiles) == 0 {
				return domain.ErrNotFound("no configuration found at %s", g.env.ProfilePath())
			}
			cfg := g.user
			if !reveal {
				cfg = maskConfig(cfg)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprint(os.Stdout, string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show the client secret unmasked")

	return cmd
}

// maskConfig returns a copy of the config with client secrets masked.
func maskConfig(cfg *UserConfig) *UserConfig {
	masked := &UserConfig{
		CurrentProfile: cfg.CurrentProfile,
		Profiles:       make(map[string]Profile, len(cfg.Profiles)),
	}
	for name, p := range cfg.Profiles {
		p.ClientSecret = maskSecret(p.ClientSecret)
		masked.Profiles[name] = p
	}
	return masked
}

// maskSecret masks a sensitive string, showing first 4 and last 4 chars.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func newConfigureUseProfileCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, ok := g.user.Profiles[name]; !ok {
				return domain.ErrNotFound("profile %q not found", name)
			}
			g.user.CurrentProfile = name
			if err := SaveUserConfig(g.env.ProfilePath(), g.user); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Active profile set to %q\n", name)
			return nil
		},
	}
}

func newConfigureResetCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all values of the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := g.user.activeName(g.profile)
			g.user.Profiles[name] = Profile{}
			if err := SaveUserConfig(g.env.ProfilePath(), g.user); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "Successfully reset firebolt-cli configuration")
			return nil
		},
	}
}
