package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/history"
	"github.com/firebolt-db/firebolt-cli/internal/sqltext"
)

func newQueryCmd(g *globalOptions) *cobra.Command {
	var (
		conn    connectionFlags
		file    string
		sqlText string
		useCSV  bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Execute SQL queries",
		Long: "Execute SQL read from stdin, --file, or --sql. Without any of them an interactive\n" +
			"session is started.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stdinSQL, err := readPipedInput(cmd.InOrStdin())
			if err != nil {
				return err
			}
			fileSQL := ""
			if file != "" {
				data, err := os.ReadFile(file) //nolint:gosec // intentional: user-specified input file
				if err != nil {
					return domain.ErrUsage("read %s: %v", file, err)
				}
				fileSQL = string(data)
			}

			sources := 0
			for _, s := range []string{stdinSQL, fileSQL, sqlText} {
				if strings.TrimSpace(s) != "" {
					sources++
				}
			}
			if sources > 1 {
				return domain.ErrUsage("SQL request should be either read from stdin, --file, or --sql; more than one is specified")
			}
			script := strings.TrimSpace(stdinSQL + fileSQL + sqlText)

			format := getOutputFormat(cmd)
			if useCSV {
				format = "csv"
			}

			ctx, cancel := g.context(cmd)
			defer cancel()

			exec, err := g.executor(ctx, g.engineName(cmd, conn.engineName), g.databaseName(cmd, conn.databaseName))
			if err != nil {
				return err
			}

			if script != "" {
				return runScript(ctx, exec, script, format, os.Stdout, g.logger)
			}

			sess := &replSession{
				exec:     exec,
				in:       cmd.InOrStdin(),
				out:      os.Stdout,
				format:   format,
				database: g.databaseName(cmd, conn.databaseName),
				logger:   g.logger,
			}
			if g.env.History {
				store, err := history.Open(g.env.HistoryPath())
				if err != nil {
					g.logger.Warn("query history disabled", "error", err)
				} else {
					defer store.Close() //nolint:errcheck
					sess.history = store
				}
			}
			return sess.run(ctx)
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "Path to a file with SQL to execute")
	cmd.Flags().StringVar(&sqlText, "sql", "", "SQL to execute")
	cmd.Flags().BoolVar(&useCSV, "csv", false, "Print results as CSV")

	return cmd
}

// readPipedInput returns stdin content unless stdin is a terminal.
func readPipedInput(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// runScript executes each statement of script in order and prints every result set.
// The first failing statement stops the script.
func runScript(ctx context.Context, exec domain.Executor, script, format string, out io.Writer, logger *slog.Logger) error {
	statements, err := sqltext.SplitStatements(script)
	if err != nil {
		return domain.ErrUsage("cannot split SQL script: %v", err)
	}
	for _, stmt := range statements {
		start := time.Now()
		logger.Debug("executing statement", "sql", sqltext.FormatShort(stmt))
		res, err := exec.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		logger.Debug("statement finished", "duration", time.Since(start), "rows", len(res.Rows))
		if err := printQueryResult(out, res, format); err != nil {
			return err
		}
	}
	return nil
}
