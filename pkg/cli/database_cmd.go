package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/firebolt-db/firebolt-cli/internal/api"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

func newDatabaseCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "database",
		Aliases: []string{"db"},
		Short:   "Manage databases",
	}

	cmd.AddCommand(newDatabaseCreateCmd(g))
	cmd.AddCommand(newDatabaseListCmd(g))
	cmd.AddCommand(newDatabaseDescribeCmd(g))
	cmd.AddCommand(newDatabaseUpdateCmd(g))
	cmd.AddCommand(newDatabaseDropCmd(g))

	return cmd
}

// databaseRecord is the describe view of a database and its attached engines.
func databaseRecord(db *domain.Database, engines []domain.Engine) record {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name)
	}
	return record{
		{"name", db.Name},
		{"description", db.Description},
		{"region", db.Region},
		{"data_size", convertBytes(db.DataSizeFull)},
		{"create_time", formatValue(db.CreateTime)},
		{"attached_engine_names", names},
	}
}

// describeDatabase fetches the database and its engines concurrently.
func describeDatabase(ctx context.Context, client *api.Client, name string) (record, error) {
	var (
		db      *domain.Database
		engines []domain.Engine
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		db, err = client.GetDatabase(ctx, name)
		return err
	})
	eg.Go(func() error {
		var err error
		engines, err = client.ListDatabaseEngines(ctx, name)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return databaseRecord(db, engines), nil
}

func newDatabaseCreateCmd(g *globalOptions) *cobra.Command {
	var req api.CreateDatabaseRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(req.Description) > 64 {
				return domain.ErrUsage("--description must be at most 64 characters")
			}
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			db, err := client.CreateDatabase(ctx, req)
			if err != nil {
				return err
			}
			asJSON := getOutputFormat(cmd) == "json"
			if !asJSON {
				_, _ = fmt.Fprintf(os.Stdout, "Database %s is successfully created\n", db.Name)
			}
			rec, err := describeDatabase(ctx, client, db.Name)
			if err != nil {
				return err
			}
			return printRecord(os.Stdout, rec, asJSON)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "New database name")
	cmd.Flags().StringVar(&req.Region, "region", "", "Region for the new database")
	cmd.Flags().StringVar(&req.Description, "description", "", "Database description, up to 64 characters")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}

func newDatabaseListCmd(g *globalOptions) *cobra.Command {
	var nameContains string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List existing databases",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			dbs, err := client.ListDatabases(ctx)
			if err != nil {
				return err
			}
			var records []record
			for _, db := range dbs {
				if nameContains != "" && !strings.Contains(db.Name, nameContains) {
					continue
				}
				records = append(records, record{
					{"name", db.Name},
					{"region", db.Region},
					{"description", db.Description},
				})
			}

			asJSON := getOutputFormat(cmd) == "json"
			if !asJSON {
				_, _ = fmt.Fprintf(os.Stdout, "Found %d databases\n", len(records))
				if len(records) == 0 {
					return nil
				}
			}
			return printRecords(os.Stdout, []string{"name", "region", "description"}, records, asJSON)
		},
	}

	cmd.Flags().StringVar(&nameContains, "name-contains", "", "Only list databases whose name contains this text")

	return cmd
}

func newDatabaseDescribeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <database_name>",
		Short: "Describe a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			rec, err := describeDatabase(ctx, client, args[0])
			if err != nil {
				return err
			}
			return printRecord(os.Stdout, rec, getOutputFormat(cmd) == "json")
		},
	}
}

func newDatabaseUpdateCmd(g *globalOptions) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a database description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(description) > 64 {
				return domain.ErrUsage("--description must be at most 64 characters")
			}
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			db, err := client.UpdateDatabase(ctx, name, description)
			if err != nil {
				return err
			}
			asJSON := getOutputFormat(cmd) == "json"
			if !asJSON {
				_, _ = fmt.Fprintf(os.Stdout, "The database %s was successfully updated\n", db.Name)
			}
			rec, err := describeDatabase(ctx, client, db.Name)
			if err != nil {
				return err
			}
			return printRecord(os.Stdout, rec, asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Database to update")
	cmd.Flags().StringVar(&description, "description", "", "New description, up to 64 characters")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func newDatabaseDropCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <database_name>",
		Short: "Drop a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.requireYesForJSON(cmd); err != nil {
				return err
			}
			client, err := g.apiClient()
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			db, err := client.GetDatabase(ctx, args[0])
			if err != nil {
				return err
			}
			ok, err := g.confirm(cmd, fmt.Sprintf("Do you really want to drop the database %s?", db.Name))
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(os.Stdout, "Drop request is aborted")
				return nil
			}
			if err := client.DeleteDatabase(ctx, db.Name); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{"status": "dropped", "database": db.Name})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Drop request for database %s is successfully sent\n", db.Name)
			return nil
		},
	}
}

// requireYesForJSON rejects destructive commands that would prompt while emitting JSON.
func (g *globalOptions) requireYesForJSON(cmd *cobra.Command) error {
	if getOutputFormat(cmd) == "json" && !g.yes {
		return domain.ErrUsage("--output json should be used with --yes")
	}
	return nil
}

// confirm asks a yes/no question on stdin unless --yes was given.
func (g *globalOptions) confirm(cmd *cobra.Command, question string) (bool, error) {
	if g.yes {
		return true, nil
	}
	return askYesNo(cmd.InOrStdin(), os.Stdout, question)
}

func askYesNo(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
