package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/firebolt-db/firebolt-cli/internal/awscreds"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/ingest"
	"github.com/firebolt-db/firebolt-cli/internal/tableschema"
)

func newTableCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "table",
		Aliases: []string{"tb"},
		Short:   "Create tables from a table definition file",
	}

	cmd.AddCommand(newTableCreateExternalCmd(g))
	cmd.AddCommand(newTableCreateFactCmd(g))
	cmd.AddCommand(newTableInferCmd())
	cmd.AddCommand(newTableValidateCmd())

	return cmd
}

// connectionFlags are the engine and database flags of commands that run SQL.
type connectionFlags struct {
	engineName   string
	databaseName string
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	fs := pflag.NewFlagSet("connection", pflag.ContinueOnError)
	fs.StringVar(&f.engineName, "engine-name", "", "Engine name or URL; defaults to the database default engine")
	fs.StringVar(&f.databaseName, "database-name", "", "Database name")
	cmd.Flags().AddFlagSet(fs)
}

func newTableCreateExternalCmd(g *globalOptions) *cobra.Command {
	var (
		conn        connectionFlags
		file        string
		s3URL       string
		checkSource bool
		s3Endpoint  string
		s3Region    string
	)

	cmd := &cobra.Command{
		Use:   "create-external",
		Short: "Create an external table over files in S3",
		Long: "Create the external table ex_<table_name> described by --file over the files at --s3-url.\n" +
			"Credentials are read from FIREBOLT_AWS_KEY_ID/FIREBOLT_AWS_SECRET_KEY or FIREBOLT_AWS_ROLE_ARN.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := tableschema.LoadFile(file)
			if err != nil {
				return err
			}
			creds, err := awscreds.FromEnv(os.Getenv)
			if err != nil {
				return err
			}
			g.logger.Debug("source credentials", "kind", awscreds.Describe(creds))

			ctx, cancel := g.context(cmd)
			defer cancel()

			if checkSource {
				res, err := awscreds.Preflight(ctx, s3URL, schema.ObjectPattern, creds, awscreds.PreflightOptions{
					Region:   s3Region,
					Endpoint: s3Endpoint,
				})
				if err != nil {
					return err
				}
				g.logger.Info("source check passed", "bucket", res.Bucket, "listed", res.Listed, "matched", len(res.Matched))
			}

			exec, err := g.executor(ctx, g.engineName(cmd, conn.engineName), g.databaseName(cmd, conn.databaseName))
			if err != nil {
				return err
			}
			ref, err := ingest.NewTableService(exec, g.logger).CreateExternalTable(ctx, schema, s3URL, creds)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{"status": "created", "table": ref.Name, "kind": string(ref.Kind)})
			}
			_, _ = fmt.Fprintf(os.Stdout, "External table (%s) was successfully created\n", ref.Name)
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "Table definition YAML file")
	cmd.Flags().StringVar(&s3URL, "s3-url", "", "Source location, e.g. s3://bucket/prefix/")
	cmd.Flags().BoolVar(&checkSource, "check-source", false, "List the source location and fail when no file matches object_pattern")
	cmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint override for --check-source")
	cmd.Flags().StringVar(&s3Region, "s3-region", awscreds.DefaultRegion, "S3 region for --check-source")
	_ = cmd.Flags().MarkHidden("s3-endpoint")
	_ = cmd.Flags().MarkHidden("s3-region")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("s3-url")

	return cmd
}

func newTableCreateFactCmd(g *globalOptions) *cobra.Command {
	var (
		conn         connectionFlags
		file         string
		fileMetadata bool
	)

	cmd := &cobra.Command{
		Use:   "create-fact",
		Short: "Create a fact table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := tableschema.LoadFile(file)
			if err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()

			exec, err := g.executor(ctx, g.engineName(cmd, conn.engineName), g.databaseName(cmd, conn.databaseName))
			if err != nil {
				return err
			}
			ref, err := ingest.NewTableService(exec, g.logger).CreateFactTable(ctx, schema, fileMetadata)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]any{
					"status":        "created",
					"table":         ref.Name,
					"kind":          string(ref.Kind),
					"file_metadata": ref.HasFileMetadata,
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Fact table (%s) was successfully created\n", ref.Name)
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "Table definition YAML file")
	cmd.Flags().BoolVar(&fileMetadata, "add-file-metadata", true,
		"Add "+domain.SourceFileNameColumn+" and "+domain.SourceFileTimestampColumn+" columns, required for append ingestion")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newTableInferCmd() *cobra.Command {
	var (
		parquetPath string
		tableName   string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Write a table definition inferred from a local Parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := tableschema.InferFromParquet(parquetPath, tableName)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" && out == "" {
				return printJSON(os.Stdout, schema)
			}
			data, err := tableschema.Marshal(schema)
			if err != nil {
				return err
			}
			if out == "" {
				_, _ = os.Stdout.Write(data)
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec // user-chosen output file
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, _ = fmt.Fprintf(os.Stdout, "Table definition for %s (%d columns) written to %s\n",
				schema.TableName, len(schema.Columns), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&parquetPath, "parquet", "", "Local Parquet file to read the schema from")
	cmd.Flags().StringVar(&tableName, "table-name", "", "Table name; defaults to the file name")
	cmd.Flags().StringVarP(&out, "out", "f", "", "Write the definition to this file instead of stdout")
	_ = cmd.MarkFlagRequired("parquet")

	return cmd
}

// joinWarnings renders warnings one per line with a prefix.
func joinWarnings(warnings []string) string {
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString("Warning: ")
		b.WriteString(w)
		b.WriteString("\n")
	}
	return b.String()
}
