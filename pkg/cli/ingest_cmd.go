package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/ingest"
	"github.com/firebolt-db/firebolt-cli/internal/tableschema"
)

func newIngestCmd(g *globalOptions) *cobra.Command {
	var (
		conn         connectionFlags
		externalName string
		factName     string
		mode         string
		file         string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest data from an external table into a fact table",
		Long: "Move rows from an external table into a fact table and check that row and file counts match.\n\n" +
			"overwrite truncates the fact table and reloads every file. append loads only files newer than\n" +
			"the latest source_file_timestamp in the fact table; the fact table needs file metadata columns.\n\n" +
			"A failed overwrite can leave the fact table truncated or partially loaded; rerun the command\n" +
			"to rebuild it. Statements are not retried.\n\n" +
			"Exit code 3 means the data was loaded but the counts did not match.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("mode") {
				return domain.ErrUsage("--mode is required: use 'overwrite' or 'append'")
			}
			ingestionMode, err := domain.ParseIngestionMode(mode)
			if err != nil {
				return domain.ErrUsage("%v", err)
			}
			var mapping *domain.TableSchema
			if file != "" {
				if mapping, err = tableschema.LoadFile(file); err != nil {
					return err
				}
				if factName == "" {
					factName = mapping.TableName
				}
				if externalName == "" {
					externalName = mapping.ExternalTableName()
				}
			}
			if factName == "" || externalName == "" {
				return domain.ErrUsage("--external-table-name and --fact-table-name are required unless --file names the table")
			}

			ctx, cancel := g.context(cmd)
			defer cancel()

			exec, err := g.executor(ctx, g.engineName(cmd, conn.engineName), g.databaseName(cmd, conn.databaseName))
			if err != nil {
				return err
			}
			ingestor := ingest.NewIngestor(exec, g.logger)
			asJSON := getOutputFormat(cmd) == "json"

			plan, err := ingestor.Plan(ctx, ingestionMode, externalName, factName, mapping)
			if err != nil {
				return err
			}
			if dryRun {
				return printPlan(os.Stdout, plan, asJSON)
			}

			result, err := ingestor.Execute(ctx, plan)
			if err != nil {
				return err
			}
			if err := printIngestionResult(os.Stdout, result, asJSON); err != nil {
				return err
			}
			if code := result.ExitCode(); code != domain.ExitSuccess {
				return &exitError{code: code, msg: result.Message}
			}
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&externalName, "external-table-name", "", "Source external table")
	cmd.Flags().StringVar(&factName, "fact-table-name", "", "Destination fact table")
	cmd.Flags().StringVar(&mode, "mode", "", "Ingestion mode: overwrite or append (required)")
	cmd.Flags().StringVar(&file, "file", "", "Table definition YAML used to map fact columns to source columns")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the ingestion plan without changing any table")

	return cmd
}

func printIngestionResult(w io.Writer, r *domain.IngestionResult, asJSON bool) error {
	if asJSON {
		return printJSON(w, r)
	}
	_, _ = fmt.Fprint(w, joinWarnings(r.Warnings))
	_, _ = fmt.Fprintln(w, r.Message)
	if r.Status == domain.StatusSuccess && (r.SourceRows > 0 || r.DestRows > 0) {
		_, _ = fmt.Fprintf(w, "Rows: %s", convertNumHumanReadable(float64(r.DestRows)))
		if r.DestFiles > 0 {
			_, _ = fmt.Fprintf(w, ", files: %d", r.DestFiles)
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func printPlan(w io.Writer, plan *domain.IngestionPlan, asJSON bool) error {
	columns := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		if strings.EqualFold(c.Fact, c.Source) {
			columns[i] = c.Fact
		} else {
			columns[i] = c.Source + " -> " + c.Fact
		}
	}
	watermark := ""
	if plan.Watermark != nil {
		watermark = fmt.Sprintf("%s @ %s", plan.Watermark.Name, formatValue(plan.Watermark.Timestamp))
	}
	files := "all"
	if !plan.FullReingest {
		files = fmt.Sprintf("%d of %d", len(plan.Files), plan.ManifestFiles)
	}

	r := record{
		{"mode", string(plan.Mode)},
		{"external_table", plan.External.Name},
		{"fact_table", plan.Fact.Name},
		{"full_reingest", plan.FullReingest},
		{"columns", strings.Join(columns, ", ")},
		{"watermark", watermark},
		{"files", files},
	}
	if asJSON {
		r = append(r, field{"file_names", plan.FileNames()}, field{"warnings", plan.Warnings})
		return printRecord(w, r, true)
	}
	_, _ = fmt.Fprint(w, joinWarnings(plan.Warnings))
	if err := printRecord(w, r, false); err != nil {
		return err
	}
	if !plan.FullReingest && len(plan.Files) > 0 {
		records := make([]record, len(plan.Files))
		for i, f := range plan.Files {
			records[i] = record{{"file", f.Name}, {"timestamp", formatValue(f.Timestamp)}, {"rows", f.Rows}}
		}
		return printRecords(w, []string{"file", "timestamp", "rows"}, records, false)
	}
	return nil
}
