package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/tableschema"
)

func newTableValidateCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate table definition files offline",
		Long:  "Reads table definition YAML files and checks them for errors without contacting the engine.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				errMsgs []string
				tables  []string
			)
			for _, f := range files {
				schema, err := tableschema.LoadFile(f)
				if err != nil {
					errMsgs = append(errMsgs, fmt.Sprintf("%s: %v", f, err))
					continue
				}
				tables = append(tables, schema.TableName)
			}

			if getOutputFormat(cmd) == "json" {
				if err := printJSON(os.Stdout, map[string]interface{}{
					"valid":  len(errMsgs) == 0,
					"tables": tables,
					"errors": errMsgs,
				}); err != nil {
					return err
				}
			} else if len(errMsgs) > 0 {
				fmt.Fprintf(os.Stderr, "Found %d invalid table definition(s):\n", len(errMsgs))
				for _, msg := range errMsgs {
					fmt.Fprintf(os.Stderr, "  - %s\n", msg)
				}
			} else {
				_, _ = fmt.Fprintf(os.Stdout, "%d table definition(s) are valid.\n", len(tables))
			}

			if len(errMsgs) > 0 {
				return &exitError{code: domain.ExitFailure, msg: "invalid table definitions"}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&files, "file", nil, "Table definition YAML file (repeatable)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
