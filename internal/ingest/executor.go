package ingest

import (
	"context"
	"fmt"

	"github.com/firebolt-db/firebolt-cli/internal/ddl"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/sqltext"
)

// Execute issues the ingest statements for plan, then cross-checks row and file counts.
// A failed statement stops the run: the Failure result is returned together with the error.
// Count mismatches are not errors; they yield a DiscrepancyWarning result.
func (g *Ingestor) Execute(ctx context.Context, plan *domain.IngestionPlan) (*domain.IngestionResult, error) {
	result := &domain.IngestionResult{
		Mode:          plan.Mode,
		ExternalTable: plan.External.Name,
		FactTable:     plan.Fact.Name,
		Files:         plan.FileNames(),
		Warnings:      plan.Warnings,
	}

	if plan.Empty() {
		result.Status = domain.StatusSuccess
		result.Message = fmt.Sprintf("No new files to ingest from '%s' to '%s'.", plan.External.Name, plan.Fact.Name)
		return result, nil
	}

	factCols := make([]string, len(plan.Columns))
	srcCols := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		factCols[i] = c.Fact
		srcCols[i] = c.Source
	}

	where := ""
	if !plan.FullReingest {
		where = ddl.InList(domain.SourceFileNameColumn, plan.FileNames())
	}

	var stmts []string
	if plan.FullReingest {
		truncate, err := ddl.TruncateTable(plan.Fact.Name)
		if err != nil {
			return fail(result, err)
		}
		stmts = append(stmts, truncate)
	}
	insert, err := ddl.InsertSelect(plan.Fact.Name, factCols, plan.External.Name, srcCols, where)
	if err != nil {
		return fail(result, err)
	}
	stmts = append(stmts, insert)

	for _, stmt := range stmts {
		g.logger.Debug("executing ingest statement", "sql", sqltext.FormatShort(stmt))
		if _, err := g.exec.Execute(ctx, stmt); err != nil {
			return fail(result, domain.WrapRemote(stmt, err))
		}
	}

	if err := g.validate(ctx, plan, where, result); err != nil {
		return fail(result, err)
	}
	return result, nil
}

// validate compares counts between the external and fact tables and classifies the result.
func (g *Ingestor) validate(ctx context.Context, plan *domain.IngestionPlan, where string, result *domain.IngestionResult) error {
	trackFiles := plan.Fact.HasFileMetadata
	count := func(table string) string {
		if trackFiles {
			return ddl.CountRowsAndFiles(table, domain.SourceFileNameColumn, where)
		}
		return ddl.CountRows(table, where)
	}

	src, err := readCounts(ctx, g.exec, count(plan.External.Name))
	if err != nil {
		return err
	}
	dst, err := readCounts(ctx, g.exec, count(plan.Fact.Name))
	if err != nil {
		return err
	}
	if len(src) == 0 || len(dst) == 0 {
		return domain.WrapRemote("", fmt.Errorf("count query returned no columns"))
	}

	result.SourceRows, result.DestRows = src[0], dst[0]
	if trackFiles && len(src) > 1 && len(dst) > 1 {
		result.SourceFiles, result.DestFiles = src[1], dst[1]
	}

	if result.SourceRows == result.DestRows && result.SourceFiles == result.DestFiles {
		result.Status = domain.StatusSuccess
		result.Message = domain.SuccessMessage(plan.External.Name, plan.Fact.Name)
		return nil
	}

	result.Status = domain.StatusDiscrepancyWarning
	if trackFiles {
		result.Message = fmt.Sprintf(
			"Ingestion from '%s' to '%s' finished with a discrepancy: source has %d rows in %d files, destination has %d rows in %d files (delta %d rows).",
			plan.External.Name, plan.Fact.Name,
			result.SourceRows, result.SourceFiles, result.DestRows, result.DestFiles,
			result.SourceRows-result.DestRows)
	} else {
		result.Message = fmt.Sprintf(
			"Ingestion from '%s' to '%s' finished with a discrepancy: source has %d rows, destination has %d rows (delta %d rows).",
			plan.External.Name, plan.Fact.Name, result.SourceRows, result.DestRows,
			result.SourceRows-result.DestRows)
	}
	if plan.Mode == domain.ModeAppend {
		result.Message += " Rerun with --mode overwrite to rebuild the fact table."
	}
	g.logger.Warn("ingestion count mismatch",
		"external", plan.External.Name, "fact", plan.Fact.Name,
		"source_rows", result.SourceRows, "destination_rows", result.DestRows)
	return nil
}

func fail(result *domain.IngestionResult, err error) (*domain.IngestionResult, error) {
	result.Status = domain.StatusFailure
	result.Message = err.Error()
	return result, err
}
