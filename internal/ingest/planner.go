package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/firebolt-db/firebolt-cli/internal/ddl"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// Ingestor plans and runs external-to-fact ingestion against one executor.
type Ingestor struct {
	exec   domain.Executor
	logger *slog.Logger
}

// NewIngestor creates a new Ingestor.
func NewIngestor(exec domain.Executor, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{exec: exec, logger: logger}
}

// Ingest plans and executes one ingestion run.
// A nil result is returned only when planning fails.
func (g *Ingestor) Ingest(
	ctx context.Context,
	mode domain.IngestionMode,
	externalTable, factTable string,
	mapping *domain.TableSchema,
) (*domain.IngestionResult, error) {
	plan, err := g.Plan(ctx, mode, externalTable, factTable, mapping)
	if err != nil {
		return nil, err
	}
	return g.Execute(ctx, plan)
}

// Plan reads table layouts and, in append mode, the file manifest, and decides what to ingest.
// It issues read-only statements only.
func (g *Ingestor) Plan(
	ctx context.Context,
	mode domain.IngestionMode,
	externalTable, factTable string,
	mapping *domain.TableSchema,
) (*domain.IngestionPlan, error) {
	if _, err := domain.ParseIngestionMode(string(mode)); err != nil {
		return nil, err
	}
	for _, name := range []string{externalTable, factTable} {
		if err := ddl.ValidateIdentifier(name); err != nil {
			return nil, domain.ErrValidation("invalid table name %q: %v", name, err)
		}
	}

	factCols, err := listColumns(ctx, g.exec, factTable)
	if err != nil {
		return nil, err
	}
	if len(factCols) == 0 {
		return nil, domain.ErrPlan("fact table %q does not exist or has no columns", factTable)
	}
	extCols, err := listColumns(ctx, g.exec, externalTable)
	if err != nil {
		return nil, err
	}
	if len(extCols) == 0 {
		return nil, domain.ErrPlan("external table %q does not exist or has no columns", externalTable)
	}

	hasMetadata := containsFold(factCols, domain.SourceFileNameColumn) &&
		containsFold(factCols, domain.SourceFileTimestampColumn)
	if mode == domain.ModeAppend && !hasMetadata {
		return nil, domain.ErrPlan("append mode requires columns %s and %s in fact table %q; recreate it with file metadata or use --mode overwrite",
			domain.SourceFileNameColumn, domain.SourceFileTimestampColumn, factTable)
	}

	columns, err := mapColumns(factTable, factCols, externalTable, extCols, mapping)
	if err != nil {
		return nil, err
	}
	if hasMetadata {
		columns = append(columns,
			domain.ColumnMapping{Fact: domain.SourceFileNameColumn, Source: domain.SourceFileNameColumn},
			domain.ColumnMapping{Fact: domain.SourceFileTimestampColumn, Source: domain.SourceFileTimestampColumn},
		)
	}

	plan := &domain.IngestionPlan{
		Mode:     mode,
		External: domain.TableRef{Name: externalTable, Kind: domain.TableKindExternal, HasFileMetadata: true},
		Fact:     domain.TableRef{Name: factTable, Kind: domain.TableKindFact, HasFileMetadata: hasMetadata},
		Columns:  columns,
	}

	if mode == domain.ModeOverwrite {
		plan.FullReingest = true
		return plan, nil
	}

	if err := g.planAppend(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// planAppend selects manifest entries strictly newer than the fact table watermark.
func (g *Ingestor) planAppend(ctx context.Context, plan *domain.IngestionPlan) error {
	wm, err := readWatermark(ctx, g.exec, plan.Fact.Name)
	if err != nil {
		return err
	}
	manifest, err := readManifest(ctx, g.exec, plan.External.Name)
	if err != nil {
		return err
	}
	plan.Watermark = wm
	plan.ManifestFiles = len(manifest)

	for _, e := range manifest {
		if wm == nil || wm.Before(e) {
			plan.Files = append(plan.Files, e)
			continue
		}
		if e.Name == wm.Name && e.Timestamp.Equal(wm.Timestamp) {
			msg := fmt.Sprintf("file %q has the same name and timestamp as the last ingested file and is skipped; "+
				"files rewritten in place are only picked up by --mode overwrite", e.Name)
			plan.Warnings = append(plan.Warnings, msg)
			g.logger.Warn("append watermark gap", "file", e.Name, "timestamp", e.Timestamp)
		}
	}
	sort.Slice(plan.Files, func(i, j int) bool {
		a, b := plan.Files[i], plan.Files[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Name < b.Name
	})

	g.logger.Debug("append plan",
		"fact", plan.Fact.Name, "manifest_files", plan.ManifestFiles, "new_files", len(plan.Files))
	return nil
}

// mapColumns pairs every non-metadata fact column with its external source column.
func mapColumns(
	factTable string, factCols []string,
	externalTable string, extCols []string,
	mapping *domain.TableSchema,
) ([]domain.ColumnMapping, error) {
	var out []domain.ColumnMapping

	if mapping != nil {
		for _, c := range mapping.Columns {
			if !containsFold(factCols, c.FactName()) {
				return nil, domain.ErrPlan("column %q is not present in fact table %q", c.FactName(), factTable)
			}
			if !containsFold(extCols, c.Name) {
				return nil, domain.ErrPlan("column %q is not present in external table %q", c.Name, externalTable)
			}
			out = append(out, domain.ColumnMapping{Fact: c.FactName(), Source: c.Name})
		}
		return out, nil
	}

	var missing []string
	for _, c := range factCols {
		if isMetadataColumn(c) {
			continue
		}
		if !containsFold(extCols, c) {
			missing = append(missing, c)
			continue
		}
		out = append(out, domain.ColumnMapping{Fact: c, Source: c})
	}
	if len(missing) > 0 {
		return nil, domain.ErrPlan("fact table %q columns %s are not present in external table %q; pass --file with aliases",
			factTable, strings.Join(missing, ", "), externalTable)
	}
	if len(out) == 0 {
		return nil, domain.ErrPlan("fact table %q has no data columns", factTable)
	}
	return out, nil
}

func isMetadataColumn(name string) bool {
	return strings.EqualFold(name, domain.SourceFileNameColumn) ||
		strings.EqualFold(name, domain.SourceFileTimestampColumn)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
