// Package ingest provisions external and fact tables and moves data between them.
package ingest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/firebolt-db/firebolt-cli/internal/ddl"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/sqltext"
)

// TableService issues the DDL that creates the tables described by a table definition.
type TableService struct {
	exec   domain.Executor
	logger *slog.Logger
}

// NewTableService creates a new TableService.
func NewTableService(exec domain.Executor, logger *slog.Logger) *TableService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableService{exec: exec, logger: logger}
}

// CreateExternalTable creates ex_<table_name> over the files at sourceURL.
// External columns use source names; aliases only apply to the fact table.
func (s *TableService) CreateExternalTable(
	ctx context.Context,
	schema *domain.TableSchema,
	sourceURL string,
	creds *domain.AWSCredentials,
) (domain.TableRef, error) {
	name := schema.ExternalTableName()
	cols := make([]ddl.ColumnDef, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = ddl.ColumnDef{Name: c.Name, Type: c.Type}
	}

	stmt, err := ddl.CreateExternalTable(name, cols, ddl.ExternalOptions{
		URL:            sourceURL,
		ObjectPatterns: schema.ObjectPattern,
		FileType:       string(schema.FileType),
		Compression:    schema.Compression,
		SkipHeaderRows: schema.CSVSkipHeaderRow,
		Credentials:    ddlCredentials(creds),
	})
	if err != nil {
		return domain.TableRef{}, domain.ErrValidation("build external table DDL: %v", err)
	}
	if err := s.run(ctx, stmt); err != nil {
		return domain.TableRef{}, err
	}
	return domain.TableRef{Name: name, Kind: domain.TableKindExternal, HasFileMetadata: true}, nil
}

// CreateFactTable creates the fact table, optionally tracking source file metadata.
func (s *TableService) CreateFactTable(
	ctx context.Context,
	schema *domain.TableSchema,
	includeFileMetadata bool,
) (domain.TableRef, error) {
	cols := make([]ddl.ColumnDef, 0, len(schema.Columns)+2)
	for _, c := range schema.Columns {
		cols = append(cols, ddl.ColumnDef{Name: c.FactName(), Type: withNullability(c)})
	}
	if includeFileMetadata {
		cols = append(cols,
			ddl.ColumnDef{Name: domain.SourceFileNameColumn, Type: "TEXT"},
			ddl.ColumnDef{Name: domain.SourceFileTimestampColumn, Type: "TIMESTAMP"},
		)
	}
	partitions := make([]ddl.PartitionDef, len(schema.Partitions))
	for i, p := range schema.Partitions {
		partitions[i] = ddl.PartitionDef{Column: p.Column, DatetimePart: p.DatetimePart}
	}

	stmt, err := ddl.CreateFactTable(schema.TableName, cols, schema.PrimaryIndex, partitions)
	if err != nil {
		return domain.TableRef{}, domain.ErrValidation("build fact table DDL: %v", err)
	}
	if err := s.run(ctx, stmt); err != nil {
		return domain.TableRef{}, err
	}
	return domain.TableRef{Name: schema.TableName, Kind: domain.TableKindFact, HasFileMetadata: includeFileMetadata}, nil
}

func (s *TableService) run(ctx context.Context, stmt string) error {
	s.logger.Debug("executing DDL", "sql", sqltext.FormatShort(stmt))
	if _, err := s.exec.Execute(ctx, stmt); err != nil {
		return domain.WrapRemote(stmt, err)
	}
	return nil
}

func ddlCredentials(creds *domain.AWSCredentials) *ddl.Credentials {
	switch {
	case creds == nil:
		return nil
	case creds.KeySecret != nil:
		return &ddl.Credentials{KeyID: creds.KeySecret.KeyID, SecretKey: creds.KeySecret.SecretKey}
	case creds.Role != nil:
		return &ddl.Credentials{RoleARN: creds.Role.RoleARN, ExternalID: creds.Role.ExternalID}
	default:
		return nil
	}
}

// withNullability applies the column's nullable flag unless its type already spells one out.
func withNullability(c domain.Column) string {
	if c.Nullable == nil || strings.HasSuffix(c.Type, " NULL") {
		return c.Type
	}
	if *c.Nullable {
		return c.Type + " NULL"
	}
	return c.Type + " NOT NULL"
}
