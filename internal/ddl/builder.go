// Package ddl builds the DDL and DML statements issued by the table provisioner and the
// ingestion core.
package ddl

import (
	"fmt"
	"strings"
)

// ColumnDef describes a column for CREATE TABLE.
type ColumnDef struct {
	Name string
	Type string
}

// PartitionDef describes one PARTITION BY expression.
type PartitionDef struct {
	Column       string
	DatetimePart string
}

// Credentials are the source bucket credentials embedded in an external table.
// Either KeyID/SecretKey or RoleARN (+ ExternalID) is set.
type Credentials struct {
	KeyID      string
	SecretKey  string
	RoleARN    string
	ExternalID string
}

// ExternalOptions configures CREATE EXTERNAL TABLE.
type ExternalOptions struct {
	URL            string
	ObjectPatterns []string
	FileType       string
	Compression    string
	SkipHeaderRows bool
	Credentials    *Credentials
}

var datetimeParts = map[string]bool{
	"YEAR":    true,
	"QUARTER": true,
	"MONTH":   true,
	"WEEK":    true,
	"DAY":     true,
	"HOUR":    true,
}

var compressions = map[string]bool{
	"GZIP": true,
}

func columnList(columns []ColumnDef) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}
	colDefs := make([]string, 0, len(columns))
	for _, c := range columns {
		if err := ValidateIdentifier(c.Name); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c.Name, err)
		}
		typ, err := NormalizeColumnType(c.Type)
		if err != nil {
			return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
		}
		colDefs = append(colDefs, fmt.Sprintf("%s %s", QuoteIdentifier(c.Name), typ))
	}
	return strings.Join(colDefs, ", "), nil
}

func quoteIdentifiers(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = QuoteIdentifier(n)
	}
	return out
}

func quoteLiterals(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = QuoteLiteral(v)
	}
	return out
}

// CreateExternalTable returns:
//
//	CREATE EXTERNAL TABLE "<table>" (<columns>)
//	[CREDENTIALS = (...)]
//	URL = '<url>'
//	OBJECT_PATTERN = '<p1>', '<p2>'
//	TYPE = (<file type> [SKIP_HEADER_ROWS = 1])
//	[COMPRESSION = <compression>]
func CreateExternalTable(table string, columns []ColumnDef, opts ExternalOptions) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	cols, err := columnList(columns)
	if err != nil {
		return "", err
	}
	if opts.URL == "" {
		return "", fmt.Errorf("source URL is required")
	}
	if len(opts.ObjectPatterns) == 0 {
		return "", fmt.Errorf("at least one object pattern is required")
	}
	if err := ValidateIdentifier(opts.FileType); err != nil {
		return "", fmt.Errorf("invalid file type: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE EXTERNAL TABLE %s (%s)", QuoteIdentifier(table), cols)
	if c := opts.Credentials; c != nil {
		switch {
		case c.RoleARN != "":
			fmt.Fprintf(&b, "\nCREDENTIALS = (AWS_ROLE_ARN = %s", QuoteLiteral(c.RoleARN))
			if c.ExternalID != "" {
				fmt.Fprintf(&b, " AWS_ROLE_EXTERNAL_ID = %s", QuoteLiteral(c.ExternalID))
			}
			b.WriteString(")")
		case c.KeyID != "":
			fmt.Fprintf(&b, "\nCREDENTIALS = (AWS_KEY_ID = %s AWS_SECRET_KEY = %s)",
				QuoteLiteral(c.KeyID), QuoteLiteral(c.SecretKey))
		}
	}
	fmt.Fprintf(&b, "\nURL = %s", QuoteLiteral(opts.URL))
	fmt.Fprintf(&b, "\nOBJECT_PATTERN = %s", strings.Join(quoteLiterals(opts.ObjectPatterns), ", "))
	fileType := strings.ToUpper(opts.FileType)
	if opts.SkipHeaderRows {
		fmt.Fprintf(&b, "\nTYPE = (%s SKIP_HEADER_ROWS = 1)", fileType)
	} else {
		fmt.Fprintf(&b, "\nTYPE = (%s)", fileType)
	}
	if opts.Compression != "" {
		comp := strings.ToUpper(opts.Compression)
		if !compressions[comp] {
			return "", fmt.Errorf("unsupported compression %q", opts.Compression)
		}
		fmt.Fprintf(&b, "\nCOMPRESSION = %s", comp)
	}
	return b.String(), nil
}

// CreateFactTable returns:
//
//	CREATE FACT TABLE "<table>" (<columns>)
//	[PRIMARY INDEX "<c1>", "<c2>"]
//	[PARTITION BY <expr>, ...]
func CreateFactTable(table string, columns []ColumnDef, primaryIndex []string, partitions []PartitionDef) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	cols, err := columnList(columns)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE FACT TABLE %s (%s)", QuoteIdentifier(table), cols)
	if len(primaryIndex) > 0 {
		for _, c := range primaryIndex {
			if err := ValidateIdentifier(c); err != nil {
				return "", fmt.Errorf("invalid primary index column %q: %w", c, err)
			}
		}
		fmt.Fprintf(&b, "\nPRIMARY INDEX %s", strings.Join(quoteIdentifiers(primaryIndex), ", "))
	}
	if len(partitions) > 0 {
		exprs := make([]string, 0, len(partitions))
		for _, p := range partitions {
			if err := ValidateIdentifier(p.Column); err != nil {
				return "", fmt.Errorf("invalid partition column %q: %w", p.Column, err)
			}
			if p.DatetimePart == "" {
				exprs = append(exprs, QuoteIdentifier(p.Column))
				continue
			}
			part := strings.ToUpper(p.DatetimePart)
			if !datetimeParts[part] {
				return "", fmt.Errorf("unsupported datetime part %q for partition column %q", p.DatetimePart, p.Column)
			}
			exprs = append(exprs, fmt.Sprintf("EXTRACT(%s FROM %s)", part, QuoteIdentifier(p.Column)))
		}
		fmt.Fprintf(&b, "\nPARTITION BY %s", strings.Join(exprs, ", "))
	}
	return b.String(), nil
}

// TruncateTable returns: TRUNCATE TABLE "<table>".
func TruncateTable(table string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return "TRUNCATE TABLE " + QuoteIdentifier(table), nil
}

// InsertSelect returns:
//
//	INSERT INTO "<target>" ("<t1>", ...) SELECT "<s1>", ... FROM "<source>" [WHERE <where>]
//
// targetColumns and sourceColumns are matched positionally.
func InsertSelect(target string, targetColumns []string, source string, sourceColumns []string, where string) (string, error) {
	if err := ValidateIdentifier(target); err != nil {
		return "", fmt.Errorf("invalid target table name: %w", err)
	}
	if err := ValidateIdentifier(source); err != nil {
		return "", fmt.Errorf("invalid source table name: %w", err)
	}
	if len(targetColumns) == 0 || len(targetColumns) != len(sourceColumns) {
		return "", fmt.Errorf("column lists must be non-empty and of equal length (got %d and %d)",
			len(targetColumns), len(sourceColumns))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		QuoteIdentifier(target),
		strings.Join(quoteIdentifiers(targetColumns), ", "),
		strings.Join(quoteIdentifiers(sourceColumns), ", "),
		QuoteIdentifier(source),
	)
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, nil
}

// InList returns: "<column>" IN ('<v1>', '<v2>', ...).
func InList(column string, values []string) string {
	return fmt.Sprintf("%s IN (%s)", QuoteIdentifier(column), strings.Join(quoteLiterals(values), ", "))
}

// CountRows returns: SELECT COUNT(*) FROM "<table>" [WHERE <where>].
func CountRows(table, where string) string {
	stmt := "SELECT COUNT(*) FROM " + QuoteIdentifier(table)
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt
}

// CountRowsAndFiles returns:
//
//	SELECT COUNT(*), COUNT(DISTINCT "<fileColumn>") FROM "<table>" [WHERE <where>]
func CountRowsAndFiles(table, fileColumn, where string) string {
	stmt := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT %s) FROM %s",
		QuoteIdentifier(fileColumn), QuoteIdentifier(table))
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt
}

// ListColumns returns the information_schema query listing a table's columns in order.
func ListColumns(table string) string {
	return fmt.Sprintf(
		"SELECT column_name FROM information_schema.columns WHERE table_name = %s ORDER BY ordinal_position",
		QuoteLiteral(table))
}

// LatestFile returns the query selecting the newest (timestamp, name) pair of a table.
// Rows without file metadata are ignored; engines sort NULL first under DESC.
func LatestFile(table, nameColumn, timestampColumn string) string {
	return fmt.Sprintf("SELECT %[2]s, %[3]s FROM %[1]s WHERE %[2]s IS NOT NULL AND %[3]s IS NOT NULL "+
		"ORDER BY %[2]s DESC, %[3]s DESC LIMIT 1",
		QuoteIdentifier(table), QuoteIdentifier(timestampColumn), QuoteIdentifier(nameColumn))
}

// FileManifest returns the query grouping a table's rows by source file:
//
//	SELECT "<name>", MAX("<ts>"), COUNT(*) FROM "<table>" GROUP BY "<name>"
func FileManifest(table, nameColumn, timestampColumn string) string {
	return fmt.Sprintf("SELECT %[2]s, MAX(%[3]s), COUNT(*) FROM %[1]s GROUP BY %[2]s ORDER BY %[2]s",
		QuoteIdentifier(table), QuoteIdentifier(nameColumn), QuoteIdentifier(timestampColumn))
}
