package domain

import "strings"

// FileType is the storage format of the files behind an external table.
type FileType string

// Supported file types.
const (
	FileTypeParquet FileType = "PARQUET"
	FileTypeCSV     FileType = "CSV"
	FileTypeTSV     FileType = "TSV"
	FileTypeJSON    FileType = "JSON"
	FileTypeORC     FileType = "ORC"
	FileTypeAvro    FileType = "AVRO"
)

// Metadata columns exposed by external tables and tracked by fact tables
// created with file metadata.
const (
	SourceFileNameColumn      = "source_file_name"
	SourceFileTimestampColumn = "source_file_timestamp"
)

// ExternalTablePrefix is prepended to the fact table name to name its external table.
const ExternalTablePrefix = "ex_"

// Column describes a single column of a table definition.
type Column struct {
	Name     string `yaml:"name" json:"name"`
	Alias    string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Type     string `yaml:"type" json:"type"`
	Nullable *bool  `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// FactName returns the column name used in the fact table.
func (c Column) FactName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// Partition describes a PARTITION BY entry of a fact table.
type Partition struct {
	Column       string `yaml:"column" json:"column"`
	DatetimePart string `yaml:"datetime_part,omitempty" json:"datetime_part,omitempty"`
}

// TableSchema is the parsed, validated, immutable table definition.
type TableSchema struct {
	TableName        string      `yaml:"table_name" json:"table_name"`
	Columns          []Column    `yaml:"columns" json:"columns"`
	FileType         FileType    `yaml:"file_type" json:"file_type"`
	ObjectPattern    []string    `yaml:"object_pattern" json:"object_pattern"`
	PrimaryIndex     []string    `yaml:"primary_index,omitempty" json:"primary_index,omitempty"`
	Partitions       []Partition `yaml:"partitions,omitempty" json:"partitions,omitempty"`
	Compression      string      `yaml:"compression,omitempty" json:"compression,omitempty"`
	CSVSkipHeaderRow bool        `yaml:"csv_skip_header_row,omitempty" json:"csv_skip_header_row,omitempty"`
}

// ExternalTableName returns the name of the external table staging this schema.
func (s *TableSchema) ExternalTableName() string {
	return ExternalTablePrefix + s.TableName
}

// ResolveColumn finds a column by fact name (alias) or source name.
func (s *TableSchema) ResolveColumn(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Alias != "" && strings.EqualFold(c.Alias, name) {
			return c, true
		}
	}
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// TableKind distinguishes external from fact tables.
type TableKind string

// Table kinds.
const (
	TableKindExternal TableKind = "external"
	TableKindFact     TableKind = "fact"
)

// TableRef identifies a table the core created or inspected.
type TableRef struct {
	Name            string
	Kind            TableKind
	HasFileMetadata bool
}

// AWSKeySecret is a static access key pair for source bucket access.
type AWSKeySecret struct {
	KeyID     string
	SecretKey string
}

// AWSRole is an assumable role for source bucket access.
type AWSRole struct {
	RoleARN    string
	ExternalID string
}

// AWSCredentials holds exactly one of KeySecret or Role.
type AWSCredentials struct {
	KeySecret *AWSKeySecret
	Role      *AWSRole
}
