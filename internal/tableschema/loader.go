// Package tableschema loads and validates declarative table definitions.
package tableschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/firebolt-db/firebolt-cli/internal/ddl"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

var fileTypes = map[domain.FileType]bool{
	domain.FileTypeParquet: true,
	domain.FileTypeCSV:     true,
	domain.FileTypeTSV:     true,
	domain.FileTypeJSON:    true,
	domain.FileTypeORC:     true,
	domain.FileTypeAvro:    true,
}

// document mirrors the YAML layout; pointers distinguish missing from empty.
type document struct {
	TableName        *string            `yaml:"table_name"`
	Columns          []domain.Column    `yaml:"columns"`
	FileType         *string            `yaml:"file_type"`
	ObjectPattern    objectPatterns     `yaml:"object_pattern"`
	PrimaryIndex     []string           `yaml:"primary_index"`
	Partitions       []domain.Partition `yaml:"partitions"`
	Compression      string             `yaml:"compression"`
	CSVSkipHeaderRow bool               `yaml:"csv_skip_header_row"`
}

// objectPatterns accepts either a single string or a list of strings.
type objectPatterns []string

func (p *objectPatterns) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*p = objectPatterns{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*p = list
	return nil
}

// Load parses and validates a table definition document.
func Load(data []byte) (*domain.TableSchema, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrSchema("", "document is empty")
		}
		return nil, domain.ErrSchema("", "parse: %v", err)
	}
	return validate(&doc)
}

// LoadFile reads and parses a table definition from path.
func LoadFile(path string) (*domain.TableSchema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified config files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Load(data)
}

func validate(doc *document) (*domain.TableSchema, error) {
	if doc.TableName == nil || *doc.TableName == "" {
		return nil, domain.ErrSchema("table_name", "field is required")
	}
	if err := ddl.ValidateIdentifier(*doc.TableName); err != nil {
		return nil, domain.ErrSchema("table_name", "%v", err)
	}
	if len(doc.Columns) == 0 {
		return nil, domain.ErrSchema("columns", "at least one column is required")
	}
	if doc.FileType == nil || *doc.FileType == "" {
		return nil, domain.ErrSchema("file_type", "field is required")
	}
	fileType := domain.FileType(strings.ToUpper(*doc.FileType))
	if !fileTypes[fileType] {
		return nil, domain.ErrSchema("file_type", "unsupported file type %q", *doc.FileType)
	}
	if len(doc.ObjectPattern) == 0 {
		return nil, domain.ErrSchema("object_pattern", "at least one pattern is required")
	}
	for i, p := range doc.ObjectPattern {
		if strings.TrimSpace(p) == "" {
			return nil, domain.ErrSchema(fmt.Sprintf("object_pattern[%d]", i), "pattern must not be empty")
		}
	}

	schema := &domain.TableSchema{
		TableName:        *doc.TableName,
		FileType:         fileType,
		ObjectPattern:    append([]string(nil), doc.ObjectPattern...),
		Compression:      strings.ToUpper(doc.Compression),
		CSVSkipHeaderRow: doc.CSVSkipHeaderRow,
	}

	sourceNames := map[string]bool{}
	factNames := map[string]bool{}
	for i, c := range doc.Columns {
		field := fmt.Sprintf("columns[%d]", i)
		if err := ddl.ValidateIdentifier(c.Name); err != nil {
			return nil, domain.ErrSchema(field+".name", "%v", err)
		}
		if c.Alias != "" {
			if err := ddl.ValidateIdentifier(c.Alias); err != nil {
				return nil, domain.ErrSchema(field+".alias", "%v", err)
			}
		}
		typ, err := ddl.NormalizeColumnType(c.Type)
		if err != nil {
			return nil, domain.ErrSchema(field+".type", "%v", err)
		}
		if isMetadataColumn(c.FactName()) {
			return nil, domain.ErrSchema(field, "column name %q is reserved for file metadata", c.FactName())
		}
		src := strings.ToLower(c.Name)
		if sourceNames[src] {
			return nil, domain.ErrSchema(field+".name", "duplicate column %q", c.Name)
		}
		sourceNames[src] = true
		fact := strings.ToLower(c.FactName())
		if factNames[fact] {
			return nil, domain.ErrSchema(field, "duplicate fact column %q", c.FactName())
		}
		factNames[fact] = true

		c.Type = typ
		schema.Columns = append(schema.Columns, c)
	}

	for i, name := range doc.PrimaryIndex {
		col, ok := schema.ResolveColumn(name)
		if !ok {
			return nil, domain.ErrSchema(fmt.Sprintf("primary_index[%d]", i),
				"%q does not reference a declared column or alias", name)
		}
		schema.PrimaryIndex = append(schema.PrimaryIndex, col.FactName())
	}

	for i, p := range doc.Partitions {
		col, ok := schema.ResolveColumn(p.Column)
		if !ok {
			return nil, domain.ErrSchema(fmt.Sprintf("partitions[%d]", i),
				"%q does not reference a declared column or alias", p.Column)
		}
		schema.Partitions = append(schema.Partitions, domain.Partition{
			Column:       col.FactName(),
			DatetimePart: strings.ToUpper(p.DatetimePart),
		})
	}

	return schema, nil
}

func isMetadataColumn(name string) bool {
	return strings.EqualFold(name, domain.SourceFileNameColumn) ||
		strings.EqualFold(name, domain.SourceFileTimestampColumn)
}
