package tableschema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/firebolt-db/firebolt-cli/internal/ddl"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// InferFromParquet builds a table definition from the schema of a local Parquet file.
// The object pattern defaults to every Parquet file under the source URL.
func InferFromParquet(path, tableName string) (*domain.TableSchema, error) {
	f, err := os.Open(path) //nolint:gosec // intentional: user-specified input file
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet footer %s: %w", path, err)
	}

	if tableName == "" {
		tableName = tableNameFromPath(path)
	}
	if err := ddl.ValidateIdentifier(tableName); err != nil {
		return nil, domain.ErrSchema("table_name", "%v", err)
	}

	schema := &domain.TableSchema{
		TableName:     tableName,
		FileType:      domain.FileTypeParquet,
		ObjectPattern: []string{"*.parquet"},
	}
	for _, field := range pf.Schema().Fields() {
		typ, err := columnType(field)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name(), err)
		}
		col := domain.Column{Name: field.Name(), Type: typ}
		if err := ddl.ValidateIdentifier(col.Name); err != nil {
			col.Alias = sanitizeIdentifier(col.Name)
			col.Name = sanitizeIdentifier(col.Name)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if len(schema.Columns) == 0 {
		return nil, domain.ErrSchema("columns", "parquet file %s has no columns", path)
	}
	return schema, nil
}

// Marshal renders a table definition as a YAML document accepted by Load.
func Marshal(schema *domain.TableSchema) ([]byte, error) {
	data, err := yaml.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal table definition: %w", err)
	}
	return data, nil
}

func columnType(node parquet.Node) (string, error) {
	if node.Repeated() {
		inner, err := leafType(node)
		if err != nil {
			return "", err
		}
		return "ARRAY(" + inner + ")", nil
	}
	if !node.Leaf() {
		// LIST logical type: group { repeated group list { element } }.
		if lt := node.Type().LogicalType(); lt != nil && lt.List != nil {
			fields := node.Fields()
			if len(fields) == 1 && len(fields[0].Fields()) == 1 {
				inner, err := columnType(fields[0].Fields()[0])
				if err != nil {
					return "", err
				}
				return "ARRAY(" + inner + ")", nil
			}
		}
		return "", fmt.Errorf("nested groups are not supported")
	}
	return leafType(node)
}

func leafType(node parquet.Node) (string, error) {
	if !node.Leaf() {
		return "", fmt.Errorf("nested groups are not supported")
	}
	t := node.Type()
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.Decimal != nil:
			return fmt.Sprintf("DECIMAL(%d, %d)", lt.Decimal.Precision, lt.Decimal.Scale), nil
		case lt.Date != nil:
			return "DATE", nil
		case lt.Timestamp != nil:
			return "TIMESTAMP", nil
		case lt.UTF8 != nil, lt.Json != nil, lt.Enum != nil, lt.UUID != nil:
			return "TEXT", nil
		}
	}
	switch t.Kind() {
	case parquet.Boolean:
		return "BOOLEAN", nil
	case parquet.Int32:
		return "INT", nil
	case parquet.Int64:
		return "BIGINT", nil
	case parquet.Int96:
		return "TIMESTAMP", nil
	case parquet.Float:
		return "REAL", nil
	case parquet.Double:
		return "DOUBLE", nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("unsupported parquet type %s", t)
	}
}

func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	return sanitizeIdentifier(strings.TrimSuffix(base, filepath.Ext(base)))
}

// sanitizeIdentifier replaces characters outside [a-zA-Z0-9_] and guards a leading digit.
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "_" + out
	}
	return out
}
