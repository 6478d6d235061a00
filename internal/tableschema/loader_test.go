package tableschema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

const eventsDoc = `
table_name: events
columns:
  - name: id
    type: bigint
  - name: ts
    alias: event_time
    type: timestamp
  - name: payload
    type: text null
file_type: parquet
object_pattern:
  - "*.parquet"
  - "2022/*.parquet"
primary_index:
  - id
  - event_time
partitions:
  - column: ts
    datetime_part: month
`

func TestLoad_Valid(t *testing.T) {
	schema, err := Load([]byte(eventsDoc))
	require.NoError(t, err)

	assert.Equal(t, "events", schema.TableName)
	assert.Equal(t, "ex_events", schema.ExternalTableName())
	assert.Equal(t, domain.FileTypeParquet, schema.FileType)
	assert.Equal(t, []string{"*.parquet", "2022/*.parquet"}, schema.ObjectPattern)
	require.Len(t, schema.Columns, 3)
	assert.Equal(t, "BIGINT", schema.Columns[0].Type)
	assert.Equal(t, "event_time", schema.Columns[1].FactName())
	assert.Equal(t, "TEXT NULL", schema.Columns[2].Type)

	// Every primary index entry resolves to a name or alias.
	allowed := map[string]bool{}
	for _, c := range schema.Columns {
		allowed[c.Name] = true
		if c.Alias != "" {
			allowed[c.Alias] = true
		}
	}
	for _, pi := range schema.PrimaryIndex {
		assert.True(t, allowed[pi], "primary index entry %q", pi)
	}
	assert.Equal(t, []string{"id", "event_time"}, schema.PrimaryIndex)
	assert.Equal(t, []domain.Partition{{Column: "event_time", DatetimePart: "MONTH"}}, schema.Partitions)
}

func TestLoad_ScalarObjectPattern(t *testing.T) {
	schema, err := Load([]byte(`
table_name: logs
columns: [{name: line, type: text}]
file_type: csv
object_pattern: "*.csv.gz"
compression: gzip
csv_skip_header_row: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"*.csv.gz"}, schema.ObjectPattern)
	assert.Equal(t, "GZIP", schema.Compression)
	assert.True(t, schema.CSVSkipHeaderRow)
	assert.Empty(t, schema.PrimaryIndex)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing_file_type",
			doc:       "table_name: t\ncolumns: [{name: a, type: int}]\nobject_pattern: ['*']\n",
			wantField: "file_type",
			wantMsg:   "required",
		},
		{
			name:      "missing_table_name",
			doc:       "columns: [{name: a, type: int}]\nfile_type: csv\nobject_pattern: ['*']\n",
			wantField: "table_name",
		},
		{
			name:      "missing_columns",
			doc:       "table_name: t\nfile_type: csv\nobject_pattern: ['*']\n",
			wantField: "columns",
		},
		{
			name:      "missing_object_pattern",
			doc:       "table_name: t\ncolumns: [{name: a, type: int}]\nfile_type: csv\n",
			wantField: "object_pattern",
		},
		{
			name:      "unknown_file_type",
			doc:       "table_name: t\ncolumns: [{name: a, type: int}]\nfile_type: xlsx\nobject_pattern: ['*']\n",
			wantField: "file_type",
			wantMsg:   "unsupported file type",
		},
		{
			name:      "unresolved_primary_index",
			doc:       "table_name: t\ncolumns: [{name: a, alias: b, type: int}]\nfile_type: csv\nobject_pattern: ['*']\nprimary_index: [c]\n",
			wantField: "primary_index[0]",
			wantMsg:   "does not reference",
		},
		{
			name:      "unsupported_type",
			doc:       "table_name: t\ncolumns: [{name: a, type: hugeint}]\nfile_type: csv\nobject_pattern: ['*']\n",
			wantField: "columns[0].type",
			wantMsg:   "not supported",
		},
		{
			name:      "invalid_identifier",
			doc:       "table_name: my-table\ncolumns: [{name: a, type: int}]\nfile_type: csv\nobject_pattern: ['*']\n",
			wantField: "table_name",
		},
		{
			name:      "duplicate_fact_name",
			doc:       "table_name: t\ncolumns: [{name: a, type: int}, {name: b, alias: a, type: int}]\nfile_type: csv\nobject_pattern: ['*']\n",
			wantField: "columns[1]",
			wantMsg:   "duplicate",
		},
		{
			name:      "reserved_metadata_column",
			doc:       "table_name: t\ncolumns: [{name: source_file_name, type: text}]\nfile_type: csv\nobject_pattern: ['*']\n",
			wantField: "columns[0]",
			wantMsg:   "reserved",
		},
		{
			name:    "unknown_field",
			doc:     "table_name: t\ncolumns: [{name: a, type: int}]\nfile_type: csv\nobject_pattern: ['*']\nprimary_key: [a]\n",
			wantMsg: "primary_key",
		},
		{
			name:    "empty_document",
			doc:     "",
			wantMsg: "document is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, schema)

			var se *domain.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantField, se.Field)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(eventsDoc), 0o600))

	schema, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "events", schema.TableName)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ")
}
