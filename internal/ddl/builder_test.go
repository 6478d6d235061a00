package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExternalTable(t *testing.T) {
	cols := []ColumnDef{{Name: "id", Type: "INT"}, {Name: "name", Type: "text"}}

	tests := []struct {
		name    string
		table   string
		columns []ColumnDef
		opts    ExternalOptions
		want    string
		wantErr string
	}{
		{
			name:    "parquet_no_credentials",
			table:   "ex_events",
			columns: cols,
			opts: ExternalOptions{
				URL:            "s3://bucket/events/",
				ObjectPatterns: []string{"*.parquet"},
				FileType:       "PARQUET",
			},
			want: `CREATE EXTERNAL TABLE "ex_events" ("id" INT, "name" TEXT)
URL = 's3://bucket/events/'
OBJECT_PATTERN = '*.parquet'
TYPE = (PARQUET)`,
		},
		{
			name:    "key_secret_csv_with_header_and_gzip",
			table:   "ex_events",
			columns: cols,
			opts: ExternalOptions{
				URL:            "s3://bucket/events/",
				ObjectPatterns: []string{"*.csv.gz", "2022/*.csv.gz"},
				FileType:       "csv",
				Compression:    "gzip",
				SkipHeaderRows: true,
				Credentials:    &Credentials{KeyID: "AKIA", SecretKey: "s'cret"},
			},
			want: `CREATE EXTERNAL TABLE "ex_events" ("id" INT, "name" TEXT)
CREDENTIALS = (AWS_KEY_ID = 'AKIA' AWS_SECRET_KEY = 's''cret')
URL = 's3://bucket/events/'
OBJECT_PATTERN = '*.csv.gz', '2022/*.csv.gz'
TYPE = (CSV SKIP_HEADER_ROWS = 1)
COMPRESSION = GZIP`,
		},
		{
			name:    "role_with_external_id",
			table:   "ex_events",
			columns: cols,
			opts: ExternalOptions{
				URL:            "s3://bucket/",
				ObjectPatterns: []string{"*"},
				FileType:       "JSON",
				Credentials:    &Credentials{RoleARN: "arn:aws:iam::1:role/r", ExternalID: "ext"},
			},
			want: `CREATE EXTERNAL TABLE "ex_events" ("id" INT, "name" TEXT)
CREDENTIALS = (AWS_ROLE_ARN = 'arn:aws:iam::1:role/r' AWS_ROLE_EXTERNAL_ID = 'ext')
URL = 's3://bucket/'
OBJECT_PATTERN = '*'
TYPE = (JSON)`,
		},
		{
			name:    "missing_url",
			table:   "ex_events",
			columns: cols,
			opts:    ExternalOptions{ObjectPatterns: []string{"*"}, FileType: "CSV"},
			wantErr: "source URL is required",
		},
		{
			name:    "no_patterns",
			table:   "ex_events",
			columns: cols,
			opts:    ExternalOptions{URL: "s3://b/", FileType: "CSV"},
			wantErr: "at least one object pattern",
		},
		{
			name:    "unsupported_compression",
			table:   "ex_events",
			columns: cols,
			opts:    ExternalOptions{URL: "s3://b/", ObjectPatterns: []string{"*"}, FileType: "CSV", Compression: "zstd"},
			wantErr: "unsupported compression",
		},
		{
			name:    "bad_table_name",
			table:   "ex-events",
			columns: cols,
			wantErr: "invalid table name",
		},
		{
			name:    "no_columns",
			table:   "ex_events",
			opts:    ExternalOptions{URL: "s3://b/", ObjectPatterns: []string{"*"}, FileType: "CSV"},
			wantErr: "at least one column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateExternalTable(tt.table, tt.columns, tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateFactTable(t *testing.T) {
	cols := []ColumnDef{
		{Name: "event_id", Type: "BIGINT"},
		{Name: "event_time", Type: "TIMESTAMP"},
		{Name: "source_file_name", Type: "TEXT"},
		{Name: "source_file_timestamp", Type: "TIMESTAMP"},
	}

	got, err := CreateFactTable("events", cols, []string{"event_id"}, []PartitionDef{
		{Column: "event_time", DatetimePart: "month"},
	})
	require.NoError(t, err)
	assert.Equal(t, `CREATE FACT TABLE "events" ("event_id" BIGINT, "event_time" TIMESTAMP, "source_file_name" TEXT, "source_file_timestamp" TIMESTAMP)
PRIMARY INDEX "event_id"
PARTITION BY EXTRACT(MONTH FROM "event_time")`, got)

	t.Run("plain_partition_and_no_index", func(t *testing.T) {
		got, err := CreateFactTable("events", cols[:2], nil, []PartitionDef{{Column: "event_id"}})
		require.NoError(t, err)
		assert.Equal(t, `CREATE FACT TABLE "events" ("event_id" BIGINT, "event_time" TIMESTAMP)
PARTITION BY "event_id"`, got)
	})

	t.Run("bad_datetime_part", func(t *testing.T) {
		_, err := CreateFactTable("events", cols, nil, []PartitionDef{{Column: "event_time", DatetimePart: "fortnight"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported datetime part")
	})

	t.Run("bad_column_type", func(t *testing.T) {
		_, err := CreateFactTable("events", []ColumnDef{{Name: "x", Type: "BLOB"}}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid column type for "x"`)
	})
}

func TestInsertSelect(t *testing.T) {
	got, err := InsertSelect("events", []string{"id", "label"}, "ex_events", []string{"id", "name"},
		InList("source_file_name", []string{"a.parquet", "b'c.parquet"}))
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "events" ("id", "label") SELECT "id", "name" FROM "ex_events" WHERE "source_file_name" IN ('a.parquet', 'b''c.parquet')`,
		got)

	_, err = InsertSelect("events", []string{"id"}, "ex_events", nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equal length")
}

func TestTruncateTable(t *testing.T) {
	got, err := TruncateTable("events")
	require.NoError(t, err)
	assert.Equal(t, `TRUNCATE TABLE "events"`, got)

	_, err = TruncateTable("")
	require.Error(t, err)
}

func TestQueries(t *testing.T) {
	assert.Equal(t, `SELECT COUNT(*) FROM "events"`, CountRows("events", ""))
	assert.Equal(t,
		`SELECT COUNT(*), COUNT(DISTINCT "source_file_name") FROM "ex_events" WHERE "source_file_name" IN ('a')`,
		CountRowsAndFiles("ex_events", "source_file_name", InList("source_file_name", []string{"a"})))
	assert.Equal(t,
		`SELECT column_name FROM information_schema.columns WHERE table_name = 'events' ORDER BY ordinal_position`,
		ListColumns("events"))
	assert.Equal(t,
		`SELECT "source_file_timestamp", "source_file_name" FROM "events" WHERE "source_file_timestamp" IS NOT NULL AND "source_file_name" IS NOT NULL ORDER BY "source_file_timestamp" DESC, "source_file_name" DESC LIMIT 1`,
		LatestFile("events", "source_file_name", "source_file_timestamp"))
	assert.Equal(t,
		`SELECT "source_file_name", MAX("source_file_timestamp"), COUNT(*) FROM "ex_events" GROUP BY "source_file_name" ORDER BY "source_file_name"`,
		FileManifest("ex_events", "source_file_name", "source_file_timestamp"))
}
