package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEngineSpec(t *testing.T) {
	tests := []struct {
		spec string
		want bool
	}{
		{"B2", true},
		{"b2", true},
		{"c5d.large", true},
		{"C5D.4XLARGE", true},
		{"B9", false},
		{"c5d", false},
		{"c5dlarge", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEngineSpec(tt.spec))
		})
	}
}

func TestEngineStatus(t *testing.T) {
	assert.True(t, EngineStatusRunning.OneOf(EngineStatusStarting, EngineStatusRunning))
	assert.False(t, EngineStatusStopped.OneOf(EngineStatusStarting, EngineStatusRunning))
	assert.False(t, EngineStatusStopped.OneOf())
	assert.Equal(t, "UNSPECIFIED", EngineStatus("").String())
	assert.Equal(t, "FAILED", EngineStatusFailed.String())
}

func TestEngineSettingsEmpty(t *testing.T) {
	assert.True(t, EngineSettings{Name: "etl", Database: "sales"}.Empty())
	scale := 2
	assert.False(t, EngineSettings{Scale: &scale}.Empty())
}

func TestParseIngestionMode(t *testing.T) {
	mode, err := ParseIngestionMode("append")
	require.NoError(t, err)
	assert.Equal(t, ModeAppend, mode)

	_, err = ParseIngestionMode("Append")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "'overwrite' or 'append'")
}

func TestWatermarkBefore(t *testing.T) {
	t0 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	wm := Watermark{Timestamp: t0, Name: "b.parquet"}

	assert.True(t, wm.Before(FileManifestEntry{Name: "a.parquet", Timestamp: t0.Add(time.Second)}))
	assert.True(t, wm.Before(FileManifestEntry{Name: "c.parquet", Timestamp: t0}))
	assert.False(t, wm.Before(FileManifestEntry{Name: "b.parquet", Timestamp: t0}))
	assert.False(t, wm.Before(FileManifestEntry{Name: "a.parquet", Timestamp: t0}))
	assert.False(t, wm.Before(FileManifestEntry{Name: "z.parquet", Timestamp: t0.Add(-time.Second)}))
}

func TestIngestionPlan(t *testing.T) {
	plan := &IngestionPlan{Mode: ModeAppend}
	assert.True(t, plan.Empty())
	assert.Empty(t, plan.FileNames())

	plan.Files = []FileManifestEntry{{Name: "a"}, {Name: "b"}}
	assert.False(t, plan.Empty())
	assert.Equal(t, []string{"a", "b"}, plan.FileNames())

	assert.False(t, (&IngestionPlan{Mode: ModeOverwrite, FullReingest: true}).Empty())
}

func TestIngestionResultExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, (&IngestionResult{Status: StatusSuccess}).ExitCode())
	assert.Equal(t, ExitDiscrepancy, (&IngestionResult{Status: StatusDiscrepancyWarning}).ExitCode())
	assert.Equal(t, ExitFailure, (&IngestionResult{Status: StatusFailure}).ExitCode())
	assert.Equal(t, "Ingestion from 'ex_t' to 't' was successful.", SuccessMessage("ex_t", "t"))
}

func TestTableSchemaNames(t *testing.T) {
	s := &TableSchema{
		TableName: "events",
		Columns: []Column{
			{Name: "id", Type: "INT"},
			{Name: "raw name", Alias: "name", Type: "TEXT"},
		},
	}
	assert.Equal(t, "ex_events", s.ExternalTableName())

	c, ok := s.ResolveColumn("NAME")
	require.True(t, ok)
	assert.Equal(t, "raw name", c.Name)
	assert.Equal(t, "name", c.FactName())

	c, ok = s.ResolveColumn("id")
	require.True(t, ok)
	assert.Equal(t, "id", c.FactName())

	_, ok = s.ResolveColumn("missing")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	var se *SchemaError
	require.True(t, errors.As(ErrSchema("columns", "at least %d", 1), &se))
	assert.Equal(t, "invalid table definition: columns: at least 1", se.Error())
	assert.Equal(t, "invalid table definition: empty", ErrSchema("", "empty").Error())

	var ue *UsageError
	require.True(t, errors.As(ErrUsage("bad flag"), &ue))
	assert.Equal(t, ExitUsage, ue.ExitCode())
}
