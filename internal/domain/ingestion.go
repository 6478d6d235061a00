package domain

import (
	"fmt"
	"time"
)

// IngestionMode selects how the fact table is reconciled with the external table.
type IngestionMode string

// Ingestion modes.
const (
	ModeOverwrite IngestionMode = "overwrite"
	ModeAppend    IngestionMode = "append"
)

// ParseIngestionMode converts a flag value into an IngestionMode.
func ParseIngestionMode(s string) (IngestionMode, error) {
	switch IngestionMode(s) {
	case ModeOverwrite, ModeAppend:
		return IngestionMode(s), nil
	default:
		return "", ErrValidation("unsupported ingestion mode %q: use 'overwrite' or 'append'", s)
	}
}

// FileManifestEntry is one source file seen through the external table metadata columns.
type FileManifestEntry struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Rows      int64     `json:"rows"`
}

// Watermark is the most recent (timestamp, name) pair recorded in a fact table.
type Watermark struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
}

// Before reports whether e sorts strictly after the watermark:
// newer timestamp, or equal timestamp and lexically greater name.
func (w Watermark) Before(e FileManifestEntry) bool {
	if e.Timestamp.After(w.Timestamp) {
		return true
	}
	return e.Timestamp.Equal(w.Timestamp) && e.Name > w.Name
}

// ColumnMapping maps one fact table column to the external expression feeding it.
type ColumnMapping struct {
	Fact   string
	Source string
}

// IngestionPlan is the statement-free description of one ingestion run.
type IngestionPlan struct {
	Mode          IngestionMode
	External      TableRef
	Fact          TableRef
	Columns       []ColumnMapping
	FullReingest  bool
	Files         []FileManifestEntry
	Watermark     *Watermark
	ManifestFiles int
	Warnings      []string
}

// Empty reports whether an append plan has nothing to ingest.
func (p *IngestionPlan) Empty() bool {
	return !p.FullReingest && len(p.Files) == 0
}

// FileNames returns the planned file names in plan order.
func (p *IngestionPlan) FileNames() []string {
	names := make([]string, len(p.Files))
	for i, f := range p.Files {
		names[i] = f.Name
	}
	return names
}

// IngestionStatus classifies the outcome of an ingestion run.
type IngestionStatus string

// Ingestion statuses.
const (
	StatusSuccess            IngestionStatus = "success"
	StatusDiscrepancyWarning IngestionStatus = "discrepancy_warning"
	StatusFailure            IngestionStatus = "failure"
)

// IngestionResult describes the outcome of an ingestion run.
type IngestionResult struct {
	Status        IngestionStatus `json:"status"`
	Mode          IngestionMode   `json:"mode"`
	ExternalTable string          `json:"external_table"`
	FactTable     string          `json:"fact_table"`
	SourceRows    int64           `json:"source_rows"`
	DestRows      int64           `json:"destination_rows"`
	SourceFiles   int64           `json:"source_files,omitempty"`
	DestFiles     int64           `json:"destination_files,omitempty"`
	Files         []string        `json:"files,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	Message       string          `json:"message"`
}

// ExitCode maps the status to the process exit code.
func (r *IngestionResult) ExitCode() int {
	switch r.Status {
	case StatusSuccess:
		return ExitSuccess
	case StatusDiscrepancyWarning:
		return ExitDiscrepancy
	default:
		return ExitFailure
	}
}

// SuccessMessage is the message reported for a successful ingestion.
func SuccessMessage(external, fact string) string {
	return fmt.Sprintf("Ingestion from '%s' to '%s' was successful.", external, fact)
}
