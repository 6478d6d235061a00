package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/firebolt-db/firebolt-cli/internal/ddl"
	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// timestampLayouts are the textual timestamp forms returned by query endpoints.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// listColumns returns the column names of table in ordinal order.
func listColumns(ctx context.Context, exec domain.Executor, table string) ([]string, error) {
	stmt := ddl.ListColumns(table)
	res, err := exec.Execute(ctx, stmt)
	if err != nil {
		return nil, domain.WrapRemote(stmt, err)
	}
	cols := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		cols = append(cols, fmt.Sprint(row[0]))
	}
	return cols, nil
}

// readWatermark returns the newest (timestamp, name) pair in the fact table, or nil when it is empty.
func readWatermark(ctx context.Context, exec domain.Executor, fact string) (*domain.Watermark, error) {
	stmt := ddl.LatestFile(fact, domain.SourceFileNameColumn, domain.SourceFileTimestampColumn)
	res, err := exec.Execute(ctx, stmt)
	if err != nil {
		return nil, domain.WrapRemote(stmt, err)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) < 2 || res.Rows[0][0] == nil {
		return nil, nil
	}
	ts, err := toTime(res.Rows[0][0])
	if err != nil {
		return nil, domain.WrapRemote(stmt, err)
	}
	return &domain.Watermark{Timestamp: ts, Name: fmt.Sprint(res.Rows[0][1])}, nil
}

// readManifest lists the source files visible through the external table.
func readManifest(ctx context.Context, exec domain.Executor, external string) ([]domain.FileManifestEntry, error) {
	stmt := ddl.FileManifest(external, domain.SourceFileNameColumn, domain.SourceFileTimestampColumn)
	res, err := exec.Execute(ctx, stmt)
	if err != nil {
		return nil, domain.WrapRemote(stmt, err)
	}
	entries := make([]domain.FileManifestEntry, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) < 3 {
			return nil, domain.WrapRemote(stmt, fmt.Errorf("unexpected manifest row width %d", len(row)))
		}
		ts, err := toTime(row[1])
		if err != nil {
			return nil, domain.WrapRemote(stmt, err)
		}
		n, err := toInt64(row[2])
		if err != nil {
			return nil, domain.WrapRemote(stmt, err)
		}
		entries = append(entries, domain.FileManifestEntry{Name: fmt.Sprint(row[0]), Timestamp: ts, Rows: n})
	}
	return entries, nil
}

// readCounts runs a single-row count query and returns its integer columns.
func readCounts(ctx context.Context, exec domain.Executor, stmt string) ([]int64, error) {
	res, err := exec.Execute(ctx, stmt)
	if err != nil {
		return nil, domain.WrapRemote(stmt, err)
	}
	if len(res.Rows) != 1 {
		return nil, domain.WrapRemote(stmt, fmt.Errorf("expected one row, got %d", len(res.Rows)))
	}
	out := make([]int64, len(res.Rows[0]))
	for i, v := range res.Rows[0] {
		n, err := toInt64(v)
		if err != nil {
			return nil, domain.WrapRemote(stmt, err)
		}
		out[i] = n
	}
	return out, nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse timestamp %q", t)
	case []byte:
		return toTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp value of type %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil //nolint:gosec // row counts fit in int64
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count value of type %T", v)
	}
}
