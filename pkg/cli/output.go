package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// printJSON writes v indented by four spaces.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTable writes a grid table with a header row.
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetRowLine(true)
	table.AppendBulk(rows)
	table.Render()
}

// printFields writes one record as a two-column grid, one field per row.
func printFields(w io.Writer, fields []field) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetRowLine(true)
	for _, f := range fields {
		table.Append([]string{f.name, formatValue(f.value)})
	}
	table.Render()
}

// printCSV writes a header row followed by rows.
func printCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// field is one named value of a record.
type field struct {
	name  string
	value interface{}
}

// record is an ordered set of fields that marshals to a JSON object in field order.
type record []field

// MarshalJSON implements json.Marshaler.
func (r record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r record) headers() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.name
	}
	return out
}

func (r record) values() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = formatValue(f.value)
	}
	return out
}

// printRecord writes one record as JSON or as a field grid.
func printRecord(w io.Writer, r record, asJSON bool) error {
	if asJSON {
		return printJSON(w, r)
	}
	printFields(w, r)
	return nil
}

// printRecords writes records as a JSON array or as a table with one row per record.
func printRecords(w io.Writer, headers []string, records []record, asJSON bool) error {
	if asJSON {
		if records == nil {
			records = []record{}
		}
		return printJSON(w, records)
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.values()
	}
	printTable(w, headers, rows)
	return nil
}

// printQueryResult renders a statement result. Statements without a result set print nothing.
func printQueryResult(w io.Writer, res *domain.QueryResult, format string) error {
	if res == nil || !res.HasRows() {
		return nil
	}
	headers := res.ColumnNames()
	switch format {
	case "json":
		records := make([]record, len(res.Rows))
		for i, row := range res.Rows {
			r := make(record, len(headers))
			for j, h := range headers {
				r[j] = field{name: h, value: row[j]}
			}
			records[i] = r
		}
		return printRecords(w, headers, records, true)
	case "csv":
		return printCSV(w, headers, stringRows(res.Rows))
	default:
		printTable(w, headers, stringRows(res.Rows))
		return nil
	}
}

func stringRows(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatValue(v)
		}
		out[i] = cells
	}
	return out
}

// formatValue renders a cell. Nested values are rendered as JSON.
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case []string:
		data, _ := json.Marshal(x)
		return string(data)
	case []interface{}, map[string]interface{}:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(data)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// toHumanReadable divides num by step until it drops below step, e.g. 1233212 -> "1.23 M".
func toHumanReadable(num float64, step float64, labels []string) string {
	label := ""
	for _, l := range labels {
		num /= step
		label = l
		if num < step {
			break
		}
	}
	s := strings.TrimRight(strings.TrimRight(strconv.FormatFloat(num, 'f', 2, 64), "0"), ".")
	return s + " " + label
}

// convertBytes renders a byte count in KB, MB, GB, and larger units.
func convertBytes(num *float64) string {
	if num == nil || *num < 0 {
		return ""
	}
	return toHumanReadable(*num, 1024, []string{"KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"})
}

// convertNumHumanReadable renders a count with K, M, G, and T suffixes.
// Counts below 1000 are printed as is.
func convertNumHumanReadable(num float64) string {
	if num < 0 {
		return ""
	}
	if num < 1000 {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
	return toHumanReadable(num, 1000, []string{"K", "M", "G", "T"})
}
