package ddl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// decimalRe matches DECIMAL(p, s) and NUMERIC(p, s).
var decimalRe = regexp.MustCompile(`^(DECIMAL|NUMERIC)\s*\(\s*(\d+)\s*,\s*(\d+)\s*\)$`)

// arrayRe matches ARRAY(<inner>).
var arrayRe = regexp.MustCompile(`^ARRAY\s*\((.+)\)$`)

// maxIdentifierLen is the maximum length allowed for a SQL identifier.
const maxIdentifierLen = 128

// maxColumnTypeLen is the maximum length allowed for a column type string.
const maxColumnTypeLen = 64

// maxDecimalPrecision is the largest precision DECIMAL accepts.
const maxDecimalPrecision = 38

// scalarTypes is the supported scalar column type enumeration.
var scalarTypes = map[string]bool{
	"INT":              true,
	"INTEGER":          true,
	"BIGINT":           true,
	"LONG":             true,
	"FLOAT":            true,
	"REAL":             true,
	"DOUBLE":           true,
	"DOUBLE PRECISION": true,
	"TEXT":             true,
	"STRING":           true,
	"VARCHAR":          true,
	"DATE":             true,
	"PGDATE":           true,
	"TIMESTAMP":        true,
	"DATETIME":         true,
	"TIMESTAMPNTZ":     true,
	"TIMESTAMPTZ":      true,
	"BOOLEAN":          true,
	"BOOL":             true,
	"BYTEA":            true,
}

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most 128 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_]*
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// NormalizeColumnType validates typeName against the supported type enumeration and
// returns its canonical upper-case spelling.
//
// Accepted forms (case-insensitive):
//
//	SCALAR                 → INT, TEXT, TIMESTAMP, DOUBLE PRECISION, ...
//	DECIMAL(p, s)          → DECIMAL(38, 2), NUMERIC(10, 0)
//	ARRAY(<type>)          → ARRAY(INT), ARRAY(ARRAY(TEXT))
//	<type> NULL            → TEXT NULL
//	<type> NOT NULL        → BIGINT NOT NULL
func NormalizeColumnType(typeName string) (string, error) {
	if strings.TrimSpace(typeName) == "" {
		return "", fmt.Errorf("column type is required")
	}
	if len(typeName) > maxColumnTypeLen {
		return "", fmt.Errorf("column type must be at most %d characters", maxColumnTypeLen)
	}
	if strings.ContainsAny(typeName, ";-'\"\\") {
		return "", fmt.Errorf("column type contains invalid characters")
	}

	t := strings.Join(strings.Fields(strings.ToUpper(typeName)), " ")
	suffix := ""
	switch {
	case strings.HasSuffix(t, " NOT NULL"):
		t, suffix = strings.TrimSuffix(t, " NOT NULL"), " NOT NULL"
	case strings.HasSuffix(t, " NULL"):
		t, suffix = strings.TrimSuffix(t, " NULL"), " NULL"
	}

	base, err := normalizeBaseType(t)
	if err != nil {
		return "", err
	}
	return base + suffix, nil
}

func normalizeBaseType(t string) (string, error) {
	if scalarTypes[t] {
		return t, nil
	}
	if m := decimalRe.FindStringSubmatch(t); m != nil {
		precision, _ := strconv.Atoi(m[2])
		scale, _ := strconv.Atoi(m[3])
		if precision < 1 || precision > maxDecimalPrecision {
			return "", fmt.Errorf("decimal precision must be between 1 and %d, got %d", maxDecimalPrecision, precision)
		}
		if scale > precision {
			return "", fmt.Errorf("decimal scale %d exceeds precision %d", scale, precision)
		}
		return fmt.Sprintf("%s(%d, %d)", m[1], precision, scale), nil
	}
	if m := arrayRe.FindStringSubmatch(t); m != nil {
		inner, err := normalizeBaseType(strings.TrimSpace(m[1]))
		if err != nil {
			return "", err
		}
		return "ARRAY(" + inner + ")", nil
	}
	return "", fmt.Errorf("column type %q is not supported", t)
}
