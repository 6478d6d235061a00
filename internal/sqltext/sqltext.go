// Package sqltext splits and formats SQL text for display and batch execution.
package sqltext

import (
	"strings"

	"github.com/xwb1989/sqlparser"
)

// DefaultShortLength is the length FormatShort truncates to.
const DefaultShortLength = 80

// SplitStatements splits a script into individual statements.
// Semicolons inside quoted strings and comments do not split; empty statements are dropped
// and trailing semicolons are removed.
func SplitStatements(script string) ([]string, error) {
	pieces, err := sqlparser.SplitStatementToPieces(script)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), ";"))
		if p == "" || StripComments(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FormatShort renders a statement on one line without comments or repeated whitespace,
// truncated to DefaultShortLength characters followed by " ...".
func FormatShort(statement string) string {
	return FormatShortN(statement, DefaultShortLength)
}

// FormatShortN is FormatShort with an explicit limit; limit <= 0 disables truncation.
func FormatShortN(statement string, limit int) string {
	s := strings.Join(strings.Fields(StripComments(statement)), " ")
	if limit > 0 && len(s) > limit {
		return s[:limit] + " ..."
	}
	return s
}

// StripComments removes "--" line comments and "/* */" block comments outside string literals.
func StripComments(statement string) string {
	statement = sqlparser.StripLeadingComments(statement)

	var b strings.Builder
	var quote byte
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == '-' && i+1 < len(statement) && statement[i+1] == '-':
			for i < len(statement) && statement[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
		case c == '/' && i+1 < len(statement) && statement[i+1] == '*':
			end := strings.Index(statement[i+2:], "*/")
			if end < 0 {
				i = len(statement)
			} else {
				i += end + 3
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}
