package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
	"github.com/firebolt-db/firebolt-cli/internal/history"
	"github.com/firebolt-db/firebolt-cli/internal/sqltext"
)

const (
	primaryPrompt      = "firebolt> "
	continuationPrompt = "     ...> "
)

var (
	exitCommands  = []string{".exit", ".quit", ".q"}
	helpCommands  = []string{".help", ".h"}
	tablesCommand = ".tables"
	recentCommand = ".history"
)

// replSession is an interactive SQL loop over one executor.
type replSession struct {
	exec     domain.Executor
	in       io.Reader
	out      io.Writer
	format   string
	database string
	history  *history.Store
	logger   *slog.Logger
}

func isInternalCommand(s string) bool {
	return contains(exitCommands, s) || contains(helpCommands, s) || s == tablesCommand || s == recentCommand
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// run reads statements until EOF or an exit command.
// Failed statements are reported and the loop continues.
func (s *replSession) run(ctx context.Context) error {
	reader := bufio.NewReader(s.in)
	_, _ = fmt.Fprintln(s.out, "Connection succeeded")

	for {
		input, err := s.readStatement(reader)
		if errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(s.out, "Bye!")
			return nil
		}
		if err != nil {
			return err
		}

		stmt := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(input), ";"))
		switch {
		case contains(exitCommands, stmt):
			_, _ = fmt.Fprintln(s.out, "Bye!")
			return nil
		case contains(helpCommands, stmt):
			s.showHelp()
			continue
		case stmt == recentCommand:
			s.showHistory(ctx)
			continue
		case stmt == tablesCommand:
			stmt = "SHOW tables"
		}
		if stmt == "" {
			continue
		}
		stmts, err := sqltext.SplitStatements(stmt)
		if err != nil {
			_, _ = fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		// statements after a failed one on the same input are skipped
		for _, part := range stmts {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !s.execute(ctx, part) {
				break
			}
		}
	}
}

// execute runs one statement and prints its result or error. It reports success.
func (s *replSession) execute(ctx context.Context, stmt string) bool {
	start := time.Now()
	s.logger.Debug("executing statement", "sql", sqltext.FormatShort(stmt))
	res, err := s.exec.Execute(ctx, stmt)
	s.record(ctx, stmt, err == nil, time.Since(start))
	if err != nil {
		_, _ = fmt.Fprintln(s.out, err)
		return false
	}
	if err := printQueryResult(s.out, res, s.format); err != nil {
		_, _ = fmt.Fprintln(s.out, err)
	}
	return true
}

func (s *replSession) record(ctx context.Context, stmt string, ok bool, d time.Duration) {
	if s.history == nil {
		return
	}
	if err := s.history.Add(ctx, s.database, stmt, ok, d); err != nil {
		s.logger.Warn("record query history", "error", err)
	}
}

// readStatement reads lines until the text is empty, an internal command, or ends with ';'.
func (s *replSession) readStatement(reader *bufio.Reader) (string, error) {
	var buf strings.Builder
	prompt := primaryPrompt
	for {
		_, _ = fmt.Fprint(s.out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if errors.Is(err, io.EOF) && line == "" {
			if strings.TrimSpace(buf.String()) != "" {
				return buf.String(), nil
			}
			return "", io.EOF
		}
		buf.WriteString(line)

		text := strings.TrimSpace(buf.String())
		if text == "" || strings.HasSuffix(text, ";") || isInternalCommand(text) {
			return buf.String(), nil
		}
		if errors.Is(err, io.EOF) {
			return buf.String(), nil
		}
		prompt = continuationPrompt
	}
}

func (s *replSession) showHelp() {
	rows := [][2]string{
		{strings.Join(helpCommands, "/"), "Show this help message"},
		{strings.Join(exitCommands, "/"), "Exit firebolt-cli"},
		{tablesCommand, "Show tables in current database"},
		{recentCommand, "Show recently executed statements"},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(s.out, "%-15s%s\n", r[0], r[1])
	}
}

func (s *replSession) showHistory(ctx context.Context) {
	if s.history == nil {
		_, _ = fmt.Fprintln(s.out, "Query history is disabled")
		return
	}
	entries, err := s.history.Recent(ctx, 20)
	if err != nil {
		_, _ = fmt.Fprintln(s.out, err)
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		status := "ok"
		if !e.Succeeded {
			status = "failed"
		}
		_, _ = fmt.Fprintf(s.out, "%s  %-6s  %s\n",
			e.ExecutedAt.Local().Format("2006-01-02 15:04:05"), status, sqltext.FormatShort(e.Statement))
	}
}
