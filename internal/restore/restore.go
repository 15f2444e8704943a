// Package restore replays a dump file against a live database.
package restore

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
)

// Options control a restore run.
type Options struct {
	// DisableConstraints toggles foreign key checks off for the
	// duration of the replay.
	DisableConstraints bool
}

// Run replays the dump at path into the destination session.
func Run(ctx context.Context, dest driver.Session, path string, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dump file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("reading gzip dump: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	if opts.DisableConstraints {
		logging.Info("Disabling foreign key checks")
		if err := dest.DisableConstraints(ctx); err != nil {
			return fmt.Errorf("disabling constraints: %w", err)
		}
	}

	count, err := Replay(ctx, dest, r)
	if err != nil {
		return err
	}
	logging.Info("Executed %d statement(s)", count)

	if opts.DisableConstraints {
		logging.Info("Re-enabling foreign key checks")
		if err := dest.EnableConstraints(ctx); err != nil {
			return fmt.Errorf("re-enabling constraints: %w", err)
		}
	}

	if err := dest.Commit(ctx); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}
	return nil
}

// Replay executes the SQL script from r statement by statement. The
// scanner is line oriented, not a SQL tokenizer: blank lines and
// comment lines are dropped, and lines accumulate until one ends with
// a semicolon. That is only safe for self-produced dumps, where every
// statement lives on a single line.
func Replay(ctx context.Context, dest driver.Session, r io.Reader) (int64, error) {
	// INSERT statements for wide tables routinely exceed
	// bufio.Scanner's default token limit, so read lines manually.
	br := bufio.NewReaderSize(r, 1<<20)

	var stmt strings.Builder
	var statements int64
	var lineNo int64
	for {
		line, err := readLine(br)
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return statements, fmt.Errorf("reading dump at line %d: %w", lineNo+1, err)
		}
		lineNo++

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			if err == io.EOF {
				break
			}
			continue
		}

		stmt.WriteString(line)
		stmt.WriteByte(' ')

		if strings.HasSuffix(trimmed, ";") {
			sql := strings.TrimSpace(stmt.String())
			if execErr := dest.Execute(ctx, sql); execErr != nil {
				return statements, fmt.Errorf("statement ending at line %d: %w", lineNo, execErr)
			}
			statements++
			if statements%100 == 0 {
				logging.Debug("Executed %d statements", statements)
			}
			stmt.Reset()
		}
		if err == io.EOF {
			break
		}
	}

	// A trailing statement without a semicolon still runs.
	if sql := strings.TrimSpace(stmt.String()); sql != "" {
		if err := dest.Execute(ctx, sql); err != nil {
			return statements, fmt.Errorf("trailing statement: %w", err)
		}
		statements++
	}
	return statements, nil
}

// readLine reads one line without a length limit, dropping the
// newline and any carriage return.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	return line, err
}
