// Package dump writes a database's tables to a SQL script that
// restore can replay.
package dump

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
	"github.com/sqlferry/sqlferry/internal/transfer"
)

// Options control a dump run.
type Options struct {
	Transfer transfer.Options

	// Gzip forces compression; a .gz output path enables it too.
	Gzip bool
}

// Run dumps the source database to the file at path.
func Run(ctx context.Context, src driver.Session, path string, opts Options) error {
	if err := opts.Transfer.Validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	sink := NewSink(f, src.Dialect(), opts.Gzip || strings.HasSuffix(path, ".gz"))
	if err := sink.WriteHeader(); err != nil {
		f.Close()
		return err
	}

	results, err := transfer.Run(ctx, src, sink, opts.Transfer)
	if err != nil {
		sink.Close()
		f.Close()
		return err
	}

	if err := sink.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finishing dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	if err := src.Commit(ctx); err != nil {
		return fmt.Errorf("committing source snapshot: %w", err)
	}

	transfer.Report(results)
	logging.Info("Dump written to %s", path)
	return nil
}

// Sink renders schema and data as SQL text. It implements
// transfer.Dest so the shared pipeline can drive it.
type Sink struct {
	w       *bufio.Writer
	gz      *gzip.Writer
	dialect driver.Dialect
	err     error
}

// NewSink wraps w; with compress set, output is gzip-encoded.
func NewSink(w io.Writer, d driver.Dialect, compress bool) *Sink {
	s := &Sink{dialect: d}
	if compress {
		s.gz = gzip.NewWriter(w)
		s.w = bufio.NewWriter(s.gz)
	} else {
		s.w = bufio.NewWriter(w)
	}
	return s
}

// WriteHeader emits the identifying comments and the dialect's
// session preamble.
func (s *Sink) WriteHeader() error {
	s.line("-- %s database dump", s.dialect.Name())
	s.line("-- Generated by sqlferry")
	s.line("-- Dump ID: %s", uuid.NewString())
	s.line("-- Date: %s", time.Now().UTC().Format(time.RFC3339))
	s.line("")
	for _, stmt := range s.dialect.DumpPreamble() {
		s.line("%s", stmt)
	}
	s.line("")
	return s.err
}

// ApplySchema writes the structure section for a table.
func (s *Sink) ApplySchema(ctx context.Context, table, dropStmt, createStmt string) error {
	s.line("")
	s.line("-- Table structure for %s", table)
	if dropStmt != "" {
		s.line("%s", dropStmt)
	}
	if createStmt != "" {
		// The restore scanner splits on trailing semicolons, so the
		// CREATE must carry one even when the source DDL does not.
		if !strings.HasSuffix(strings.TrimRight(createStmt, " \t"), ";") {
			createStmt += ";"
		}
		s.line("%s", createStmt)
	}
	return s.err
}

// BeginTableData writes the data section comment for a table.
func (s *Sink) BeginTableData(ctx context.Context, table string, approxRows int64) error {
	s.line("")
	s.line("-- Data for table %s", table)
	return s.err
}

// InsertBatch renders one multi-row INSERT statement.
func (s *Sink) InsertBatch(ctx context.Context, table string, columns []string, rows [][]driver.Value) error {
	if len(rows) == 0 {
		return s.err
	}
	s.line("%s", s.dialect.InsertValuesSQL(table, columns, rows))
	return s.err
}

// Close writes the postamble and completion marker and flushes all
// buffers. The underlying writer is not closed.
func (s *Sink) Close() error {
	s.line("")
	for _, stmt := range s.dialect.DumpPostamble() {
		s.line("%s", stmt)
	}
	s.line("")
	s.line("-- Dump completed on %s", time.Now().UTC().Format(time.RFC3339))
	if err := s.w.Flush(); err != nil && s.err == nil {
		s.err = err
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	return s.err
}

func (s *Sink) line(format string, args ...interface{}) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format+"\n", args...)
}
