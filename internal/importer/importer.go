// Package importer loads CSV files into a database table, creating
// the table from inferred column types when it does not exist.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
)

// typeSampleRows is how many data rows feed column type inference.
const typeSampleRows = 100

// Options control a CSV import.
type Options struct {
	// Table is the destination table name.
	Table string

	// BatchRows is the number of rows per INSERT.
	BatchRows int

	// DisableConstraints toggles foreign key checks off around the load.
	DisableConstraints bool

	// SkipErrors records bad rows and keeps going.
	SkipErrors bool

	// ColumnMapping renames CSV header columns to database columns.
	// Unmapped columns keep their CSV names.
	ColumnMapping map[string]string
}

// RowError records one rejected CSV row. Line numbers count the
// header as line 1.
type RowError struct {
	Line   int64
	Detail string
}

// Summary reports the outcome of an import.
type Summary struct {
	TotalRows int64
	Inserted  int64
	Errors    []RowError
}

// Run imports the CSV file at path into sess.
func Run(ctx context.Context, sess driver.Session, path string, opts Options) (*Summary, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if opts.BatchRows <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchRows)
	}

	csvColumns, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	dbColumns := make([]string, len(csvColumns))
	for i, col := range csvColumns {
		if mapped, ok := opts.ColumnMapping[col]; ok {
			dbColumns[i] = mapped
		} else {
			dbColumns[i] = col
		}
	}

	kinds, err := inferColumnKinds(path, len(csvColumns))
	if err != nil {
		return nil, err
	}

	tables, err := sess.ListTables(ctx, []string{opts.Table}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	if len(tables) == 0 {
		logging.Info("Creating table %s", opts.Table)
		if err := sess.CreateTableFromColumns(ctx, opts.Table, dbColumns, kinds); err != nil {
			return nil, fmt.Errorf("creating table %s: %w", opts.Table, err)
		}
	} else {
		logging.Info("Table %s already exists, inserting data", opts.Table)
	}

	if opts.DisableConstraints {
		if err := sess.DisableConstraints(ctx); err != nil {
			return nil, fmt.Errorf("disabling constraints: %w", err)
		}
	}

	summary, err := loadRows(ctx, sess, path, dbColumns, kinds, opts)
	if err != nil {
		return summary, err
	}

	if opts.DisableConstraints {
		if err := sess.EnableConstraints(ctx); err != nil {
			return summary, fmt.Errorf("re-enabling constraints: %w", err)
		}
	}
	if err := sess.Commit(ctx); err != nil {
		return summary, fmt.Errorf("committing import: %w", err)
	}

	logging.Info("Imported %d of %d row(s) into %s", summary.Inserted, summary.TotalRows, opts.Table)
	for i, re := range summary.Errors {
		if i >= 10 {
			logging.Warn("... and %d more error(s)", len(summary.Errors)-10)
			break
		}
		logging.Warn("Line %d: %s", re.Line, re.Detail)
	}
	return summary, nil
}

type numberedRow struct {
	line   int64
	values []driver.Value
}

func loadRows(ctx context.Context, sess driver.Session, path string, dbColumns []string, kinds []driver.Kind, opts Options) (*Summary, error) {
	r, f, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	return ingestRows(ctx, sess, r, dbColumns, kinds, opts)
}

// ingestRows consumes data records from r, whose header has already
// been read. Only malformed records follow the skip-errors policy; an
// I/O failure underneath the reader aborts the import.
func ingestRows(ctx context.Context, sess driver.Session, r *csv.Reader, dbColumns []string, kinds []driver.Kind, opts Options) (*Summary, error) {
	summary := &Summary{}
	batch := make([]numberedRow, 0, opts.BatchRows)
	line := int64(1) // header
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return summary, fmt.Errorf("reading CSV near line %d: %w", line, err)
			}
			if !opts.SkipErrors {
				return summary, fmt.Errorf("CSV parse error at line %d: %w", line, err)
			}
			summary.Errors = append(summary.Errors, RowError{Line: line, Detail: fmt.Sprintf("CSV parse error: %v", err)})
			continue
		}
		summary.TotalRows++

		values, err := parseRow(record, dbColumns, kinds)
		if err != nil {
			if !opts.SkipErrors {
				return summary, fmt.Errorf("line %d: %w", line, err)
			}
			summary.Errors = append(summary.Errors, RowError{Line: line, Detail: err.Error()})
			continue
		}

		batch = append(batch, numberedRow{line: line, values: values})
		if len(batch) >= opts.BatchRows {
			if err := flushBatch(ctx, sess, opts, dbColumns, batch, summary); err != nil {
				return summary, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := flushBatch(ctx, sess, opts, dbColumns, batch, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// flushBatch inserts a batch, retrying row by row on failure so one
// bad row cannot sink the rest.
func flushBatch(ctx context.Context, sess driver.Session, opts Options, columns []string, batch []numberedRow, summary *Summary) error {
	rows := make([][]driver.Value, len(batch))
	for i, nr := range batch {
		rows[i] = nr.values
	}
	if err := sess.InsertBatch(ctx, opts.Table, columns, rows); err == nil {
		summary.Inserted += int64(len(batch))
		return nil
	}

	for _, nr := range batch {
		err := sess.InsertBatch(ctx, opts.Table, columns, [][]driver.Value{nr.values})
		if err == nil {
			summary.Inserted++
			continue
		}
		detail := fmt.Sprintf("insert failed (%v) | record: %s", err, driver.SummarizeRow(nr.values))
		if !opts.SkipErrors {
			return fmt.Errorf("line %d: %s", nr.line, detail)
		}
		summary.Errors = append(summary.Errors, RowError{Line: nr.line, Detail: detail})
	}
	return nil
}

func openReader(path string) (*csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input file: %w", err)
	}
	r := csv.NewReader(f)
	// Short rows are padded with NULLs at parse time instead of
	// failing the whole record.
	r.FieldsPerRecord = -1
	return r, f, nil
}

func readHeader(path string) ([]string, error) {
	r, f, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("CSV file has no columns")
	}
	return header, nil
}

// inferColumnKinds samples the first rows and takes a majority vote
// per column.
func inferColumnKinds(path string, numCols int) ([]driver.Kind, error) {
	r, f, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	return sampleKinds(r, numCols)
}

func sampleKinds(r *csv.Reader, numCols int) ([]driver.Kind, error) {
	scores := make([]map[driver.Kind]int, numCols)
	for i := range scores {
		scores[i] = make(map[driver.Kind]int)
	}
	for sampled := 0; sampled < typeSampleRows; {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// An I/O failure recurs on every Read; only parse errors
			// can be stepped over.
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("reading CSV: %w", err)
			}
			// Malformed rows do not vote.
			continue
		}
		for i, value := range record {
			if i >= numCols {
				break
			}
			scores[i][detectKind(value)]++
		}
		sampled++
	}

	kinds := make([]driver.Kind, numCols)
	for i, colScores := range scores {
		best := driver.KindString
		bestCount := 0
		for k, count := range colScores {
			if count > bestCount {
				best, bestCount = k, count
			}
		}
		kinds[i] = best
	}
	return kinds, nil
}

// detectKind classifies one CSV cell for type inference.
func detectKind(value string) driver.Kind {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return driver.KindString
	}
	switch {
	case v == "1" || v == "0":
		// Could be boolean, but integer is the safer guess.
		return driver.KindInt
	case strings.EqualFold(v, "true"), strings.EqualFold(v, "false"),
		strings.EqualFold(v, "yes"), strings.EqualFold(v, "no"):
		return driver.KindBool
	}
	if strings.Count(v, ":") >= 2 && strings.Contains(v, "-") {
		return driver.KindTimestamp
	}
	if _, err := time.Parse("2006-01-02", v); err == nil {
		return driver.KindDate
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil && strings.Contains(v, ".") {
		return driver.KindFloat
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return driver.KindInt
	}
	return driver.KindString
}

// parseRow converts one CSV record using the inferred column kinds.
// Missing trailing fields become NULL.
func parseRow(record []string, dbColumns []string, kinds []driver.Kind) ([]driver.Value, error) {
	values := make([]driver.Value, len(dbColumns))
	for i, col := range dbColumns {
		var raw string
		if i < len(record) {
			raw = strings.TrimSpace(record[i])
		}
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "none") {
			values[i] = driver.Null()
			continue
		}
		v, err := parseValue(raw, kinds[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseValue(raw string, kind driver.Kind) (driver.Value, error) {
	switch kind {
	case driver.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return driver.Value{}, fmt.Errorf("cannot parse %q as integer", raw)
		}
		return driver.IntVal(n), nil
	case driver.KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return driver.Value{}, fmt.Errorf("cannot parse %q as float", raw)
		}
		return driver.FloatVal(f), nil
	case driver.KindBool:
		switch strings.ToLower(raw) {
		case "true", "yes", "1":
			return driver.BoolVal(true), nil
		case "false", "no", "0":
			return driver.BoolVal(false), nil
		}
		return driver.Value{}, fmt.Errorf("cannot parse %q as boolean", raw)
	case driver.KindDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return driver.Value{}, fmt.Errorf("cannot parse %q as date (YYYY-MM-DD)", raw)
		}
		return driver.DateVal(t.Year(), int(t.Month()), t.Day()), nil
	case driver.KindTimestamp:
		t, err := time.Parse("2006-01-02 15:04:05", raw)
		if err != nil {
			t, err = time.Parse("2006-01-02 15:04", raw)
		}
		if err != nil {
			return driver.Value{}, fmt.Errorf("cannot parse %q as timestamp", raw)
		}
		return driver.TimestampOf(t), nil
	}
	return driver.StringVal(raw), nil
}

// ParseColumnMapping parses "csv_col:db_col,csv_col2:db_col2".
func ParseColumnMapping(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid column mapping %q, expected csv_col:db_col", pair)
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}
