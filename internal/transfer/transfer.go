// Package transfer moves table data from a source session into a
// destination, batching rows and recovering from per-row failures.
package transfer

import (
	"context"
	"fmt"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
	"github.com/sqlferry/sqlferry/internal/progress"
)

// Options control a transfer run.
type Options struct {
	// Tables restricts the run to these tables; empty means all.
	Tables []string

	// Exclude removes tables from the run after Tables is applied.
	Exclude []string

	// SchemaOnly emits structure without data.
	SchemaOnly bool

	// DataOnly emits data without structure.
	DataOnly bool

	// BatchRows is the number of rows per INSERT statement.
	BatchRows int

	// ConsistentSnapshot opens a repeatable-read transaction on the
	// source before reading.
	ConsistentSnapshot bool

	// DisableConstraints toggles foreign key checks off on the
	// destination for the duration of the run.
	DisableConstraints bool

	// SkipErrors records failed rows and keeps going instead of
	// aborting on the first bad row.
	SkipErrors bool
}

// Validate rejects option combinations that make no sense.
func (o *Options) Validate() error {
	if o.SchemaOnly && o.DataOnly {
		return fmt.Errorf("schema-only and data-only are mutually exclusive")
	}
	if o.BatchRows <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", o.BatchRows)
	}
	return nil
}

// Dest receives schema statements and row batches for one table at a
// time. The file sink and the live-session sink both implement it.
type Dest interface {
	// ApplySchema handles the structure phase for a table. Either
	// statement may be empty when a phase is skipped.
	ApplySchema(ctx context.Context, table, dropStmt, createStmt string) error

	// BeginTableData is called once before the first batch of a
	// table, with the source's approximate row count for sizing.
	BeginTableData(ctx context.Context, table string, approxRows int64) error

	// InsertBatch writes one batch of rows.
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]driver.Value) error
}

// RowFailure records a single row the destination refused.
type RowFailure struct {
	// Ordinal is the 1-based position of the row in the source stream.
	Ordinal int64

	// Detail is the error joined with a truncated row summary.
	Detail string
}

// TableResult summarizes one table's transfer.
type TableResult struct {
	Table    string
	Rows     int64
	Failures []RowFailure
}

// batchRow carries a row with its position in the source stream so
// failures can name the exact row even after batching.
type batchRow struct {
	ordinal int64
	values  []driver.Value
}

// Run copies every selected table from src into dest. With SkipErrors
// set, bad rows are recorded in the table's result and the run
// continues; otherwise the first bad row aborts the run.
func Run(ctx context.Context, src driver.Session, dest Dest, opts Options) ([]TableResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.ConsistentSnapshot {
		if err := src.StartConsistentSnapshot(ctx); err != nil {
			return nil, fmt.Errorf("starting consistent snapshot: %w", err)
		}
	}

	tables, err := src.ListTables(ctx, opts.Tables, opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	if len(tables) == 0 {
		logging.Warn("No tables matched the table filters")
		return nil, nil
	}
	logging.Info("Transferring %d table(s)", len(tables))

	results := make([]TableResult, 0, len(tables))
	for _, table := range tables {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, err := copyTable(ctx, src, dest, table, opts)
		if err != nil {
			return results, fmt.Errorf("table %s: %w", table, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func copyTable(ctx context.Context, src driver.Session, dest Dest, table string, opts Options) (TableResult, error) {
	result := TableResult{Table: table}
	d := src.Dialect()

	if !opts.DataOnly {
		create, err := src.ShowCreateTable(ctx, table)
		if err != nil {
			return result, fmt.Errorf("reading table definition: %w", err)
		}
		drop := d.DropTableStatement(table)
		create = d.NormalizeCreateTable(create)
		if err := dest.ApplySchema(ctx, table, drop, create); err != nil {
			return result, fmt.Errorf("applying schema: %w", err)
		}
	}
	if opts.SchemaOnly {
		return result, nil
	}

	approx, err := src.ApproximateRowCount(ctx, table)
	if err != nil {
		logging.Debug("Row count estimate unavailable for %s: %v", table, err)
		approx = 0
	}
	if err := dest.BeginTableData(ctx, table, approx); err != nil {
		return result, err
	}

	columns, stream, err := src.StreamRows(ctx, table)
	if err != nil {
		return result, fmt.Errorf("opening row stream: %w", err)
	}
	defer stream.Close()

	tracker := progress.New()
	tracker.SetTotal(approx)

	batch := make([]batchRow, 0, opts.BatchRows)
	var ordinal int64
	for stream.Next() {
		ordinal++
		batch = append(batch, batchRow{ordinal: ordinal, values: stream.Row()})
		if len(batch) >= opts.BatchRows {
			if err := flushBatch(ctx, dest, table, columns, batch, opts.SkipErrors, &result); err != nil {
				return result, err
			}
			tracker.Add(int64(len(batch)))
			batch = batch[:0]
		}
	}
	if err := stream.Err(); err != nil {
		return result, fmt.Errorf("reading rows: %w", err)
	}
	if len(batch) > 0 {
		if err := flushBatch(ctx, dest, table, columns, batch, opts.SkipErrors, &result); err != nil {
			return result, err
		}
		tracker.Add(int64(len(batch)))
	}
	tracker.Finish()

	result.Rows = ordinal - int64(len(result.Failures))
	elapsed := tracker.Elapsed()
	if secs := elapsed.Seconds(); secs > 0 {
		logging.Info("Table %s: %d rows in %.1fs (%.0f rows/s)",
			table, result.Rows, secs, float64(result.Rows)/secs)
	}
	return result, nil
}

// flushBatch writes a batch, falling back to row-at-a-time inserts
// when the bulk insert fails so one bad row cannot sink the batch.
func flushBatch(ctx context.Context, dest Dest, table string, columns []string, batch []batchRow, skipErrors bool, result *TableResult) error {
	rows := make([][]driver.Value, len(batch))
	for i, br := range batch {
		rows[i] = br.values
	}
	if err := dest.InsertBatch(ctx, table, columns, rows); err == nil {
		return nil
	}

	// Bulk insert failed. Retry each row alone to isolate the bad ones.
	for _, br := range batch {
		err := dest.InsertBatch(ctx, table, columns, [][]driver.Value{br.values})
		if err == nil {
			continue
		}
		failure := RowFailure{
			Ordinal: br.ordinal,
			Detail:  fmt.Sprintf("%v: %s", err, driver.SummarizeRow(br.values)),
		}
		if !skipErrors {
			return fmt.Errorf("row %d: %s", failure.Ordinal, failure.Detail)
		}
		logging.Warn("Skipping row %d of %s: %v", failure.Ordinal, table, err)
		result.Failures = append(result.Failures, failure)
	}
	return nil
}

// maxReportedFailures caps how many failed rows a report lists in
// full; the rest are summarized as a count.
const maxReportedFailures = 10

// Report logs the outcome of a run.
func Report(results []TableResult) {
	var totalRows int64
	var totalFailures int
	for _, r := range results {
		totalRows += r.Rows
		totalFailures += len(r.Failures)
	}
	logging.Info("Transfer complete: %d table(s), %d row(s)", len(results), totalRows)
	if totalFailures == 0 {
		return
	}
	logging.Warn("%d row(s) failed and were skipped", totalFailures)
	for _, r := range results {
		for i, f := range r.Failures {
			if i >= maxReportedFailures {
				logging.Warn("Table %s: %d more failed row(s) not shown", r.Table, len(r.Failures)-maxReportedFailures)
				break
			}
			logging.Warn("Table %s row %d: %s", r.Table, f.Ordinal, f.Detail)
		}
	}
}
