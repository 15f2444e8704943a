package driver

import "context"

// RowStream is a lazy, forward-only sequence of rows pulled from a
// source table. It is single-pass and not restartable; stopping early
// just means the caller stops pulling. The usual loop:
//
//	for stream.Next() {
//		row := stream.Row()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
//	stream.Close()
type RowStream interface {
	// Next advances to the next row, returning false at exhaustion or
	// on error.
	Next() bool

	// Row returns the current row in column order. Ownership of the
	// slice passes to the caller: implementations must allocate a fresh
	// slice per row, never reuse or overwrite one already handed out.
	// Callers rely on this to hold rows across Next calls while
	// accumulating a batch.
	Row() []Value

	// Err reports the error that terminated iteration, if any.
	Err() error

	// Close releases the underlying cursor. Safe to call more than once.
	Close() error
}

// Session is one live database connection plus an in-transaction flag.
// Every provider implements this contract; the transfer pipeline and
// the commands speak only through it. A session is created by a
// driver's Open, used by exactly one command, committed, and discarded.
// It is never shared across tables in flight or across goroutines.
type Session interface {
	// Dialect returns the provider's shared rendering rules.
	Dialect() Dialect

	// StartConsistentSnapshot raises isolation to repeatable read and
	// opens a snapshot transaction, so every later read observes one
	// fixed point in time. Meaningful on the read side only, and only
	// when called before any read.
	StartConsistentSnapshot(ctx context.Context) error

	// ListTables returns table names matching the filters. An empty
	// include list means all tables; otherwise it is an allow-list.
	// Exclude is applied after include and wins on overlap.
	ListTables(ctx context.Context, include, exclude []string) ([]string, error)

	// ShowCreateTable returns the provider's canonical CREATE TABLE
	// DDL, collapsed to a single line and rewritten to an idempotent
	// if-not-exists form.
	ShowCreateTable(ctx context.Context, table string) (string, error)

	// StreamRows returns the table's column names in physical order and
	// a lazy row stream in the source's natural scan order.
	StreamRows(ctx context.Context, table string) ([]string, RowStream, error)

	// ApproximateRowCount returns a best-effort row count for progress
	// display. It may be zero or stale and is never used for
	// correctness.
	ApproximateRowCount(ctx context.Context, table string) (int64, error)

	// InsertBatch inserts the rows in one multi-row statement. A batch
	// fails atomically; callers degrade to single-row batches to
	// isolate defective rows.
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]Value) error

	// DisableConstraints turns off foreign-key (and, where the provider
	// has them, unique) checks for the session.
	DisableConstraints(ctx context.Context) error

	// EnableConstraints restores the checks turned off by
	// DisableConstraints.
	EnableConstraints(ctx context.Context) error

	// Execute runs a raw SQL statement verbatim.
	Execute(ctx context.Context, sql string) error

	// Commit commits the open transaction. No-op when no transaction
	// was opened; the session tracks that with its own flag.
	Commit(ctx context.Context) error

	// CreateTableFromColumns creates a table whose column types are
	// derived from inferred value kinds (the CSV import path).
	CreateTableFromColumns(ctx context.Context, table string, columns []string, kinds []Kind) error

	// Close releases the connection.
	Close() error
}

// FilterTables applies include/exclude semantics to a table list: an
// empty include keeps everything, otherwise only listed names survive;
// exclude runs last and wins on overlap.
func FilterTables(tables, include, exclude []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if len(include) > 0 && !containsString(include, t) {
			continue
		}
		if containsString(exclude, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
