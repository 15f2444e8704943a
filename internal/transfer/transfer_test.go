package transfer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/driver/sqlite"
)

// fakeStream replays a fixed set of rows.
type fakeStream struct {
	rows [][]driver.Value
	pos  int
}

func (s *fakeStream) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Row() []driver.Value { return s.rows[s.pos-1] }
func (s *fakeStream) Err() error          { return nil }
func (s *fakeStream) Close() error        { return nil }

// fakeSession serves one in-memory table.
type fakeSession struct {
	table   string
	columns []string
	rows    [][]driver.Value

	snapshotStarted bool
}

func (s *fakeSession) Dialect() driver.Dialect { return (&sqlite.Driver{}).Dialect() }

func (s *fakeSession) StartConsistentSnapshot(ctx context.Context) error {
	s.snapshotStarted = true
	return nil
}

func (s *fakeSession) ListTables(ctx context.Context, include, exclude []string) ([]string, error) {
	return driver.FilterTables([]string{s.table}, include, exclude), nil
}

func (s *fakeSession) ShowCreateTable(ctx context.Context, table string) (string, error) {
	return fmt.Sprintf("CREATE TABLE %q (id INTEGER, name TEXT)", table), nil
}

func (s *fakeSession) StreamRows(ctx context.Context, table string) ([]string, driver.RowStream, error) {
	return s.columns, &fakeStream{rows: s.rows}, nil
}

func (s *fakeSession) ApproximateRowCount(ctx context.Context, table string) (int64, error) {
	return int64(len(s.rows)), nil
}

func (s *fakeSession) InsertBatch(ctx context.Context, table string, columns []string, rows [][]driver.Value) error {
	return nil
}

func (s *fakeSession) DisableConstraints(ctx context.Context) error { return nil }
func (s *fakeSession) EnableConstraints(ctx context.Context) error  { return nil }
func (s *fakeSession) Execute(ctx context.Context, sql string) error {
	return nil
}
func (s *fakeSession) Commit(ctx context.Context) error { return nil }
func (s *fakeSession) CreateTableFromColumns(ctx context.Context, table string, columns []string, kinds []driver.Kind) error {
	return nil
}
func (s *fakeSession) Close() error { return nil }

// recordingDest captures everything the pipeline sends it. Rows whose
// first value matches poison are rejected.
type recordingDest struct {
	schemas []string
	batches [][][]driver.Value
	rows    [][]driver.Value
	poison  driver.Value
}

func (d *recordingDest) ApplySchema(ctx context.Context, table, dropStmt, createStmt string) error {
	d.schemas = append(d.schemas, dropStmt, createStmt)
	return nil
}

func (d *recordingDest) BeginTableData(ctx context.Context, table string, approxRows int64) error {
	return nil
}

func (d *recordingDest) InsertBatch(ctx context.Context, table string, columns []string, rows [][]driver.Value) error {
	for _, row := range rows {
		if d.poison.Kind != driver.KindNull && len(row) > 0 && row[0].String() == d.poison.String() {
			return fmt.Errorf("constraint violation")
		}
	}
	d.batches = append(d.batches, rows)
	d.rows = append(d.rows, rows...)
	return nil
}

func makeRows(n int) [][]driver.Value {
	rows := make([][]driver.Value, n)
	for i := range rows {
		rows[i] = []driver.Value{
			driver.IntVal(int64(i + 1)),
			driver.StringVal(fmt.Sprintf("row-%d", i+1)),
		}
	}
	return rows
}

func newFakeSession(n int) *fakeSession {
	return &fakeSession{
		table:   "items",
		columns: []string{"id", "name"},
		rows:    makeRows(n),
	}
}

func TestRunBatchesRows(t *testing.T) {
	src := newFakeSession(3)
	dest := &recordingDest{}

	results, err := Run(context.Background(), src, dest, Options{BatchRows: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Rows != 3 {
		t.Fatalf("results = %+v, want one table with 3 rows", results)
	}
	// 3 rows with batch size 2 means a full batch then a remainder.
	if len(dest.batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(dest.batches))
	}
	if len(dest.batches[0]) != 2 || len(dest.batches[1]) != 1 {
		t.Errorf("batch sizes = %d, %d; want 2, 1", len(dest.batches[0]), len(dest.batches[1]))
	}
	// Rows arrive in stream order.
	for i, row := range dest.rows {
		if row[0].Int != int64(i+1) {
			t.Errorf("row %d has id %d, want %d", i, row[0].Int, i+1)
		}
	}
}

func TestRunAppliesSchemaFirst(t *testing.T) {
	src := newFakeSession(1)
	dest := &recordingDest{}

	if _, err := Run(context.Background(), src, dest, Options{BatchRows: 10}); err != nil {
		t.Fatal(err)
	}
	if len(dest.schemas) != 2 {
		t.Fatalf("schemas = %v", dest.schemas)
	}
	if !strings.HasPrefix(dest.schemas[0], "DROP TABLE IF EXISTS") {
		t.Errorf("drop statement = %q", dest.schemas[0])
	}
	if !strings.Contains(dest.schemas[1], "CREATE TABLE IF NOT EXISTS") {
		t.Errorf("create statement should be normalized, got %q", dest.schemas[1])
	}
}

func TestRunSchemaOnly(t *testing.T) {
	src := newFakeSession(5)
	dest := &recordingDest{}

	results, err := Run(context.Background(), src, dest, Options{BatchRows: 10, SchemaOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(dest.schemas) == 0 {
		t.Error("schema-only run should still emit schema")
	}
	if len(dest.rows) != 0 {
		t.Errorf("schema-only run wrote %d rows", len(dest.rows))
	}
	if results[0].Rows != 0 {
		t.Errorf("result rows = %d, want 0", results[0].Rows)
	}
}

func TestRunDataOnly(t *testing.T) {
	src := newFakeSession(2)
	dest := &recordingDest{}

	if _, err := Run(context.Background(), src, dest, Options{BatchRows: 10, DataOnly: true}); err != nil {
		t.Fatal(err)
	}
	if len(dest.schemas) != 0 {
		t.Errorf("data-only run emitted schema: %v", dest.schemas)
	}
	if len(dest.rows) != 2 {
		t.Errorf("wrote %d rows, want 2", len(dest.rows))
	}
}

func TestRunSkipErrorsRecordsFailure(t *testing.T) {
	src := newFakeSession(4)
	dest := &recordingDest{poison: driver.IntVal(3)}

	results, err := Run(context.Background(), src, dest, Options{BatchRows: 2, SkipErrors: true})
	if err != nil {
		t.Fatalf("Run with skip-errors should not fail: %v", err)
	}
	r := results[0]
	if r.Rows != 3 {
		t.Errorf("rows = %d, want 3", r.Rows)
	}
	if len(r.Failures) != 1 {
		t.Fatalf("failures = %+v, want exactly one", r.Failures)
	}
	f := r.Failures[0]
	if f.Ordinal != 3 {
		t.Errorf("failure ordinal = %d, want 3", f.Ordinal)
	}
	if !strings.Contains(f.Detail, "constraint violation") {
		t.Errorf("failure detail %q should carry the error", f.Detail)
	}
	if !strings.Contains(f.Detail, "row-3") {
		t.Errorf("failure detail %q should summarize the row", f.Detail)
	}
	// The other row of the poisoned batch must survive the fallback.
	if len(dest.rows) != 3 {
		t.Errorf("wrote %d rows, want 3", len(dest.rows))
	}
}

func TestRunAbortsWithoutSkipErrors(t *testing.T) {
	src := newFakeSession(4)
	dest := &recordingDest{poison: driver.IntVal(3)}

	_, err := Run(context.Background(), src, dest, Options{BatchRows: 2})
	if err == nil {
		t.Fatal("expected run to abort on the bad row")
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("error %q should name the failing row ordinal", err)
	}
}

func TestRunConsistentSnapshot(t *testing.T) {
	src := newFakeSession(1)
	dest := &recordingDest{}

	if _, err := Run(context.Background(), src, dest, Options{BatchRows: 10, ConsistentSnapshot: true}); err != nil {
		t.Fatal(err)
	}
	if !src.snapshotStarted {
		t.Error("consistent snapshot was not started on the source")
	}
}

func TestRunTableFilters(t *testing.T) {
	src := newFakeSession(1)
	dest := &recordingDest{}

	results, err := Run(context.Background(), src, dest, Options{BatchRows: 10, Exclude: []string{"items"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("excluded table was transferred: %+v", results)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{BatchRows: 1000}, false},
		{"schema and data only", Options{BatchRows: 10, SchemaOnly: true, DataOnly: true}, true},
		{"zero batch", Options{}, true},
		{"negative batch", Options{BatchRows: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
