package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Session implements driver.Session over one pinned SQLite connection.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
	inTx bool
}

func open(ctx context.Context, path string) (*Session, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	logging.Debug("Opened SQLite database %s", path)
	return &Session{db: db, conn: conn}, nil
}

func (s *Session) Dialect() driver.Dialect { return dialect }

// StartConsistentSnapshot opens a deferred transaction; SQLite reads
// inside a transaction already observe one snapshot.
func (s *Session) StartConsistentSnapshot(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "BEGIN"); err != nil {
		return fmt.Errorf("starting snapshot transaction: %w", err)
	}
	s.inTx = true
	return nil
}

func (s *Session) ListTables(ctx context.Context, include, exclude []string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return driver.FilterTables(tables, include, exclude), nil
}

func (s *Session) ShowCreateTable(ctx context.Context, table string) (string, error) {
	_, name := driver.SplitTableName(table)
	var ddl string
	err := s.conn.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&ddl)
	if err != nil {
		return "", fmt.Errorf("fetching CREATE TABLE for %q: %w", table, err)
	}
	return dialect.NormalizeCreateTable(ddl), nil
}

func (s *Session) StreamRows(ctx context.Context, table string) ([]string, driver.RowStream, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT * FROM "+driver.QualifyTable(dialect, table))
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows from %q: %w", table, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("reading columns of %q: %w", table, err)
	}
	stream, err := driver.NewSQLRowStream(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("streaming %q: %w", table, err)
	}
	return columns, stream, nil
}

// ApproximateRowCount counts directly; SQLite keeps no cheap estimate
// and local scans are fast enough for a progress total.
func (s *Session) ApproximateRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+driver.QualifyTable(dialect, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %q: %w", table, err)
	}
	return count, nil
}

func (s *Session) InsertBatch(ctx context.Context, table string, columns []string, rows [][]driver.Value) error {
	if len(rows) == 0 {
		return nil
	}
	stmt := dialect.InsertValuesSQL(table, columns, rows)
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("inserting batch into %q: %w", table, err)
	}
	return nil
}

func (s *Session) DisableConstraints(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "PRAGMA ignore_check_constraints=ON"); err != nil {
		return fmt.Errorf("disabling check constraints: %w", err)
	}
	return nil
}

func (s *Session) EnableConstraints(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "PRAGMA ignore_check_constraints=OFF"); err != nil {
		return fmt.Errorf("enabling check constraints: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	return nil
}

func (s *Session) Execute(ctx context.Context, stmt string) error {
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if !s.inTx {
		return nil
	}
	if _, err := s.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.inTx = false
	return nil
}

func (s *Session) CreateTableFromColumns(ctx context.Context, table string, columns []string, kinds []driver.Kind) error {
	stmt := driver.CreateTableSQL(dialect, table, columns, kinds)
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating table %q: %w", table, err)
	}
	return nil
}

func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return s.db.Close()
}
