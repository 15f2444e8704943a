package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
)

// Session implements driver.Session over one pinned MySQL connection.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
	inTx bool
}

func open(ctx context.Context, rawURL string) (*Session, error) {
	dsn, err := dsnFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	// One connection per session; the contract forbids sharing.
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

	var version string
	conn.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	logging.Debug("Connected to MySQL (%s)", version)

	return &Session{db: db, conn: conn}, nil
}

func (s *Session) Dialect() driver.Dialect { return dialect }

func (s *Session) StartConsistentSnapshot(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "SET SESSION TRANSACTION ISOLATION LEVEL REPEATABLE READ"); err != nil {
		return fmt.Errorf("setting isolation level: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "START TRANSACTION WITH CONSISTENT SNAPSHOT"); err != nil {
		return fmt.Errorf("starting snapshot transaction: %w", err)
	}
	s.inTx = true
	return nil
}

func (s *Session) ListTables(ctx context.Context, include, exclude []string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, "SHOW TABLES")
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
	query := "SHOW CREATE TABLE " + driver.QualifyTable(dialect, table)
	var name, ddl string
	if err := s.conn.QueryRowContext(ctx, query).Scan(&name, &ddl); err != nil {
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

func (s *Session) ApproximateRowCount(ctx context.Context, table string) (int64, error) {
	_, name := driver.SplitTableName(table)
	var count sql.NullInt64
	err := s.conn.QueryRowContext(ctx,
		"SELECT TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?",
		name).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("estimating rows of %q: %w", table, err)
	}
	return count.Int64, nil
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
	if _, err := s.conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS=0"); err != nil {
		return fmt.Errorf("disabling foreign key checks: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "SET UNIQUE_CHECKS=0"); err != nil {
		return fmt.Errorf("disabling unique checks: %w", err)
	}
	return nil
}

func (s *Session) EnableConstraints(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS=1"); err != nil {
		return fmt.Errorf("enabling foreign key checks: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "SET UNIQUE_CHECKS=1"); err != nil {
		return fmt.Errorf("enabling unique checks: %w", err)
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
