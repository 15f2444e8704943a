package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
)

// Session implements driver.Session over one pinned SQL Server
// connection.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
	inTx bool
}

func open(ctx context.Context, url string) (*Session, error) {
	db, err := sql.Open("sqlserver", url)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
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
	logging.Debug("Connected to SQL Server")
	return &Session{db: db, conn: conn}, nil
}

func (s *Session) Dialect() driver.Dialect { return dialect }

func (s *Session) StartConsistentSnapshot(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "SET TRANSACTION ISOLATION LEVEL SNAPSHOT"); err != nil {
		return fmt.Errorf("setting isolation level: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("starting snapshot transaction: %w", err)
	}
	s.inTx = true
	return nil
}

// ListTables returns base tables, schema-qualified unless they live in
// dbo.
func (s *Session) ListTables(ctx context.Context, include, exclude []string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA, TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		if schema != "" && schema != "dbo" {
			name = schema + "." + name
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return driver.FilterTables(tables, include, exclude), nil
}

// ShowCreateTable synthesizes DDL from INFORMATION_SCHEMA: SQL Server
// has no SHOW CREATE TABLE.
func (s *Session) ShowCreateTable(ctx context.Context, table string) (string, error) {
	schema, name := driver.SplitTableName(table)
	if schema == "" {
		schema = "dbo"
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT
			COLUMN_NAME,
			DATA_TYPE,
			CHARACTER_MAXIMUM_LENGTH,
			NUMERIC_PRECISION,
			NUMERIC_SCALE,
			IS_NULLABLE,
			COLUMN_DEFAULT
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION`, schema, name)
	if err != nil {
		return "", fmt.Errorf("introspecting %q: %w", table, err)
	}
	defer rows.Close()

	var defs []string
	for rows.Next() {
		var colName, dataType, isNullable string
		var charMaxLen, numPrecision, numScale sql.NullInt64
		var colDefault sql.NullString
		if err := rows.Scan(&colName, &dataType, &charMaxLen, &numPrecision, &numScale, &isNullable, &colDefault); err != nil {
			return "", fmt.Errorf("introspecting %q: %w", table, err)
		}

		typeStr := dataType
		switch {
		case charMaxLen.Valid && charMaxLen.Int64 > 0:
			typeStr = fmt.Sprintf("%s(%d)", dataType, charMaxLen.Int64)
		case charMaxLen.Valid && charMaxLen.Int64 == -1:
			typeStr = dataType + "(MAX)"
		case isDecimalType(dataType) && numPrecision.Valid:
			typeStr = fmt.Sprintf("%s(%d,%d)", dataType, numPrecision.Int64, numScale.Int64)
		}

		def := dialect.QuoteIdentifier(colName) + " " + typeStr
		if isNullable == "NO" {
			def += " NOT NULL"
		}
		if colDefault.Valid && colDefault.String != "" {
			def += " DEFAULT " + colDefault.String
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("introspecting %q: %w", table, err)
	}
	if len(defs) == 0 {
		return "", fmt.Errorf("introspecting %q: table not found", table)
	}

	ddl := "CREATE TABLE " + driver.QualifyTable(dialect, table) + " (" + strings.Join(defs, ", ") + ")"
	return dialect.NormalizeCreateTable(ddl), nil
}

func isDecimalType(dataType string) bool {
	switch strings.ToLower(dataType) {
	case "decimal", "numeric":
		return true
	}
	return false
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
	schema, name := driver.SplitTableName(table)
	if schema == "" {
		schema = "dbo"
	}
	qualified := dialect.QuoteIdentifier(schema) + "." + dialect.QuoteIdentifier(name)
	var count sql.NullInt64
	err := s.conn.QueryRowContext(ctx, `
		SELECT SUM(p.rows) FROM sys.partitions p
		WHERE p.object_id = OBJECT_ID(@p1) AND p.index_id IN (0, 1)`, qualified).Scan(&count)
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
	if _, err := s.conn.ExecContext(ctx, "EXEC sp_MSforeachtable 'ALTER TABLE ? NOCHECK CONSTRAINT ALL'"); err != nil {
		return fmt.Errorf("disabling constraints: %w", err)
	}
	return nil
}

func (s *Session) EnableConstraints(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "EXEC sp_MSforeachtable 'ALTER TABLE ? WITH CHECK CHECK CONSTRAINT ALL'"); err != nil {
		return fmt.Errorf("enabling constraints: %w", err)
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
	if _, err := s.conn.ExecContext(ctx, "COMMIT TRANSACTION"); err != nil {
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
