package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
)

// Session implements driver.Session over one pinned PostgreSQL
// connection (pgx through database/sql).
type Session struct {
	db   *sql.DB
	conn *sql.Conn
	inTx bool
}

func open(ctx context.Context, url string) (*Session, error) {
	db, err := sql.Open("pgx", url)
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
	logging.Debug("Connected to PostgreSQL")
	return &Session{db: db, conn: conn}, nil
}

func (s *Session) Dialect() driver.Dialect { return dialect }

func (s *Session) StartConsistentSnapshot(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "BEGIN TRANSACTION ISOLATION LEVEL REPEATABLE READ"); err != nil {
		return fmt.Errorf("starting snapshot transaction: %w", err)
	}
	s.inTx = true
	return nil
}

func (s *Session) ListTables(ctx context.Context, include, exclude []string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
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

// ShowCreateTable synthesizes DDL from information_schema: PostgreSQL
// has no SHOW CREATE TABLE.
func (s *Session) ShowCreateTable(ctx context.Context, table string) (string, error) {
	schema, name := driver.SplitTableName(table)
	var schemaExpr any = schema
	if schema == "" {
		schemaExpr = nil
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = COALESCE($1::text, current_schema()) AND table_name = $2
		ORDER BY ordinal_position`, schemaExpr, name)
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
		if charMaxLen.Valid && charMaxLen.Int64 > 0 {
			typeStr = fmt.Sprintf("%s(%d)", dataType, charMaxLen.Int64)
		} else if dataType == "numeric" && numPrecision.Valid && numPrecision.Int64 > 0 {
			if numScale.Valid && numScale.Int64 > 0 {
				typeStr = fmt.Sprintf("%s(%d,%d)", dataType, numPrecision.Int64, numScale.Int64)
			} else {
				typeStr = fmt.Sprintf("%s(%d)", dataType, numPrecision.Int64)
			}
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
	var count sql.NullInt64
	err := s.conn.QueryRowContext(ctx,
		"SELECT reltuples::bigint FROM pg_class WHERE oid = to_regclass($1)", table).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("estimating rows of %q: %w", table, err)
	}
	if count.Int64 < 0 {
		// reltuples is -1 for never-analyzed tables.
		return 0, nil
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
	if _, err := s.conn.ExecContext(ctx, "SET session_replication_role = 'replica'"); err != nil {
		return fmt.Errorf("disabling constraint triggers: %w", err)
	}
	return nil
}

func (s *Session) EnableConstraints(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "SET session_replication_role = 'origin'"); err != nil {
		return fmt.Errorf("enabling constraint triggers: %w", err)
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
