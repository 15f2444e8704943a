package sqlserver

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
)

// Dialect implements driver.Dialect for SQL Server.
type Dialect struct{}

var dialect = &Dialect{}

func (d *Dialect) Name() string { return "sqlserver" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *Dialect) ToLiteral(v driver.Value) string {
	switch v.Kind {
	case driver.KindNull:
		return "NULL"
	case driver.KindBool:
		// T-SQL has no boolean literals; BIT takes 1/0.
		if v.Bool {
			return "1"
		}
		return "0"
	case driver.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case driver.KindFloat:
		return driver.FloatLiteral(v.Float, "")
	case driver.KindDecimal:
		return v.Str
	case driver.KindString:
		return "N" + driver.QuoteSingle(v.Str)
	case driver.KindBytes:
		return bytesLiteral(v.Bytes)
	case driver.KindDate:
		return driver.DateLiteral(v.Date, "")
	case driver.KindTime:
		return driver.TimeLiteral(v.Time, "")
	case driver.KindTimestamp:
		return driver.TimestampLiteral(v.TS, "")
	}
	return "NULL"
}

func (d *Dialect) InsertValuesSQL(table string, columns []string, rows [][]driver.Value) string {
	return driver.BuildInsertSQL(d, table, columns, rows)
}

func (d *Dialect) DropTableStatement(table string) string {
	return driver.DropTableSQL(d, table)
}

// NormalizeCreateTable collapses DDL to one line and guards it with an
// OBJECT_ID check: SQL Server's CREATE TABLE has no IF NOT EXISTS
// clause. The table name is lifted from its fixed position between the
// CREATE TABLE keyword and the column list.
func (d *Dialect) NormalizeCreateTable(ddl string) string {
	s := driver.SingleLine(ddl)
	if !strings.HasPrefix(s, "CREATE TABLE ") || strings.HasPrefix(s, "IF OBJECT_ID") {
		return s
	}
	rest := strings.TrimPrefix(s, "CREATE TABLE ")
	paren := strings.Index(rest, " (")
	if paren < 0 {
		return s
	}
	name := strings.TrimSpace(rest[:paren])
	return "IF OBJECT_ID(N'" + strings.ReplaceAll(name, "'", "''") + "', N'U') IS NULL " + s
}

func (d *Dialect) ColumnType(k driver.Kind) string {
	switch k {
	case driver.KindBool:
		return "BIT"
	case driver.KindInt:
		return "BIGINT"
	case driver.KindFloat:
		return "FLOAT"
	case driver.KindDecimal:
		return "DECIMAL(38,10)"
	case driver.KindDate:
		return "DATE"
	case driver.KindTime:
		return "TIME"
	case driver.KindTimestamp:
		return "DATETIME2"
	case driver.KindBytes:
		return "VARBINARY(MAX)"
	}
	return "NVARCHAR(MAX)"
}

func (d *Dialect) DumpPreamble() []string {
	return []string{
		"SET NOCOUNT ON;",
		"EXEC sp_MSforeachtable 'ALTER TABLE ? NOCHECK CONSTRAINT ALL';",
	}
}

func (d *Dialect) DumpPostamble() []string {
	return []string{
		"EXEC sp_MSforeachtable 'ALTER TABLE ? WITH CHECK CHECK CONSTRAINT ALL';",
	}
}

// bytesLiteral renders likely-text bytes as a quoted string and
// anything else as a 0x hex literal.
func bytesLiteral(b []byte) string {
	if len(b) == 0 {
		return "''"
	}
	if driver.IsLikelyText(b) {
		return "N" + driver.QuoteSingle(string(b))
	}
	return "0x" + hex.EncodeToString(b)
}
