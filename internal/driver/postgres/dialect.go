package postgres

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
)

// Dialect implements driver.Dialect for PostgreSQL.
type Dialect struct{}

var dialect = &Dialect{}

func (d *Dialect) Name() string { return "postgres" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) ToLiteral(v driver.Value) string {
	switch v.Kind {
	case driver.KindNull:
		return "NULL"
	case driver.KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case driver.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case driver.KindFloat:
		return driver.FloatLiteral(v.Float, "::float8")
	case driver.KindDecimal:
		return v.Str
	case driver.KindString:
		return driver.QuoteSingle(v.Str)
	case driver.KindBytes:
		return bytesLiteral(v.Bytes)
	case driver.KindDate:
		return driver.DateLiteral(v.Date, "DATE ")
	case driver.KindTime:
		return driver.TimeLiteral(v.Time, "TIME ")
	case driver.KindTimestamp:
		return driver.TimestampLiteral(v.TS, "TIMESTAMP ")
	}
	return "NULL"
}

func (d *Dialect) InsertValuesSQL(table string, columns []string, rows [][]driver.Value) string {
	return driver.BuildInsertSQL(d, table, columns, rows)
}

func (d *Dialect) DropTableStatement(table string) string {
	return driver.DropTableSQL(d, table)
}

func (d *Dialect) NormalizeCreateTable(ddl string) string {
	return driver.NormalizeCreate(ddl)
}

func (d *Dialect) ColumnType(k driver.Kind) string {
	switch k {
	case driver.KindBool:
		return "BOOLEAN"
	case driver.KindInt:
		return "BIGINT"
	case driver.KindFloat:
		return "DOUBLE PRECISION"
	case driver.KindDecimal:
		return "NUMERIC"
	case driver.KindDate:
		return "DATE"
	case driver.KindTime:
		return "TIME"
	case driver.KindTimestamp:
		return "TIMESTAMP"
	case driver.KindBytes:
		return "BYTEA"
	}
	return "TEXT"
}

func (d *Dialect) DumpPreamble() []string {
	return []string{
		"SET client_encoding = 'UTF8';",
		"SET statement_timeout = 0;",
		"SET session_replication_role = 'replica';",
	}
}

func (d *Dialect) DumpPostamble() []string {
	return []string{
		"SET session_replication_role = 'origin';",
	}
}

// bytesLiteral renders likely-text bytes as a quoted string and
// anything else as a bytea hex literal.
func bytesLiteral(b []byte) string {
	if len(b) > 0 && driver.IsLikelyText(b) {
		return driver.QuoteSingle(string(b))
	}
	return `'\x` + hex.EncodeToString(b) + `'::bytea`
}
