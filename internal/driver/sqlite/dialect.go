package sqlite

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
)

// Dialect implements driver.Dialect for SQLite.
type Dialect struct{}

var dialect = &Dialect{}

func (d *Dialect) Name() string { return "sqlite" }

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
		return driver.FloatLiteral(v.Float, "")
	case driver.KindDecimal:
		return v.Str
	case driver.KindString:
		return driver.QuoteSingle(v.Str)
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

func (d *Dialect) NormalizeCreateTable(ddl string) string {
	return driver.NormalizeCreate(ddl)
}

func (d *Dialect) ColumnType(k driver.Kind) string {
	switch k {
	case driver.KindBool, driver.KindInt:
		return "INTEGER"
	case driver.KindFloat:
		return "REAL"
	case driver.KindDecimal:
		return "NUMERIC"
	case driver.KindBytes:
		return "BLOB"
	}
	// SQLite stores dates and times as text.
	return "TEXT"
}

func (d *Dialect) DumpPreamble() []string {
	return []string{
		"PRAGMA foreign_keys=OFF;",
		"PRAGMA ignore_check_constraints=ON;",
	}
}

func (d *Dialect) DumpPostamble() []string {
	return []string{
		"PRAGMA ignore_check_constraints=OFF;",
		"PRAGMA foreign_keys=ON;",
	}
}

// bytesLiteral renders likely-text bytes as a quoted string and
// anything else as an X'..' blob literal.
func bytesLiteral(b []byte) string {
	if len(b) == 0 {
		return "''"
	}
	if driver.IsLikelyText(b) {
		return driver.QuoteSingle(string(b))
	}
	return "X'" + hex.EncodeToString(b) + "'"
}
