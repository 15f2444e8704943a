package mysql

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
)

// Dialect implements driver.Dialect for MySQL/MariaDB.
type Dialect struct{}

// Shared stateless instance.
var dialect = &Dialect{}

func (d *Dialect) Name() string { return "mysql" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
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
		return escapeString(v.Str)
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
	case driver.KindBool:
		return "BOOLEAN"
	case driver.KindInt:
		return "BIGINT"
	case driver.KindFloat:
		return "DOUBLE"
	case driver.KindDecimal:
		return "DECIMAL(38,10)"
	case driver.KindDate:
		return "DATE"
	case driver.KindTime:
		return "TIME"
	case driver.KindTimestamp:
		return "DATETIME(6)"
	case driver.KindBytes:
		return "LONGBLOB"
	}
	return "TEXT"
}

func (d *Dialect) DumpPreamble() []string {
	return []string{
		"/*!40101 SET @OLD_CHARACTER_SET_CLIENT=@@CHARACTER_SET_CLIENT */;",
		"/*!40101 SET @OLD_CHARACTER_SET_RESULTS=@@CHARACTER_SET_RESULTS */;",
		"/*!40101 SET @OLD_COLLATION_CONNECTION=@@COLLATION_CONNECTION */;",
		"/*!40101 SET NAMES utf8mb4 */;",
		"/*!40014 SET @OLD_UNIQUE_CHECKS=@@UNIQUE_CHECKS, UNIQUE_CHECKS=0 */;",
		"/*!40014 SET @OLD_FOREIGN_KEY_CHECKS=@@FOREIGN_KEY_CHECKS, FOREIGN_KEY_CHECKS=0 */;",
		"/*!40101 SET @OLD_SQL_MODE=@@SQL_MODE, SQL_MODE='NO_AUTO_VALUE_ON_ZERO' */;",
	}
}

func (d *Dialect) DumpPostamble() []string {
	return []string{
		"/*!40101 SET SQL_MODE=@OLD_SQL_MODE */;",
		"/*!40014 SET FOREIGN_KEY_CHECKS=@OLD_FOREIGN_KEY_CHECKS */;",
		"/*!40014 SET UNIQUE_CHECKS=@OLD_UNIQUE_CHECKS */;",
		"/*!40101 SET CHARACTER_SET_CLIENT=@OLD_CHARACTER_SET_CLIENT */;",
		"/*!40101 SET CHARACTER_SET_RESULTS=@OLD_CHARACTER_SET_RESULTS */;",
		"/*!40101 SET COLLATION_CONNECTION=@OLD_COLLATION_CONNECTION */;",
	}
}

// escapeString quotes a string MySQL-style: embedded quotes are
// doubled, and backslash, NUL, newline, carriage return and tab are
// backslash-escaped.
func escapeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 16)
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString("''")
		case '\\':
			sb.WriteString(`\\`)
		case 0:
			sb.WriteString(`\0`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// bytesLiteral renders likely-text bytes as a quoted string and
// anything else as a 0x hex literal. Empty input stays an empty string
// so it round-trips through text columns.
func bytesLiteral(b []byte) string {
	if len(b) == 0 {
		return "''"
	}
	if driver.IsLikelyText(b) {
		return escapeString(string(b))
	}
	return "0x" + hex.EncodeToString(b)
}
