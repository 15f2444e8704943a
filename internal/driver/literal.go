package driver

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shared literal formatting used by the dialect implementations. The
// dialects differ in quoting style, byte literals, and keyword
// prefixes; the digit layout is common.

// FloatLiteral renders a float. Finite values use Go's shortest
// round-trip decimal form. NaN and the infinities have no SQL literal
// form, so they render as quoted sentinel strings with the dialect's
// optional cast suffix appended (e.g. "::float8").
func FloatLiteral(f float64, cast string) string {
	switch {
	case math.IsNaN(f):
		return "'NaN'" + cast
	case math.IsInf(f, 1):
		return "'Infinity'" + cast
	case math.IsInf(f, -1):
		return "'-Infinity'" + cast
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// DateLiteral renders a zero-padded date with the dialect's optional
// type keyword prefix ("DATE " for providers that need it).
func DateLiteral(d Date, prefix string) string {
	return fmt.Sprintf("%s'%04d-%02d-%02d'", prefix, d.Year, d.Month, d.Day)
}

// TimeLiteral renders a wall-clock time. The microsecond fraction is
// omitted entirely when zero, otherwise exactly six digits.
func TimeLiteral(t TimeOfDay, prefix string) string {
	sign := ""
	if t.Neg {
		sign = "-"
	}
	if t.Micro == 0 {
		return fmt.Sprintf("%s'%s%02d:%02d:%02d'", prefix, sign, t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%s'%s%02d:%02d:%02d.%06d'", prefix, sign, t.Hour, t.Minute, t.Second, t.Micro)
}

// TimestampLiteral renders a date-time; same microsecond rule as
// TimeLiteral.
func TimestampLiteral(ts Timestamp, prefix string) string {
	if ts.Micro == 0 {
		return fmt.Sprintf("%s'%04d-%02d-%02d %02d:%02d:%02d'",
			prefix, ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
	}
	return fmt.Sprintf("%s'%04d-%02d-%02d %02d:%02d:%02d.%06d'",
		prefix, ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second, ts.Micro)
}

// QuoteSingle wraps s in single quotes, doubling embedded quote
// characters and applying no backslash escaping. This is the ANSI
// string form used by PostgreSQL, SQLite and SQL Server.
func QuoteSingle(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	sb.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			sb.WriteByte('\'')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('\'')
	return sb.String()
}
