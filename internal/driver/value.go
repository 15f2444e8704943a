package driver

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind identifies which variant of a Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindBytes
	KindDate
	KindTime
	KindTimestamp
)

// String returns a short name for the kind, used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month int
	Day   int
}

// TimeOfDay is a wall-clock time. Neg covers providers whose TIME type
// admits negative durations (MySQL).
type TimeOfDay struct {
	Neg    bool
	Hour   int
	Minute int
	Second int
	Micro  int
}

// Timestamp is a date plus wall-clock time, microsecond precision.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	Micro  int
}

// Value is the neutral column value representation shared by every
// provider. Exactly one variant is active, selected by Kind; the other
// fields are zero. Decimal and String share the Str payload.
//
// Decimal carries the provider's numeric text verbatim and is never
// reparsed, so arbitrary-precision values survive the trip.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bytes []byte
	Date  Date
	Time  TimeOfDay
	TS    Timestamp
}

// Null returns the NULL value.
func Null() Value { return Value{Kind: KindNull} }

// BoolVal wraps a boolean.
func BoolVal(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IntVal wraps a signed integer.
func IntVal(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatVal wraps a float, including NaN and the infinities.
func FloatVal(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// DecimalVal wraps an exact numeric literal, passed through verbatim.
func DecimalVal(s string) Value { return Value{Kind: KindDecimal, Str: s} }

// StringVal wraps UTF-8 text.
func StringVal(s string) Value { return Value{Kind: KindString, Str: s} }

// BytesVal wraps arbitrary octets.
func BytesVal(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// DateVal wraps a calendar date.
func DateVal(year, month, day int) Value {
	return Value{Kind: KindDate, Date: Date{Year: year, Month: month, Day: day}}
}

// TimeVal wraps a wall-clock time.
func TimeVal(t TimeOfDay) Value { return Value{Kind: KindTime, Time: t} }

// TimestampVal wraps a date-time.
func TimestampVal(ts Timestamp) Value { return Value{Kind: KindTimestamp, TS: ts} }

// TimestampOf converts a time.Time into the Timestamp variant,
// truncating to microseconds.
func TimestampOf(t time.Time) Value {
	return TimestampVal(Timestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Micro:  t.Nanosecond() / 1000,
	})
}

// DateOf converts a time.Time into the Date variant, dropping the time
// component.
func DateOf(t time.Time) Value {
	return DateVal(t.Year(), int(t.Month()), t.Day())
}

// TimeOf converts a time.Time into the TimeOfDay variant, keeping only
// the clock reading.
func TimeOf(t time.Time) Value {
	return TimeVal(TimeOfDay{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Micro:  t.Nanosecond() / 1000,
	})
}

// String renders the value for diagnostics. This is not a SQL literal;
// dialects own that rendering.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDecimal:
		return v.Str
	case KindString:
		return strconv.Quote(v.Str)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.Bytes))
	case KindDate:
		return fmt.Sprintf("%04d-%02d-%02d", v.Date.Year, v.Date.Month, v.Date.Day)
	case KindTime:
		sign := ""
		if v.Time.Neg {
			sign = "-"
		}
		return fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, v.Time.Hour, v.Time.Minute, v.Time.Second, v.Time.Micro)
	case KindTimestamp:
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d",
			v.TS.Year, v.TS.Month, v.TS.Day, v.TS.Hour, v.TS.Minute, v.TS.Second, v.TS.Micro)
	}
	return "?"
}

// maxRowSummaryLen bounds the rendered row in failure diagnostics.
const maxRowSummaryLen = 200

// SummarizeRow renders a row's values for an error message, truncated
// to 200 characters so one bad blob cannot flood the report.
func SummarizeRow(row []Value) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range row {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
		if sb.Len() > maxRowSummaryLen {
			break
		}
	}
	sb.WriteByte(']')
	s := sb.String()
	if len(s) > maxRowSummaryLen {
		cut := maxRowSummaryLen
		// Back up so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

// IsLikelyText reports whether a byte sequence should be treated as a
// string rather than a binary blob: valid UTF-8 with at least 90%
// printable bytes. The declared column type is deliberately not
// consulted; extraction decides.
func IsLikelyText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	printable := 0
	for _, c := range b {
		if (c >= 32 && c < 127) || c == '\n' || c == '\r' || c == '\t' {
			printable++
		}
	}
	return printable*10 >= len(b)*9
}
