package driver

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLRowStream adapts *sql.Rows into a RowStream. Every provider in
// this repository speaks database/sql, so the scan loop and the
// neutral-value conversion live here once; providers only differ in the
// query that produced the rows.
type SQLRowStream struct {
	rows    *sql.Rows
	dbTypes []string
	current []Value
	err     error
	closed  bool
}

// NewSQLRowStream wraps rows. It reads the column metadata once; the
// database type names drive the Decimal and Time conversions.
func NewSQLRowStream(rows *sql.Rows) (*SQLRowStream, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("reading column types: %w", err)
	}
	dbTypes := make([]string, len(colTypes))
	for i, ct := range colTypes {
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
	}
	return &SQLRowStream{rows: rows, dbTypes: dbTypes}, nil
}

// Next advances the cursor, scanning and converting the next row.
func (s *SQLRowStream) Next() bool {
	if s.err != nil || s.closed {
		return false
	}
	if !s.rows.Next() {
		s.err = s.rows.Err()
		s.Close()
		return false
	}
	raw := make([]any, len(s.dbTypes))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		s.err = fmt.Errorf("scanning row: %w", err)
		s.Close()
		return false
	}
	row := make([]Value, len(raw))
	for i, v := range raw {
		row[i] = FromSQL(v, s.dbTypes[i])
	}
	s.current = row
	return true
}

// Row returns the row produced by the last successful Next.
func (s *SQLRowStream) Row() []Value { return s.current }

// Err reports the error that ended iteration, if any.
func (s *SQLRowStream) Err() error { return s.err }

// Close releases the underlying cursor.
func (s *SQLRowStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rows.Close()
}

// FromSQL converts a value scanned from database/sql into the neutral
// representation. dbType is the driver-reported database type name,
// uppercased; it decides the Decimal pass-through and the TIME parse.
// Whether bytes become String or Bytes is the extraction-time
// likely-text heuristic, not the declared column type.
func FromSQL(v any, dbType string) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return BoolVal(x)
	case int64:
		return IntVal(x)
	case int32:
		return IntVal(int64(x))
	case int:
		return IntVal(int64(x))
	case float64:
		return FloatVal(x)
	case float32:
		return FloatVal(float64(x))
	case time.Time:
		switch dbType {
		case "DATE":
			return DateOf(x)
		case "TIME", "TIMETZ":
			return TimeOf(x)
		}
		return TimestampOf(x)
	case string:
		return textValue(x, dbType)
	case []byte:
		if isDecimalType(dbType) {
			return DecimalVal(string(x))
		}
		// The MySQL text protocol scans every numeric column as bytes;
		// recover the typed value from the column type name.
		if isIntegerType(dbType) {
			if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
				return IntVal(n)
			}
		}
		if isFloatType(dbType) {
			if f, err := strconv.ParseFloat(string(x), 64); err == nil {
				return FloatVal(f)
			}
		}
		if dbType == "TIME" {
			if tod, err := ParseTimeOfDay(string(x)); err == nil {
				return TimeVal(tod)
			}
		}
		if IsLikelyText(x) {
			return StringVal(string(x))
		}
		// Copy: the driver may reuse the buffer on the next scan.
		b := make([]byte, len(x))
		copy(b, x)
		return BytesVal(b)
	}
	return StringVal(fmt.Sprint(v))
}

func textValue(s, dbType string) Value {
	if isDecimalType(dbType) {
		return DecimalVal(s)
	}
	if isIntegerType(dbType) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntVal(n)
		}
	}
	if isFloatType(dbType) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatVal(f)
		}
	}
	if dbType == "TIME" {
		if tod, err := ParseTimeOfDay(s); err == nil {
			return TimeVal(tod)
		}
	}
	return StringVal(s)
}

func isDecimalType(dbType string) bool {
	switch dbType {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// isIntegerType matches the integer column type names the drivers
// report. A value that overflows int64 (an out-of-range UNSIGNED
// BIGINT) falls through to the text path unharmed.
func isIntegerType(dbType string) bool {
	switch strings.TrimPrefix(dbType, "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return true
	}
	return false
}

func isFloatType(dbType string) bool {
	switch dbType {
	case "FLOAT", "DOUBLE", "REAL":
		return true
	}
	return false
}

// ParseTimeOfDay parses "[-]H:MM:SS[.ffffff]". The hour field may
// exceed two digits (MySQL TIME spans -838:59:59..838:59:59).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var tod TimeOfDay
	rest := s
	if strings.HasPrefix(rest, "-") {
		tod.Neg = true
		rest = rest[1:]
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("malformed time %q", s)
	}
	sec := parts[2]
	if i := strings.Index(sec, "."); i >= 0 {
		frac := sec[i+1:]
		sec = sec[:i]
		if len(frac) > 6 {
			frac = frac[:6]
		}
		for len(frac) < 6 {
			frac += "0"
		}
		us, err := strconv.Atoi(frac)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("malformed time %q", s)
		}
		tod.Micro = us
	}
	var err error
	if tod.Hour, err = strconv.Atoi(parts[0]); err != nil {
		return TimeOfDay{}, fmt.Errorf("malformed time %q", s)
	}
	if tod.Minute, err = strconv.Atoi(parts[1]); err != nil {
		return TimeOfDay{}, fmt.Errorf("malformed time %q", s)
	}
	if tod.Second, err = strconv.Atoi(sec); err != nil {
		return TimeOfDay{}, fmt.Errorf("malformed time %q", s)
	}
	return tod, nil
}
