package sqlite

import (
	"testing"

	"github.com/sqlferry/sqlferry/internal/driver"
)

func TestToLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value driver.Value
		want  string
	}{
		{"null", driver.Null(), "NULL"},
		{"bool", driver.BoolVal(true), "TRUE"},
		{"int", driver.IntVal(7), "7"},
		{"string", driver.StringVal("it's"), "'it''s'"},
		{"binary bytes", driver.BytesVal([]byte{0xca, 0xfe}), "X'cafe'"},
		{"empty bytes", driver.BytesVal(nil), "''"},
		{"text bytes", driver.BytesVal([]byte("readable")), "'readable'"},
		{"date as text", driver.DateVal(2024, 6, 1), "'2024-06-01'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dialect.ToLiteral(tt.value); got != tt.want {
				t.Errorf("ToLiteral = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumnTypeAffinity(t *testing.T) {
	tests := []struct {
		kind driver.Kind
		want string
	}{
		{driver.KindBool, "INTEGER"},
		{driver.KindInt, "INTEGER"},
		{driver.KindFloat, "REAL"},
		{driver.KindDecimal, "NUMERIC"},
		{driver.KindBytes, "BLOB"},
		{driver.KindString, "TEXT"},
		{driver.KindDate, "TEXT"},
		{driver.KindTimestamp, "TEXT"},
	}
	for _, tt := range tests {
		if got := dialect.ColumnType(tt.kind); got != tt.want {
			t.Errorf("ColumnType(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPathFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"sqlite:///var/data/app.db", "/var/data/app.db"},
		{"sqlite:app.db", "app.db"},
		{"app.db", "app.db"},
		{":memory:", ":memory:"},
	}
	for _, tt := range tests {
		if got := pathFromURL(tt.input); got != tt.want {
			t.Errorf("pathFromURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDumpPreamblePragmas(t *testing.T) {
	pre := dialect.DumpPreamble()
	if len(pre) != 2 || pre[0] != "PRAGMA foreign_keys=OFF;" {
		t.Errorf("preamble = %v", pre)
	}
	post := dialect.DumpPostamble()
	if len(post) != 2 || post[len(post)-1] != "PRAGMA foreign_keys=ON;" {
		t.Errorf("postamble = %v", post)
	}
}
