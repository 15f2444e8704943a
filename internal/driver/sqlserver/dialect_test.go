package sqlserver

import (
	"strings"
	"testing"

	"github.com/sqlferry/sqlferry/internal/driver"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"users", "[users]"},
		{"we]ird", "[we]]ird]"},
		{"Order Details", "[Order Details]"},
	}
	for _, tt := range tests {
		if got := dialect.QuoteIdentifier(tt.input); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value driver.Value
		want  string
	}{
		{"null", driver.Null(), "NULL"},
		// BIT columns take 1/0, not TRUE/FALSE.
		{"true", driver.BoolVal(true), "1"},
		{"false", driver.BoolVal(false), "0"},
		{"int", driver.IntVal(5), "5"},
		{"string gets N prefix", driver.StringVal("ada"), "N'ada'"},
		{"string with quote", driver.StringVal("it's"), "N'it''s'"},
		{"binary bytes", driver.BytesVal([]byte{0xab, 0xcd}), "0xabcd"},
		{"text bytes", driver.BytesVal([]byte("readable")), "N'readable'"},
		{"date", driver.DateVal(2024, 6, 1), "'2024-06-01'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dialect.ToLiteral(tt.value); got != tt.want {
				t.Errorf("ToLiteral = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeCreateTable(t *testing.T) {
	in := "CREATE TABLE [dbo].[users] (\n  [id] bigint NOT NULL\n)"
	got := dialect.NormalizeCreateTable(in)
	want := "IF OBJECT_ID(N'[dbo].[users]', N'U') IS NULL CREATE TABLE [dbo].[users] ( [id] bigint NOT NULL )"
	if got != want {
		t.Errorf("NormalizeCreateTable =\n%q, want\n%q", got, want)
	}

	// Applying the normalizer twice must not stack guards.
	if again := dialect.NormalizeCreateTable(got); again != got {
		t.Errorf("normalizer is not idempotent:\n%q", again)
	}
}

func TestNormalizeCreateTableNonCreate(t *testing.T) {
	in := "ALTER TABLE [t] ADD [x] int"
	if got := dialect.NormalizeCreateTable(in); got != in {
		t.Errorf("non-CREATE statement changed: %q", got)
	}
}

func TestInsertValuesSQL(t *testing.T) {
	rows := [][]driver.Value{{driver.IntVal(1), driver.BoolVal(true)}}
	got := dialect.InsertValuesSQL("dbo.flags", []string{"id", "on"}, rows)
	want := "INSERT INTO [dbo].[flags] ([id], [on]) VALUES (1, 1);"
	if got != want {
		t.Errorf("InsertValuesSQL = %q, want %q", got, want)
	}
}

func TestDumpPreambleTogglesConstraints(t *testing.T) {
	pre := dialect.DumpPreamble()
	post := dialect.DumpPostamble()
	foundOff, foundOn := false, false
	for _, stmt := range pre {
		if strings.Contains(stmt, "NOCHECK CONSTRAINT ALL") {
			foundOff = true
		}
	}
	for _, stmt := range post {
		if strings.Contains(stmt, "WITH CHECK CHECK CONSTRAINT ALL") {
			foundOn = true
		}
	}
	if !foundOff || !foundOn {
		t.Errorf("constraint toggles missing: pre=%v post=%v", pre, post)
	}
}
