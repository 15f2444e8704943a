package driver

import (
	"strings"
	"testing"
)

// ansiDialect is a minimal double-quote dialect for exercising the
// shared SQL builders.
type ansiDialect struct{}

func (ansiDialect) Name() string { return "ansi" }
func (ansiDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (d ansiDialect) ToLiteral(v Value) string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return v.String()
	case KindString:
		return QuoteSingle(v.Str)
	}
	return v.String()
}
func (d ansiDialect) InsertValuesSQL(table string, columns []string, rows [][]Value) string {
	return BuildInsertSQL(d, table, columns, rows)
}
func (d ansiDialect) DropTableStatement(table string) string { return DropTableSQL(d, table) }
func (d ansiDialect) NormalizeCreateTable(ddl string) string { return NormalizeCreate(ddl) }
func (ansiDialect) ColumnType(k Kind) string                 { return "TEXT" }
func (ansiDialect) DumpPreamble() []string                   { return nil }
func (ansiDialect) DumpPostamble() []string                  { return nil }

func TestSplitTableName(t *testing.T) {
	tests := []struct {
		input  string
		schema string
		table  string
	}{
		{"users", "", "users"},
		{"public.users", "public", "users"},
		{"a.b.c", "a", "b.c"},
		{".users", "", ".users"},
		{"", "", ""},
	}
	for _, tt := range tests {
		schema, table := SplitTableName(tt.input)
		if schema != tt.schema || table != tt.table {
			t.Errorf("SplitTableName(%q) = (%q, %q), want (%q, %q)",
				tt.input, schema, table, tt.schema, tt.table)
		}
	}
}

func TestQualifyTable(t *testing.T) {
	d := ansiDialect{}
	if got := QualifyTable(d, "users"); got != `"users"` {
		t.Errorf("QualifyTable = %q", got)
	}
	if got := QualifyTable(d, "public.users"); got != `"public"."users"` {
		t.Errorf("QualifyTable with schema = %q", got)
	}
	// Quote characters in the name are doubled, never stripped.
	if got := QualifyTable(d, `we"ird`); got != `"we""ird"` {
		t.Errorf("QualifyTable with quote = %q", got)
	}
}

func TestBuildInsertSQL(t *testing.T) {
	d := ansiDialect{}
	rows := [][]Value{
		{IntVal(1), StringVal("ada")},
		{IntVal(2), Null()},
	}
	got := BuildInsertSQL(d, "people", []string{"id", "name"}, rows)
	want := `INSERT INTO "people" ("id", "name") VALUES (1, 'ada'), (2, NULL);`
	if got != want {
		t.Errorf("BuildInsertSQL =\n%q, want\n%q", got, want)
	}
}

func TestDropTableSQL(t *testing.T) {
	got := DropTableSQL(ansiDialect{}, "public.users")
	if got != `DROP TABLE IF EXISTS "public"."users";` {
		t.Errorf("DropTableSQL = %q", got)
	}
}

func TestNormalizeCreate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single line",
			input: "CREATE TABLE t (id INT)",
			want:  "CREATE TABLE IF NOT EXISTS t (id INT)",
		},
		{
			name:  "multi line collapses",
			input: "CREATE TABLE t (\n  id INT,\n  name TEXT\n)",
			want:  "CREATE TABLE IF NOT EXISTS t ( id INT, name TEXT )",
		},
		{
			name:  "already idempotent",
			input: "CREATE TABLE IF NOT EXISTS t (id INT)",
			want:  "CREATE TABLE IF NOT EXISTS t (id INT)",
		},
		{
			name:  "non create passes through",
			input: "ALTER TABLE t ADD x INT",
			want:  "ALTER TABLE t ADD x INT",
		},
		{
			name:  "only first occurrence rewritten",
			input: "CREATE TABLE log (note TEXT DEFAULT 'CREATE TABLE')",
			want:  "CREATE TABLE IF NOT EXISTS log (note TEXT DEFAULT 'CREATE TABLE')",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCreate(tt.input); got != tt.want {
				t.Errorf("NormalizeCreate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL(ansiDialect{}, "t", []string{"a", "b"}, []Kind{KindInt, KindString})
	want := `CREATE TABLE IF NOT EXISTS "t" ("a" TEXT, "b" TEXT)`
	if got != want {
		t.Errorf("CreateTableSQL = %q, want %q", got, want)
	}
}

func TestFilterTables(t *testing.T) {
	all := []string{"a", "b", "c"}
	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{"no filters keeps all", nil, nil, []string{"a", "b", "c"}},
		{"include restricts", []string{"a", "c"}, nil, []string{"a", "c"}},
		{"exclude removes", nil, []string{"b"}, []string{"a", "c"}},
		{"exclude wins over include", []string{"a"}, []string{"a"}, []string{}},
		{"unknown include matches nothing", []string{"zz"}, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTables(all, tt.include, tt.exclude)
			if len(got) != len(tt.want) {
				t.Fatalf("FilterTables = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FilterTables = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
