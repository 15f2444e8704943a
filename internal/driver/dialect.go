package driver

import "strings"

// Dialect holds the per-provider SQL rendering rules: identifier
// quoting, literal formatting, and statement construction. Dialects are
// stateless; each provider exposes one shared instance. All methods are
// pure functions over their inputs.
type Dialect interface {
	// Name is the dialect's display name. Migrations compare names to
	// reject cross-provider transfers.
	Name() string

	// QuoteIdentifier quotes a table or column name. The embedded quote
	// character is doubled; quoting is applied exactly once per render.
	QuoteIdentifier(name string) string

	// ToLiteral converts a neutral value into a SQL literal for this
	// dialect. Total: every value renders to some literal.
	ToLiteral(v Value) string

	// InsertValuesSQL builds a multi-row INSERT statement. Columns keep
	// caller order, rows keep slice order, and the statement ends with
	// a semicolon. Statement length is bounded only by the caller's
	// batch size.
	InsertValuesSQL(table string, columns []string, rows [][]Value) string

	// DropTableStatement renders DROP TABLE IF EXISTS for the
	// (optionally schema-qualified) table.
	DropTableStatement(table string) string

	// NormalizeCreateTable collapses a CREATE TABLE statement to one
	// line and rewrites it to an idempotent if-not-exists form.
	NormalizeCreateTable(ddl string) string

	// ColumnType names this dialect's column type for a value kind,
	// used when creating tables from inferred CSV columns.
	ColumnType(k Kind) string

	// DumpPreamble returns the statements written at the top of a dump
	// file: they save and override charset / foreign-key / unique-check
	// session settings. Each entry is a single ;-terminated line so the
	// restore scanner can replay it.
	DumpPreamble() []string

	// DumpPostamble restores the settings saved by DumpPreamble.
	DumpPostamble() []string
}

// SplitTableName splits an optionally schema-qualified name on the
// first dot. An empty schema segment is treated as no schema.
func SplitTableName(name string) (schema, table string) {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// QualifyTable quotes a possibly schema-qualified table name, quoting
// the schema and table segments independently.
func QualifyTable(d Dialect, name string) string {
	schema, table := SplitTableName(name)
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// BuildInsertSQL is the shared INSERT ... VALUES renderer behind every
// dialect's InsertValuesSQL.
func BuildInsertSQL(d Dialect, table string, columns []string, rows [][]Value) string {
	var sb strings.Builder
	sb.Grow(64 * (len(rows) + 1))
	sb.WriteString("INSERT INTO ")
	sb.WriteString(QualifyTable(d, table))
	sb.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(col))
	}
	sb.WriteString(") VALUES ")
	for ri, row := range rows {
		if ri > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for ci, v := range row {
			if ci > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.ToLiteral(v))
		}
		sb.WriteByte(')')
	}
	sb.WriteByte(';')
	return sb.String()
}

// DropTableSQL renders the shared DROP TABLE IF EXISTS form.
func DropTableSQL(d Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + QualifyTable(d, table) + ";"
}

// NormalizeCreate collapses a CREATE TABLE statement onto a single line
// and inserts IF NOT EXISTS after the CREATE TABLE keyword. The rewrite
// is a targeted text substitution, not parsing: providers emit the
// keyword at a fixed position by construction.
func NormalizeCreate(ddl string) string {
	s := SingleLine(ddl)
	if strings.HasPrefix(s, "CREATE TABLE") && !strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS") {
		s = strings.Replace(s, "CREATE TABLE", "CREATE TABLE IF NOT EXISTS", 1)
	}
	return s
}

// CreateTableSQL builds a CREATE TABLE statement from column names and
// inferred value kinds, then runs it through the dialect's normalizer
// so the result is idempotent. Used by the CSV import path.
func CreateTableSQL(d Dialect, table string, columns []string, kinds []Kind) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(QualifyTable(d, table))
	sb.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(col))
		sb.WriteByte(' ')
		k := KindString
		if i < len(kinds) {
			k = kinds[i]
		}
		sb.WriteString(d.ColumnType(k))
	}
	sb.WriteString(")")
	return d.NormalizeCreateTable(sb.String())
}

// SingleLine joins the trimmed lines of a statement with spaces.
func SingleLine(ddl string) string {
	lines := strings.Split(ddl, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
