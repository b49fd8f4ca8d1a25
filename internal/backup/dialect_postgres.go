package backup

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	postgresCounter     = regexp.MustCompile(`^SELECT setval\(pg_get_serial_sequence\('([A-Za-z_][A-Za-z0-9_]*)', '[A-Za-z_][A-Za-z0-9_]*'\), [0-9]+, (?:true|false)\);$`)
	postgresIndexSchema = regexp.MustCompile(` ON (ONLY )?[A-Za-z_][A-Za-z0-9_]*\.`)
	postgresSerialTypes = map[string]string{
		"bigint":   "bigserial",
		"integer":  "serial",
		"smallint": "smallserial",
	}
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (postgresDialect) Escapes() EscapeMode { return EscapeExtended }

func (postgresDialect) Tables(tx *gorm.DB) ([]string, error) {
	return scanStrings(tx, "SELECT tablename FROM pg_tables WHERE schemaname = current_schema() ORDER BY tablename")
}

func (postgresDialect) Parents(tx *gorm.DB, table string) ([]string, error) {
	return scanStrings(tx,
		"SELECT DISTINCT cl.relname FROM pg_constraint c JOIN pg_class cl ON cl.oid = c.confrelid "+
			"WHERE c.contype = 'f' AND c.conrelid = quote_ident(?)::regclass ORDER BY 1",
		table,
	)
}

func (postgresDialect) PrimaryKey(tx *gorm.DB, table string) ([]string, error) {
	return scanStrings(tx,
		"SELECT a.attname FROM pg_index i "+
			"JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey) "+
			"WHERE i.indrelid = quote_ident(?)::regclass AND i.indisprimary "+
			"ORDER BY array_position(i.indkey::int2[], a.attnum)",
		table,
	)
}

// Schema rebuilds CREATE TABLE from the catalog; postgres keeps no DDL text.
func (d postgresDialect) Schema(tx *gorm.DB, table string) ([]string, error) {
	rows, err := tx.Raw(
		"SELECT a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull, "+
			"COALESCE(pg_get_expr(ad.adbin, ad.adrelid), '') "+
			"FROM pg_attribute a LEFT JOIN pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum "+
			"WHERE a.attrelid = quote_ident(?)::regclass AND a.attnum > 0 AND NOT a.attisdropped ORDER BY a.attnum",
		table,
	).Rows()
	if err != nil {
		return nil, err
	}

	var defs []string
	for rows.Next() {
		var name, typ, def string
		var notNull bool
		if err := rows.Scan(&name, &typ, &notNull, &def); err != nil {
			rows.Close()
			return nil, err
		}

		if serial, ok := postgresSerialTypes[typ]; ok && strings.HasPrefix(def, "nextval(") {
			typ = serial
			def = ""
		}

		col := d.Quote(name) + " " + typ
		if notNull {
			col += " NOT NULL"
		}
		if def != "" {
			col += " DEFAULT " + def
		}
		defs = append(defs, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	constraints, err := tx.Raw(
		"SELECT conname, pg_get_constraintdef(oid) FROM pg_constraint "+
			"WHERE conrelid = quote_ident(?)::regclass AND contype IN ('p', 'u', 'c', 'f') "+
			"ORDER BY CASE contype WHEN 'p' THEN 0 WHEN 'u' THEN 1 WHEN 'c' THEN 2 ELSE 3 END, conname",
		table,
	).Rows()
	if err != nil {
		return nil, err
	}
	for constraints.Next() {
		var name, def string
		if err := constraints.Scan(&name, &def); err != nil {
			constraints.Close()
			return nil, err
		}
		defs = append(defs, "CONSTRAINT "+d.Quote(name)+" "+def)
	}
	constraints.Close()
	if err := constraints.Err(); err != nil {
		return nil, err
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s);", d.Quote(table), strings.Join(defs, ", "))}

	indexes, err := scanStrings(tx,
		"SELECT indexdef FROM pg_indexes WHERE schemaname = current_schema() AND tablename = ? "+
			"AND indexname NOT IN (SELECT conname FROM pg_constraint WHERE conrelid = quote_ident(?)::regclass) "+
			"ORDER BY indexname",
		table, table,
	)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		idx = postgresIndexSchema.ReplaceAllString(idx, " ON $1")
		stmts = append(stmts, terminate(singleLine(idx)))
	}
	return stmts, nil
}

func (d postgresDialect) Drop(table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table) + ";"
}

func (postgresDialect) Counters(tx *gorm.DB, table string) ([]string, error) {
	columns, err := scanStrings(tx,
		"SELECT a.attname FROM pg_attribute a "+
			"WHERE a.attrelid = quote_ident(?)::regclass AND a.attnum > 0 AND NOT a.attisdropped "+
			"AND pg_get_serial_sequence(quote_ident(?), a.attname) IS NOT NULL ORDER BY a.attnum",
		table, table,
	)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, column := range columns {
		var seq string
		if err := tx.Raw("SELECT pg_get_serial_sequence(quote_ident(?), ?)", table, column).Row().Scan(&seq); err != nil {
			return nil, err
		}

		var last int64
		var called bool
		if err := tx.Raw("SELECT last_value, is_called FROM " + seq).Row().Scan(&last, &called); err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), %d, %t);", table, column, last, called))
	}
	return stmts, nil
}

func (postgresDialect) CounterTable(stmt string) (string, bool) {
	if m := postgresCounter.FindStringSubmatch(stmt); m != nil {
		return m[1], true
	}
	return "", false
}

func (d postgresDialect) Literal(v interface{}, databaseType string) (string, error) {
	return renderLiteral(d, v, databaseType)
}

func (postgresDialect) ReadOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

// quoteString switches to an E'' literal when the value needs escapes.
func (postgresDialect) quoteString(s string) string {
	needsEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f || s[i] == '\\' {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}

	var b strings.Builder
	b.WriteString("E'")
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\'':
			b.WriteString(`\'`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteString("'")
	return b.String()
}

func (postgresDialect) boolean(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (postgresDialect) timestamp(t time.Time) string {
	return "'" + t.Format(time.RFC3339Nano) + "'"
}

func (postgresDialect) blob(b []byte) string {
	return `'\x` + hexString(b) + `'::bytea`
}

func (postgresDialect) isBlob(databaseType string) bool {
	return strings.EqualFold(databaseType, "BYTEA")
}
