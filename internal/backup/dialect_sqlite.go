package backup

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// sqliteTimeFormat is the layout the sqlite driver reads back into time.Time.
const sqliteTimeFormat = "2006-01-02 15:04:05.999999999-07:00"

var (
	sqliteCounterDelete = regexp.MustCompile(`^DELETE FROM sqlite_sequence WHERE name = '([A-Za-z_][A-Za-z0-9_]*)';$`)
	sqliteCounterInsert = regexp.MustCompile(`^INSERT INTO sqlite_sequence \(name, seq\) VALUES \('([A-Za-z_][A-Za-z0-9_]*)', [0-9]+\);$`)
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (sqliteDialect) Escapes() EscapeMode { return EscapeStandard }

func (sqliteDialect) Tables(tx *gorm.DB) ([]string, error) {
	return scanStrings(tx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
}

func (sqliteDialect) Parents(tx *gorm.DB, table string) ([]string, error) {
	return scanStrings(tx, `SELECT DISTINCT "table" FROM pragma_foreign_key_list(?) ORDER BY 1`, table)
}

func (sqliteDialect) PrimaryKey(tx *gorm.DB, table string) ([]string, error) {
	return scanStrings(tx, "SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", table)
}

func (sqliteDialect) Schema(tx *gorm.DB, table string) ([]string, error) {
	ddl, err := scanStrings(tx,
		"SELECT sql FROM sqlite_master WHERE tbl_name = ? AND type IN ('table', 'index') AND sql IS NOT NULL "+
			"ORDER BY CASE type WHEN 'table' THEN 0 ELSE 1 END, name",
		table,
	)
	if err != nil {
		return nil, err
	}
	for i, stmt := range ddl {
		ddl[i] = terminate(singleLine(stmt))
	}
	return ddl, nil
}

func (d sqliteDialect) Drop(table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table) + ";"
}

func (sqliteDialect) Counters(tx *gorm.DB, table string) ([]string, error) {
	var exists int64
	if err := tx.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").
		Scan(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, nil
	}

	var seq []int64
	if err := tx.Raw("SELECT seq FROM sqlite_sequence WHERE name = ?", table).Scan(&seq).Error; err != nil {
		return nil, err
	}
	if len(seq) == 0 {
		return nil, nil
	}

	return []string{
		fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name = '%s';", table),
		fmt.Sprintf("INSERT INTO sqlite_sequence (name, seq) VALUES ('%s', %d);", table, seq[0]),
	}, nil
}

func (sqliteDialect) CounterTable(stmt string) (string, bool) {
	for _, p := range []*regexp.Regexp{sqliteCounterDelete, sqliteCounterInsert} {
		if m := p.FindStringSubmatch(stmt); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (d sqliteDialect) Literal(v interface{}, databaseType string) (string, error) {
	return renderLiteral(d, v, databaseType)
}

func (sqliteDialect) ReadOptions() *sql.TxOptions { return nil }

// quoteString keeps control characters out of the line by splicing them in with char().
func (sqliteDialect) quoteString(s string) string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, "'"+strings.ReplaceAll(cur.String(), "'", "''")+"'")
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f {
			flush()
			parts = append(parts, fmt.Sprintf("char(%d)", c))
			continue
		}
		cur.WriteByte(c)
	}
	flush()

	switch len(parts) {
	case 0:
		return "''"
	case 1:
		if strings.HasPrefix(parts[0], "'") {
			return parts[0]
		}
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

func (sqliteDialect) boolean(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (sqliteDialect) timestamp(t time.Time) string {
	return "'" + t.Format(sqliteTimeFormat) + "'"
}

func (sqliteDialect) blob(b []byte) string {
	return "X'" + hexString(b) + "'"
}

func (sqliteDialect) isBlob(databaseType string) bool {
	return strings.EqualFold(databaseType, "BLOB")
}
