package backup

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

const mysqlTimeFormat = "2006-01-02 15:04:05.999999"

var (
	mysqlAutoIncrement = regexp.MustCompile(` AUTO_INCREMENT=([0-9]+)`)
	mysqlCounter       = regexp.MustCompile("^ALTER TABLE `([A-Za-z_][A-Za-z0-9_]*)` AUTO_INCREMENT = [0-9]+;$")
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) Escapes() EscapeMode { return EscapeBackslash }

func (mysqlDialect) Tables(tx *gorm.DB) ([]string, error) {
	return scanStrings(tx,
		"SELECT TABLE_NAME FROM information_schema.TABLES "+
			"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME")
}

func (mysqlDialect) Parents(tx *gorm.DB, table string) ([]string, error) {
	return scanStrings(tx,
		"SELECT DISTINCT REFERENCED_TABLE_NAME FROM information_schema.KEY_COLUMN_USAGE "+
			"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL ORDER BY 1",
		table,
	)
}

func (mysqlDialect) PrimaryKey(tx *gorm.DB, table string) ([]string, error) {
	return scanStrings(tx,
		"SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE "+
			"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY' ORDER BY ORDINAL_POSITION",
		table,
	)
}

func (d mysqlDialect) showCreate(tx *gorm.DB, table string) (string, error) {
	rows, err := tx.Raw("SHOW CREATE TABLE " + d.Quote(table)).Rows()
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", errors.New("SHOW CREATE TABLE returned no rows for " + table)
	}
	var name, ddl string
	if err := rows.Scan(&name, &ddl); err != nil {
		return "", err
	}
	return ddl, nil
}

// Schema returns SHOW CREATE TABLE without the counter, which Counters restores.
func (d mysqlDialect) Schema(tx *gorm.DB, table string) ([]string, error) {
	ddl, err := d.showCreate(tx, table)
	if err != nil {
		return nil, err
	}
	ddl = mysqlAutoIncrement.ReplaceAllString(ddl, "")
	return []string{terminate(singleLine(ddl))}, nil
}

func (d mysqlDialect) Drop(table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table) + ";"
}

func (d mysqlDialect) Counters(tx *gorm.DB, table string) ([]string, error) {
	ddl, err := d.showCreate(tx, table)
	if err != nil {
		return nil, err
	}
	m := mysqlAutoIncrement.FindStringSubmatch(ddl)
	if m == nil {
		return nil, nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %s;", d.Quote(table), m[1])}, nil
}

func (mysqlDialect) CounterTable(stmt string) (string, bool) {
	if m := mysqlCounter.FindStringSubmatch(stmt); m != nil {
		return m[1], true
	}
	return "", false
}

func (d mysqlDialect) Literal(v interface{}, databaseType string) (string, error) {
	return renderLiteral(d, v, databaseType)
}

func (mysqlDialect) ReadOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\x1a", `\Z`,
)

func (mysqlDialect) quoteString(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}

func (mysqlDialect) boolean(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (mysqlDialect) timestamp(t time.Time) string {
	return "'" + t.Format(mysqlTimeFormat) + "'"
}

func (mysqlDialect) blob(b []byte) string {
	if len(b) == 0 {
		return "''"
	}
	return "X'" + hexString(b) + "'"
}

func (mysqlDialect) isBlob(databaseType string) bool {
	t := strings.ToUpper(databaseType)
	return strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY")
}
