package backup

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Dialect adapts dump reading and writing to one database engine. Catalog
// queries take the transaction the export runs in.
type Dialect interface {
	// Name is the dialect recorded in the dump header.
	Name() string
	// Quote quotes an identifier.
	Quote(name string) string
	// Escapes tells the parser how string literals escape quotes.
	Escapes() EscapeMode
	// Tables lists the user tables of the live schema.
	Tables(tx *gorm.DB) ([]string, error)
	// Parents lists the tables table references through foreign keys.
	Parents(tx *gorm.DB, table string) ([]string, error)
	// PrimaryKey lists table's primary key columns in key order.
	PrimaryKey(tx *gorm.DB, table string) ([]string, error)
	// Schema returns the CREATE TABLE statement followed by index statements.
	Schema(tx *gorm.DB, table string) ([]string, error)
	// Drop returns the statement removing table.
	Drop(table string) string
	// Counters returns the statements restoring table's auto-increment state.
	Counters(tx *gorm.DB, table string) ([]string, error)
	// CounterTable reports whether stmt is a counter statement and for which table.
	CounterTable(stmt string) (string, bool)
	// Literal renders a scanned value of a column with the given database type.
	Literal(v interface{}, databaseType string) (string, error)
	// ReadOptions are the transaction options for a consistent export read.
	ReadOptions() *sql.TxOptions
}

// DialectFor returns the dialect matching db's driver.
func DialectFor(db *gorm.DB) (Dialect, error) {
	switch name := db.Dialector.Name(); name {
	case "sqlite":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("backup: unsupported database dialect %q", name)
	}
}

// literalStyle is the per-dialect spelling of scalar values.
type literalStyle interface {
	quoteString(s string) string
	boolean(b bool) string
	timestamp(t time.Time) string
	blob(b []byte) string
	isBlob(databaseType string) bool
}

var numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

func renderLiteral(style literalStyle, v interface{}, databaseType string) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int:
		return strconv.Itoa(val), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", fmt.Errorf("cannot dump non-finite float %v", val)
		}
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case float32:
		return renderLiteral(style, float64(val), databaseType)
	case bool:
		return style.boolean(val), nil
	case time.Time:
		return style.timestamp(val), nil
	case string:
		return style.quoteString(val), nil
	case []byte:
		if style.isBlob(databaseType) {
			return style.blob(val), nil
		}
		if isNumericType(databaseType) && numberPattern.Match(val) {
			return string(val), nil
		}
		return style.quoteString(string(val)), nil
	default:
		return "", fmt.Errorf("cannot dump value of type %T", v)
	}
}

func isNumericType(databaseType string) bool {
	t := strings.ToUpper(databaseType)
	for _, n := range []string{"INT", "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL"} {
		if strings.Contains(t, n) {
			return true
		}
	}
	return false
}

func hexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// singleLine collapses the line breaks engines keep in stored DDL.
func singleLine(ddl string) string {
	r := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")
	return strings.TrimSpace(r.Replace(ddl))
}

func terminate(stmt string) string {
	stmt = strings.TrimRight(stmt, "; ")
	return stmt + ";"
}

// scanStrings runs a single-column query and collects the values.
func scanStrings(tx *gorm.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := tx.Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
