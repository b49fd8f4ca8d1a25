package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// ExportResult summarizes a written dump.
type ExportResult struct {
	Tables     []TableCount
	Statements int
}

// Exporter writes the live schema and its rows as a dump.
type Exporter struct {
	db      *gorm.DB
	dialect Dialect
	log     *logrus.Logger
}

func NewExporter(db *gorm.DB, dialect Dialect, log *logrus.Logger) *Exporter {
	return &Exporter{db: db, dialect: dialect, log: log}
}

// Dialect returns the dialect dumps are written in.
func (e *Exporter) Dialect() Dialect {
	return e.dialect
}

// Export writes a dump of every table to w. It only reads the store, inside
// one transaction so the dump is a consistent point in time.
func (e *Exporter) Export(ctx context.Context, w io.Writer) (*ExportResult, error) {
	bw := bufio.NewWriter(w)
	result := &ExportResult{}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tables, err := e.orderedTables(tx)
		if err != nil {
			return err
		}

		emit := func(stmt string) error {
			result.Statements++
			_, err := bw.WriteString(stmt + "\n")
			return err
		}

		if _, err := bw.WriteString(Header(e.dialect.Name()) + "\n"); err != nil {
			return err
		}

		for i := len(tables) - 1; i >= 0; i-- {
			if err := emit(e.dialect.Drop(tables[i])); err != nil {
				return err
			}
		}

		for _, table := range tables {
			stmts, err := e.dialect.Schema(tx, table)
			if err != nil {
				return fmt.Errorf("read schema of %s: %w", table, err)
			}
			for _, stmt := range stmts {
				if err := emit(stmt); err != nil {
					return err
				}
			}
		}

		for _, table := range tables {
			n, err := e.writeRows(tx, table, emit)
			if err != nil {
				return fmt.Errorf("dump rows of %s: %w", table, err)
			}
			result.Tables = append(result.Tables, TableCount{Table: table, Rows: n})
		}

		for _, table := range tables {
			stmts, err := e.dialect.Counters(tx, table)
			if err != nil {
				return fmt.Errorf("read counters of %s: %w", table, err)
			}
			for _, stmt := range stmts {
				if err := emit(stmt); err != nil {
					return err
				}
			}
		}

		return nil
	}, e.dialect.ReadOptions())
	if err != nil {
		return nil, err
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"dialect":    e.dialect.Name(),
		"tables":     len(result.Tables),
		"statements": result.Statements,
	}).Info("database exported")
	return result, nil
}

// Counts returns the row count of every table, in dependency order.
func (e *Exporter) Counts(ctx context.Context) ([]TableCount, error) {
	var counts []TableCount
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tables, err := e.orderedTables(tx)
		if err != nil {
			return err
		}
		for _, table := range tables {
			var n int64
			if err := tx.Raw("SELECT COUNT(*) FROM " + e.dialect.Quote(table)).Scan(&n).Error; err != nil {
				return fmt.Errorf("count rows of %s: %w", table, err)
			}
			counts = append(counts, TableCount{Table: table, Rows: n})
		}
		return nil
	}, e.dialect.ReadOptions())
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (e *Exporter) orderedTables(tx *gorm.DB) ([]string, error) {
	tables, err := e.dialect.Tables(tx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	parents := make(map[string][]string, len(tables))
	for _, table := range tables {
		p, err := e.dialect.Parents(tx, table)
		if err != nil {
			return nil, fmt.Errorf("read foreign keys of %s: %w", table, err)
		}
		parents[table] = p
	}

	ordered, ok := sortTables(tables, parents)
	if !ok {
		e.log.WithField("tables", tables).Warn("foreign key cycle between tables, dumping in name order")
	}
	return ordered, nil
}

// sortTables orders tables so every parent precedes its children, breaking
// ties by name. Self references and parents outside tables are ignored. When
// the references form a cycle it returns the tables in name order and false.
func sortTables(tables []string, parents map[string][]string) ([]string, bool) {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t] = true
	}

	pending := make(map[string]int, len(tables))
	children := make(map[string][]string)
	for _, t := range tables {
		seen := map[string]bool{}
		for _, p := range parents[t] {
			if p == t || !known[p] || seen[p] {
				continue
			}
			seen[p] = true
			pending[t]++
			children[p] = append(children[p], t)
		}
	}

	var ready []string
	for _, t := range tables {
		if pending[t] == 0 {
			ready = append(ready, t)
		}
	}

	ordered := make([]string, 0, len(tables))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)
		for _, child := range children[next] {
			pending[child]--
			if pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(ordered) != len(tables) {
		fallback := append([]string(nil), tables...)
		sort.Strings(fallback)
		return fallback, false
	}
	return ordered, true
}

func (e *Exporter) writeRows(tx *gorm.DB, table string, emit func(string) error) (int64, error) {
	keys, err := e.dialect.PrimaryKey(tx, table)
	if err != nil {
		return 0, err
	}

	quoted := e.dialect.Quote(table)
	order := make([]string, 0, len(keys))
	for _, k := range keys {
		order = append(order, e.dialect.Quote(k))
	}

	rows, err := tx.Raw("SELECT * FROM " + quoted + orderClause(order, tx, quoted)).Rows()
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	columns, err := rows.ColumnTypes()
	if err != nil {
		return 0, err
	}

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = e.dialect.Quote(col.Name())
	}
	prefix := "INSERT INTO " + quoted + " (" + strings.Join(names, ", ") + ") VALUES ("

	values := make([]interface{}, len(columns))
	targets := make([]interface{}, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	var n int64
	literals := make([]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return n, err
		}
		for i, v := range values {
			lit, err := e.dialect.Literal(v, columns[i].DatabaseTypeName())
			if err != nil {
				return n, fmt.Errorf("column %s: %w", columns[i].Name(), err)
			}
			literals[i] = lit
		}
		if err := emit(prefix + strings.Join(literals, ", ") + ");"); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

// orderClause sorts by primary key, or by every column when the table has none.
func orderClause(keys []string, tx *gorm.DB, quotedTable string) string {
	if len(keys) > 0 {
		return " ORDER BY " + strings.Join(keys, ", ")
	}

	rows, err := tx.Raw("SELECT * FROM " + quotedTable + " WHERE 1 = 0").Rows()
	if err != nil {
		return ""
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil || len(cols) == 0 {
		return ""
	}

	positions := make([]string, len(cols))
	for i := range cols {
		positions[i] = strconv.Itoa(i + 1)
	}
	return " ORDER BY " + strings.Join(positions, ", ")
}
