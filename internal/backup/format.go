package backup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// FormatVersion is the dump layout version written in the header.
const FormatVersion = 1

const headerPrefix = "-- relief-dump"

var headerPattern = regexp.MustCompile(`^-- relief-dump format=(\d+) dialect=([a-z]+)$`)

// StatementKind classifies one dump line.
type StatementKind int

const (
	StatementDrop StatementKind = iota + 1
	StatementCreateTable
	StatementCreateIndex
	StatementInsert
	StatementCounter
)

func (k StatementKind) String() string {
	switch k {
	case StatementDrop:
		return "drop"
	case StatementCreateTable:
		return "create table"
	case StatementCreateIndex:
		return "create index"
	case StatementInsert:
		return "insert"
	case StatementCounter:
		return "counter"
	}
	return "unknown"
}

// Statement is one executable line of a dump.
type Statement struct {
	Line  int
	Kind  StatementKind
	Table string
	SQL   string
}

// Dump is a parsed and structurally validated dump.
type Dump struct {
	Format     int
	Dialect    string
	Statements []Statement
}

// Tables returns the tables the dump creates, in stream order.
func (d *Dump) Tables() []string {
	var tables []string
	for _, st := range d.Statements {
		if st.Kind == StatementCreateTable {
			tables = append(tables, st.Table)
		}
	}
	return tables
}

// SyntaxError reports a dump line that is not a well-formed statement.
type SyntaxError struct {
	Line   int
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return e.Reason
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Header returns the first line of a dump for dialect.
func Header(dialect string) string {
	return fmt.Sprintf("%s format=%d dialect=%s", headerPrefix, FormatVersion, dialect)
}

const ident = "[`\"]?([A-Za-z_][A-Za-z0-9_]*)[`\"]?"

var (
	dropPattern        = regexp.MustCompile("^DROP TABLE IF EXISTS " + ident + ";$")
	createTablePattern = regexp.MustCompile("^CREATE TABLE (?:IF NOT EXISTS )?" + ident + " ?\\(")
	createIndexPattern = regexp.MustCompile("^CREATE (?:UNIQUE )?INDEX (?:IF NOT EXISTS )?" + ident + " ON (?:ONLY )?" + ident + "[ (]")
	insertPattern      = regexp.MustCompile("^INSERT INTO " + ident + " ?\\(")
)

// Parse reads a dump written for dialect and validates its structure
// without touching any store. The header must match and every line must be a
// single statement of a known form. Inserts, indexes and counters may only
// target tables created earlier in the same stream, every dropped table must
// be created again, and each table in required must be created.
func Parse(r io.Reader, dialect Dialect, required ...string) (*Dump, error) {
	br := bufio.NewReader(r)
	dump := &Dump{}
	created := map[string]bool{}
	dropped := map[string]int{}
	var dropOrder []string
	lineNo := 0
	sawHeader := false

	for {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read dump: %w", err)
		}
		if raw == "" && errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		line := strings.TrimRight(raw, "\r\n")

		if !sawHeader {
			if lineNo == 1 {
				line = strings.TrimPrefix(line, "\ufeff")
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := parseHeader(line, lineNo, dialect, dump); err != nil {
				return nil, err
			}
			sawHeader = true
			continue
		}

		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "--") {
			continue
		}

		st, perr := classify(line, lineNo, dialect)
		if perr != nil {
			return nil, perr
		}

		switch st.Kind {
		case StatementDrop:
			if created[st.Table] {
				return nil, &SyntaxError{Line: lineNo, Reason: fmt.Sprintf("table %s is dropped after being created", st.Table)}
			}
			if _, ok := dropped[st.Table]; !ok {
				dropped[st.Table] = lineNo
				dropOrder = append(dropOrder, st.Table)
			}
		case StatementCreateTable:
			if created[st.Table] {
				return nil, &SyntaxError{Line: lineNo, Reason: fmt.Sprintf("table %s is created twice", st.Table)}
			}
			created[st.Table] = true
		default:
			if !created[st.Table] {
				return nil, &SyntaxError{Line: lineNo, Reason: fmt.Sprintf("%s targets table %s which the dump does not create", st.Kind, st.Table)}
			}
		}

		dump.Statements = append(dump.Statements, st)
	}

	if !sawHeader {
		return nil, &SyntaxError{Reason: "missing relief-dump header"}
	}
	if len(created) == 0 {
		return nil, &SyntaxError{Reason: "dump creates no tables"}
	}
	for _, table := range dropOrder {
		if !created[table] {
			return nil, &SyntaxError{Line: dropped[table], Reason: fmt.Sprintf("table %s is dropped but never created again", table)}
		}
	}
	var missing []string
	for _, table := range required {
		if !created[table] {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return nil, &SyntaxError{Reason: "dump does not create required tables: " + strings.Join(missing, ", ")}
	}
	return dump, nil
}

func parseHeader(line string, lineNo int, dialect Dialect, dump *Dump) error {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return &SyntaxError{Line: lineNo, Reason: "missing relief-dump header"}
	}
	format, _ := strconv.Atoi(m[1])
	if format != FormatVersion {
		return &SyntaxError{Line: lineNo, Reason: fmt.Sprintf("unsupported dump format %d", format)}
	}
	if m[2] != dialect.Name() {
		return &SyntaxError{Line: lineNo, Reason: fmt.Sprintf("dump was written for %s, store is %s", m[2], dialect.Name())}
	}
	dump.Format = format
	dump.Dialect = m[2]
	return nil
}

func classify(line string, lineNo int, dialect Dialect) (Statement, error) {
	if err := checkSingleStatement(line, dialect.Escapes()); err != nil {
		return Statement{}, &SyntaxError{Line: lineNo, Reason: err.Error()}
	}

	st := Statement{Line: lineNo, SQL: line}
	if table, ok := dialect.CounterTable(line); ok {
		st.Kind = StatementCounter
		st.Table = table
		return st, nil
	}

	switch {
	case matchTable(dropPattern, line, 1, &st.Table):
		st.Kind = StatementDrop
	case matchTable(createTablePattern, line, 1, &st.Table):
		st.Kind = StatementCreateTable
	case matchTable(createIndexPattern, line, 2, &st.Table):
		st.Kind = StatementCreateIndex
	case matchTable(insertPattern, line, 1, &st.Table):
		st.Kind = StatementInsert
	default:
		head := line
		if len(head) > 40 {
			head = head[:40] + "..."
		}
		return Statement{}, &SyntaxError{Line: lineNo, Reason: fmt.Sprintf("statement not allowed in a dump: %q", head)}
	}
	return st, nil
}

func matchTable(p *regexp.Regexp, line string, group int, table *string) bool {
	m := p.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	*table = m[group]
	return true
}

// EscapeMode describes how string literals escape quotes in a dialect.
type EscapeMode int

const (
	// EscapeStandard strings only escape a quote by doubling it.
	EscapeStandard EscapeMode = iota
	// EscapeBackslash strings also treat backslash as an escape.
	EscapeBackslash
	// EscapeExtended strings use backslash escapes only behind an E prefix.
	EscapeExtended
)

// checkSingleStatement verifies that line is exactly one statement: quotes
// are balanced and the only semicolon outside quotes is the final byte.
func checkSingleStatement(line string, mode EscapeMode) error {
	if !strings.HasSuffix(line, ";") {
		return errors.New("statement must end with ';' on the same line")
	}

	var quote byte
	backslash := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch {
			case backslash && c == '\\':
				i++
			case c == quote:
				if i+1 < len(line) && line[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch c {
		case '\'':
			quote = c
			backslash = mode == EscapeBackslash ||
				(mode == EscapeExtended && i > 0 && (line[i-1] == 'E' || line[i-1] == 'e') && !identByte(line, i-2))
		case '"', '`':
			quote = c
			backslash = false
		case ';':
			if i != len(line)-1 {
				return errors.New("more than one statement on a line")
			}
		}
	}

	if quote != 0 {
		return errors.New("unterminated quoted value")
	}
	return nil
}

// identByte reports whether line[i] continues an identifier.
func identByte(line string, i int) bool {
	if i < 0 {
		return false
	}
	c := line[i]
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
