// Package dataio reads and writes the delimited-text tables the analysis
// pipeline consumes and produces. Tables are held column-oriented so that
// downstream stages can pull whole measurement columns without copying rows.
package dataio

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaError reports a structural problem with an input table: a missing or
// duplicated column, a duplicated identifier, or an unparseable cell. Schema
// errors are fatal for the analysis stage that hit them.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error in %s: column %q: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error in %s: %s", e.Table, e.Reason)
}

// Table is an immutable column-oriented view of one delimited input file.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	cells   [][]string // column-major: cells[col][row]
}

// NewTable builds a table from a header and row-major records.
func NewTable(name string, header []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, &SchemaError{Table: name, Reason: fmt.Sprintf("empty column name at position %d", i)}
		}
		if _, dup := index[col]; dup {
			return nil, &SchemaError{Table: name, Column: col, Reason: "duplicate column name"}
		}
		index[col] = i
	}
	columns := make([]string, len(header))
	for col, i := range index {
		columns[i] = col
	}

	cells := make([][]string, len(columns))
	for i := range cells {
		cells[i] = make([]string, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, &SchemaError{
				Table:  name,
				Reason: fmt.Sprintf("row %d has %d fields, header has %d", r+1, len(row), len(columns)),
			}
		}
		for c, v := range row {
			cells[c][r] = strings.TrimSpace(v)
		}
	}

	return &Table{name: name, columns: columns, index: index, cells: cells}, nil
}

// Name returns the table's identifying name (usually the file base name).
func (t *Table) Name() string { return t.name }

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if len(t.cells) == 0 {
		return 0
	}
	return len(t.cells[0])
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require verifies every named column exists, returning a SchemaError for the
// first one that does not.
func (t *Table) Require(columns ...string) error {
	for _, col := range columns {
		if !t.HasColumn(col) {
			return &SchemaError{Table: t.name, Column: col, Reason: "required column missing"}
		}
	}
	return nil
}

// Strings returns the raw values of a column.
func (t *Table) Strings(column string) ([]string, error) {
	i, ok := t.index[column]
	if !ok {
		return nil, &SchemaError{Table: t.name, Column: column, Reason: "required column missing"}
	}
	out := make([]string, len(t.cells[i]))
	copy(out, t.cells[i])
	return out, nil
}

// Floats parses a column as float64 values.
func (t *Table) Floats(column string) ([]float64, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for r, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &SchemaError{
				Table:  t.name,
				Column: column,
				Reason: fmt.Sprintf("row %d: %q is not numeric", r+1, v),
			}
		}
		out[r] = f
	}
	return out, nil
}

// Counts parses a column as non-negative integer counts.
func (t *Table) Counts(column string) ([]int, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for r, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &SchemaError{
				Table:  t.name,
				Column: column,
				Reason: fmt.Sprintf("row %d: %q is not an integer count", r+1, v),
			}
		}
		if n < 0 {
			return nil, &SchemaError{
				Table:  t.name,
				Column: column,
				Reason: fmt.Sprintf("row %d: negative count %d", r+1, n),
			}
		}
		out[r] = n
	}
	return out, nil
}

// Bools parses a column holding TRUE/FALSE style flags. Accepts the spellings
// the annotation sheets actually contain: TRUE/FALSE, true/false, 1/0, yes/no.
func (t *Table) Bools(column string) ([]bool, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(raw))
	for r, v := range raw {
		switch strings.ToLower(v) {
		case "true", "t", "1", "yes", "y":
			out[r] = true
		case "false", "f", "0", "no", "n", "":
			out[r] = false
		default:
			return nil, &SchemaError{
				Table:  t.name,
				Column: column,
				Reason: fmt.Sprintf("row %d: %q is not a boolean flag", r+1, v),
			}
		}
	}
	return out, nil
}
