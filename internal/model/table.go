// Package model defines the transaction table and run records shared by the pipeline stages.
package model

import (
	"strconv"
	"strings"
)

// Table is an in-memory, column-ordered table of string cells. An empty
// cell is a null. Columns a stage does not know about are carried through.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.EnsureColumn(c)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// EnsureColumn appends the column if missing (padding existing rows with
// nulls) and returns its position.
func (t *Table) EnsureColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.columns = append(t.columns, name)
	t.index[name] = len(t.columns) - 1
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	return len(t.columns) - 1
}

// AppendRecord adds a row whose values are positioned by header. Unknown
// header names become new columns; missing columns stay null.
func (t *Table) AppendRecord(header, record []string) {
	row := make([]string, len(t.columns))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		idx := t.EnsureColumn(name)
		if len(row) < len(t.columns) {
			row = append(row, make([]string, len(t.columns)-len(row))...)
		}
		if i < len(record) {
			row[idx] = record[i]
		}
	}
	if len(row) < len(t.columns) {
		row = append(row, make([]string, len(t.columns)-len(row))...)
	}
	t.rows = append(t.rows, row)
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Get returns the trimmed cell value, or "" if the column is missing.
func (t *Table) Get(row int, col string) string {
	idx, ok := t.index[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.rows[row][idx])
}

// IsNull reports whether the cell is empty or the column is missing.
func (t *Table) IsNull(row int, col string) bool {
	return t.Get(row, col) == ""
}

// Set writes a cell, creating the column if needed.
func (t *Table) Set(row int, col, value string) {
	idx := t.EnsureColumn(col)
	t.rows[row][idx] = value
}

// SetNull clears a cell, creating the column if needed.
func (t *Table) SetNull(row int, col string) {
	t.Set(row, col, "")
}

// SetFloat writes a float using the shortest exact representation.
func (t *Table) SetFloat(row int, col string, v float64) {
	t.Set(row, col, strconv.FormatFloat(v, 'f', -1, 64))
}

// SetInt writes an integer.
func (t *Table) SetInt(row int, col string, v int) {
	t.Set(row, col, strconv.Itoa(v))
}

// SetBool writes True/False.
func (t *Table) SetBool(row int, col string, v bool) {
	if v {
		t.Set(row, col, "True")
		return
	}
	t.Set(row, col, "False")
}

// Float parses a cell as float64. ok is false for nulls and unparsable cells.
func (t *Table) Float(row int, col string) (float64, bool) {
	s := t.Get(row, col)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Int parses a cell as an integer, accepting "3.0" style floats.
func (t *Table) Int(row int, col string) (int, bool) {
	s := t.Get(row, col)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// IsComplete reports whether row i has no null cells.
func (t *Table) IsComplete(row int) bool {
	for _, v := range t.rows[row] {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := NewTable(t.columns...)
	for i, r := range t.rows {
		if keep(i) {
			cp := make([]string, len(r))
			copy(cp, r)
			out.rows = append(out.rows, cp)
		}
	}
	return out
}

// Head returns a table with at most the first n rows. n <= 0 returns t.
func (t *Table) Head(n int) *Table {
	if n <= 0 || n >= len(t.rows) {
		return t
	}
	return t.Filter(func(row int) bool { return row < n })
}

// Concat appends every row of other, aligning by column name.
func (t *Table) Concat(other *Table) {
	for i := range other.rows {
		t.AppendRecord(other.columns, other.rows[i])
	}
}
