// Package gatewayfile implements the Normalizer component of
// SPEC_FULL.md §4.3: it loads the raw row grid fileio produces into a
// Table and cleans that Table in place, per a gateway's ColumnLayout, so it
// is ready for classification.
//
// Go has no dataframe type, so the teacher's pandas-column-at-a-time style
// (GatewayFileClass.py) is re-expressed as a Table holding column vectors
// by name, with the same sequence of mutating steps applied in place.
package gatewayfile

import (
	"strings"

	"reconciliation-engine/pkg/rerrors"
)

// Table is a struct-of-column-vectors grid: one []string per column, all
// the same length, addressed by header name.
type Table struct {
	Headers []string
	Columns map[string][]string
	rows    int
}

// NewTable builds a Table from a row-major grid whose first row is the
// header row.
func NewTable(grid [][]string) *Table {
	if len(grid) == 0 {
		return &Table{Columns: map[string][]string{}}
	}
	headers := append([]string{}, grid[0]...)
	t := &Table{Headers: headers, Columns: make(map[string][]string, len(headers))}
	for i, h := range headers {
		col := make([]string, 0, len(grid)-1)
		for _, row := range grid[1:] {
			if i < len(row) {
				col = append(col, row[i])
			} else {
				col = append(col, "")
			}
		}
		t.Columns[h] = col
	}
	t.rows = len(grid) - 1
	return t
}

// Rows reports the number of data rows (excluding the header).
func (t *Table) Rows() int { return t.rows }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Columns[name]
	return ok
}

// Col returns the column's values, or nil if the column does not exist.
func (t *Table) Col(name string) []string {
	return t.Columns[name]
}

// SliceColumns drops every column outside [start, end) from both Headers
// and Columns, mirroring GatewayFileClass.slice_columns — used by gateways
// whose raw export carries leading spacer columns before the real header
// row (equity's layout).
func (t *Table) SliceColumns(start, end int) error {
	if start >= len(t.Headers) {
		return rerrors.New(rerrors.KindColumnValidation, "slice start index exceeds column count")
	}
	if end <= 0 || end > len(t.Headers) {
		end = len(t.Headers)
	}
	kept := t.Headers[start:end]
	newCols := make(map[string][]string, len(kept))
	for _, h := range kept {
		newCols[h] = t.Columns[h]
	}
	t.Headers = kept
	t.Columns = newCols
	return nil
}

// Truncate keeps only rows [0, n) across every column, used after a
// trailer marker row has been located.
func (t *Table) Truncate(n int) {
	if n < 0 || n >= t.rows {
		return
	}
	for h, col := range t.Columns {
		t.Columns[h] = col[:n]
	}
	t.rows = n
}

// RowContains reports whether any cell of row i (case-insensitively)
// contains substr.
func (t *Table) RowContains(i int, substr string) bool {
	substr = strings.ToLower(substr)
	for _, col := range t.Columns {
		if i < len(col) && strings.Contains(strings.ToLower(col[i]), substr) {
			return true
		}
	}
	return false
}

// SetColumn adds or replaces a column. values is stored as given; its
// length is not checked against the table's row count.
func (t *Table) SetColumn(name string, values []string) {
	if !t.HasColumn(name) {
		t.Headers = append(t.Headers, name)
	}
	t.Columns[name] = values
}
