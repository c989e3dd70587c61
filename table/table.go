// Package table implements the in-memory dataset every other package reads:
// a header row of column names plus data rows of string cells aligned to it.
//
// A Table is an immutable snapshot. Operations that change data (filters,
// sorts, cell rewrites) return a new Table and leave the receiver untouched,
// so a Table may be shared between goroutines without locking.
package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/datalab/pkg/errors"
)

// Table is a header-named rectangular container of string cells.
//
// Header names may repeat; lookups by name resolve to the first match and
// every operation internally addresses columns by index.
type Table struct {
	header []string
	rows   [][]string
}

// LoadTable builds a Table from already-decoded rows.
//
// Every data row must have exactly len(header) cells. A row of any other
// length fails with MalformedRowError; rows are never padded or truncated.
// The inputs are copied.
func LoadTable(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, errors.NewValueError("LoadTable", "header must have at least one column")
	}
	t := &Table{
		header: append([]string(nil), header...),
		rows:   make([][]string, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(header) {
			// Row numbers are 1-based data rows; row 0 is the header.
			return nil, errors.NewMalformedRowError(i+1, len(header), len(row))
		}
		t.rows[i] = append([]string(nil), row...)
	}
	return t, nil
}

// derive returns a Table sharing the receiver's header with new rows.
// Row slices are never written after construction, so sharing is safe.
func (t *Table) derive(rows [][]string) *Table {
	return &Table{header: t.header, rows: rows}
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.header) }

// NumRows returns the number of data rows (the header is not counted).
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns a copy of data row i.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Cell returns the cell at data row i, column col.
func (t *Table) Cell(i, col int) string {
	return t.rows[i][col]
}

// ColumnIndex resolves a column name to its first index in the header.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.header {
		if h == name {
			return i, nil
		}
	}
	return -1, errors.NewColumnNotFoundError(name)
}

// Column returns a copy of every data cell in column col.
func (t *Table) Column(col int) []string {
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[col]
	}
	return out
}

// NumericView returns the values of column col that parse as numbers, in
// row order. Unparseable cells are dropped, so len(view) <= NumRows().
func (t *Table) NumericView(col int) []float64 {
	view := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if v, ok := ParseNumber(row[col]); ok {
			view = append(view, v)
		}
	}
	return view
}

// ParseNumber reports the numeric value of a cell. Surrounding whitespace is
// ignored; anything else that is not a complete float literal, and NaN, is
// rejected.
func ParseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Records returns the header followed by every data row, suitable for
// encoding/csv.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Header())
	for i := range t.rows {
		out = append(out, t.Row(i))
	}
	return out
}

// Equal reports whether two tables have the same header and cells.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.header) != len(other.header) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.header {
		if t.header[i] != other.header[i] {
			return false
		}
	}
	for i, row := range t.rows {
		for j, cell := range row {
			if cell != other.rows[i][j] {
				return false
			}
		}
	}
	return true
}
