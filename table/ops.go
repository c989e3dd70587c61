package table

import (
	"cmp"
	"slices"
	"strings"
)

// Filter returns a Table holding the rows for which keep returns true.
// keep receives the stored row and must not modify it.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return t.derive(rows)
}

// MapColumn returns a Table where every cell of column col is replaced by
// fn(cell). Row count and header are unchanged.
func (t *Table) MapColumn(col int, fn func(cell string) string) *Table {
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		next := fn(row[col])
		if next == row[col] {
			rows[i] = row
			continue
		}
		copied := append([]string(nil), row...)
		copied[col] = next
		rows[i] = copied
	}
	return t.derive(rows)
}

// FilterContains keeps the rows whose cell in column contains substr.
func (t *Table) FilterContains(column, substr string) (*Table, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(row []string) bool {
		return strings.Contains(row[col], substr)
	}), nil
}

// SortBy returns the rows stably ordered by column. Cells that both parse as
// numbers compare numerically, other pairs lexically; numeric cells always
// precede non-numeric ones regardless of direction.
func (t *Table) SortBy(column string, descending bool) (*Table, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	rows := slices.Clone(t.rows)
	slices.SortStableFunc(rows, func(a, b []string) int {
		return compareCells(a[col], b[col], descending)
	})
	return t.derive(rows), nil
}

func compareCells(a, b string, descending bool) int {
	fa, okA := ParseNumber(a)
	fb, okB := ParseNumber(b)

	var c int
	switch {
	case okA && okB:
		c = cmp.Compare(fa, fb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		c = strings.Compare(a, b)
	}
	if descending {
		c = -c
	}
	return c
}

// Frequency is one distinct value of a column and how often it occurs.
type Frequency struct {
	Value string
	Count int
}

// Frequencies counts the distinct cells of column in first-seen order.
func (t *Table) Frequencies(column string) ([]Frequency, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []Frequency
	for _, row := range t.rows {
		v := row[col]
		if i, ok := index[v]; ok {
			out[i].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, Frequency{Value: v, Count: 1})
	}
	return out, nil
}
