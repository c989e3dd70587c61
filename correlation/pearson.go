// Package correlation computes Pearson correlation matrices over table
// columns, emitted as a flat list of cells covering every ordered pair.
package correlation

import (
	"math"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Cell is one entry of a correlation matrix.
type Cell struct {
	Row   string
	Col   string
	Value float64
}

// Matrix is a square correlation matrix over Labels, flattened row-major
// into Cells (both triangles and the diagonal).
type Matrix struct {
	Labels []string
	Cells  []Cell
}

// At returns the coefficient for the (row, col) label pair.
func (m Matrix) At(row, col string) (float64, bool) {
	for _, c := range m.Cells {
		if c.Row == row && c.Col == col {
			return c.Value, true
		}
	}
	return 0, false
}

// Correlate returns the full Pearson matrix of the selected columns.
//
// Fewer than two columns yield an empty Matrix and no error. Each column's
// numeric view is built independently, so two views may differ in length
// when missing cells do not line up; see Pearson for how that is scored.
func Correlate(t *table.Table, columns []string) (Matrix, error) {
	if len(columns) < 2 {
		return Matrix{}, nil
	}

	seen := make(map[string]struct{}, len(columns))
	views := make([][]float64, len(columns))
	for i, name := range columns {
		if _, dup := seen[name]; dup {
			return Matrix{}, errors.NewValueError("correlate", "column "+name+" selected more than once")
		}
		seen[name] = struct{}{}

		col, err := t.ColumnIndex(name)
		if err != nil {
			return Matrix{}, err
		}
		views[i] = t.NumericView(col)
	}

	n := len(columns)
	m := Matrix{
		Labels: append([]string(nil), columns...),
		Cells:  make([]Cell, 0, n*n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := 1.0
			if i != j {
				v = Pearson(views[i], views[j])
			}
			m.Cells = append(m.Cells, Cell{Row: columns[i], Col: columns[j], Value: v})
		}
	}
	return m, nil
}

// Pearson returns Σ(d1·d2) / sqrt(Σd1² · Σd2²) over the deviations of x and
// y from their own means. Views of different length are aligned by index and
// the cross sum stops at the shorter one, so Pearson(x, y) == Pearson(y, x).
// An empty x or y yields NaN.
func Pearson(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 {
		return math.NaN()
	}
	d1 := deviations(x)
	d2 := deviations(y)

	k := min(len(d1), len(d2))
	cross := floats.Dot(d1[:k], d2[:k])
	return cross / math.Sqrt(floats.Dot(d1, d1)*floats.Dot(d2, d2))
}

func deviations(v []float64) []float64 {
	mean := stat.Mean(v, nil)
	out := make([]float64, len(v))
	copy(out, v)
	floats.AddConst(-mean, out)
	return out
}
