// Package stats computes per-column descriptive statistics over a table's
// numeric view. Results are recomputed on every call; nothing is cached.
package stats

import (
	"slices"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/table"
	"gonum.org/v1/gonum/stat"
)

// Statistics is the summary of one column at one point in time.
type Statistics struct {
	Mean   float64
	Median float64
	Mode   float64
	StdDev float64
}

// ColumnStatistics pairs a column with its summary.
type ColumnStatistics struct {
	Index int
	Name  string
	Statistics
}

// Describe computes all four statistics of the named column. A column with
// no numeric cells fails with EmptyColumnError.
func Describe(t *table.Table, column string) (Statistics, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return Statistics{}, err
	}
	view := t.NumericView(col)
	if len(view) == 0 {
		return Statistics{}, errors.NewEmptyColumnError("describe", column)
	}
	return summarize(view), nil
}

// DescribeAll summarizes every column that has at least one numeric cell,
// in header order.
func DescribeAll(t *table.Table) []ColumnStatistics {
	header := t.Header()
	var out []ColumnStatistics
	for i, name := range header {
		view := t.NumericView(i)
		if len(view) == 0 {
			continue
		}
		out = append(out, ColumnStatistics{Index: i, Name: name, Statistics: summarize(view)})
	}
	return out
}

func summarize(view []float64) Statistics {
	return Statistics{
		Mean:   stat.Mean(view, nil),
		Median: median(view),
		Mode:   mode(view),
		StdDev: stat.PopStdDev(view, nil),
	}
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "mean")
	}
	return stat.Mean(values, nil), nil
}

// Median returns the element at index floor(n/2) of the sorted values, the
// upper middle element when n is even.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "median")
	}
	return median(values), nil
}

// Mode returns the value selected by a left-to-right pairwise reduction
// that keeps the current candidate on equal counts. Ties therefore go to the
// candidate reached first, which is not always the first-seen mode.
func Mode(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "mode")
	}
	return mode(values), nil
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "std_dev")
	}
	return stat.PopStdDev(values, nil), nil
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

func mode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	for _, v := range values {
		if counts[best] < counts[v] {
			best = v
		}
	}
	return best
}
