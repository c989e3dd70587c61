package correlation

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.LoadTable(header, rows)
	require.NoError(t, err)
	return tbl
}

func TestCorrelateCollinear(t *testing.T) {
	tbl := load(t, []string{"a", "b"}, []string{"1", "2"}, []string{"3", "4"}, []string{"5", "6"})

	m, err := Correlate(tbl, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, m.Cells, 4)

	v, ok := m.At("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-12)
}

func TestCorrelateSymmetricWithUnitDiagonal(t *testing.T) {
	tbl := load(t, []string{"x", "y", "z"},
		[]string{"1", "9", "2"},
		[]string{"2", "7", "2"},
		[]string{"3", "8", "5"},
		[]string{"4", "1", "3"},
		[]string{"5", "2", "8"},
	)
	cols := []string{"x", "y", "z"}
	m, err := Correlate(tbl, cols)
	require.NoError(t, err)
	require.Len(t, m.Cells, 9)

	// Row-major emission.
	assert.Equal(t, Cell{Row: "x", Col: "x", Value: 1}, m.Cells[0])
	assert.Equal(t, "y", m.Cells[1].Col)
	assert.Equal(t, "y", m.Cells[3].Row)

	for _, a := range cols {
		d, _ := m.At(a, a)
		assert.Equal(t, 1.0, d)
		for _, b := range cols {
			ab, _ := m.At(a, b)
			ba, _ := m.At(b, a)
			assert.Equal(t, ab, ba, "(%s,%s)", a, b)
			assert.LessOrEqual(t, math.Abs(ab), 1.0+1e-12)
		}
	}

	xy, _ := m.At("x", "y")
	assert.Less(t, xy, 0.0)
}

func TestCorrelateFewerThanTwoColumns(t *testing.T) {
	tbl := load(t, []string{"a"}, []string{"1"})
	for _, cols := range [][]string{nil, {"a"}} {
		m, err := Correlate(tbl, cols)
		require.NoError(t, err)
		assert.Empty(t, m.Cells)
	}
}

func TestCorrelateErrors(t *testing.T) {
	tbl := load(t, []string{"a", "b"}, []string{"1", "2"})

	_, err := Correlate(tbl, []string{"a", "missing"})
	assert.Equal(t, errors.KindColumnNotFound, errors.KindOf(err))

	_, err = Correlate(tbl, []string{"a", "a"})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestCorrelateEmptyViewIsNaN(t *testing.T) {
	tbl := load(t, []string{"a", "b"}, []string{"1", ""}, []string{"2", "x"})

	m, err := Correlate(tbl, []string{"a", "b"})
	require.NoError(t, err)
	v, _ := m.At("a", "b")
	assert.True(t, math.IsNaN(v))
}

func TestPearsonMisalignedViews(t *testing.T) {
	// 短い方の長さまで位置で揃え、引数の順序に依らない
	a := []float64{1, 3, 4}
	b := []float64{1, 2, 3, 5}
	ab, ba := Pearson(a, b), Pearson(b, a)
	assert.False(t, math.IsNaN(ab))
	assert.Equal(t, ab, ba)
}

func TestCorrelateSymmetricWithMissingCells(t *testing.T) {
	tbl, err := table.LoadTable([]string{"a", "b"}, [][]string{
		{"1", "1"}, {"", "2"}, {"3", "3"}, {"4", "5"},
	})
	require.NoError(t, err)

	m, err := Correlate(tbl, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, m.Cells, 4)
	assert.False(t, math.IsNaN(m.Cells[1].Value))
	assert.Equal(t, m.Cells[1].Value, m.Cells[2].Value)
}
