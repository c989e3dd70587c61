package table

import (
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, header []string, rows ...[]string) *Table {
	t.Helper()
	tbl, err := LoadTable(header, rows)
	require.NoError(t, err)
	return tbl
}

func TestLoadTableRejectsMalformedRow(t *testing.T) {
	_, err := LoadTable([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}})
	require.Error(t, err)
	assert.Equal(t, errors.KindMalformedRow, errors.KindOf(err))

	var mr *errors.MalformedRowError
	require.True(t, errors.As(err, &mr))
	assert.Equal(t, 2, mr.Row)
	assert.Equal(t, 2, mr.Expected)
	assert.Equal(t, 1, mr.Got)
}

func TestLoadTableCopiesInput(t *testing.T) {
	header := []string{"a"}
	rows := [][]string{{"1"}}
	tbl, err := LoadTable(header, rows)
	require.NoError(t, err)

	header[0] = "changed"
	rows[0][0] = "changed"
	assert.Equal(t, []string{"a"}, tbl.Header())
	assert.Equal(t, "1", tbl.Cell(0, 0))

	h := tbl.Header()
	h[0] = "x"
	assert.Equal(t, "a", tbl.Header()[0])
}

func TestColumnIndexFirstMatch(t *testing.T) {
	tbl := mustLoad(t, []string{"x", "y", "x"}, []string{"1", "2", "3"})

	idx, err := tbl.ColumnIndex("x")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = tbl.ColumnIndex("missing")
	assert.True(t, errors.IsKind(err, errors.KindColumnNotFound))
}

func TestNumericView(t *testing.T) {
	tbl := mustLoad(t, []string{"v"},
		[]string{"1"}, []string{""}, []string{" 2.5 "}, []string{"abc"},
		[]string{"NaN"}, []string{"12abc"}, []string{"-3e2"},
	)
	assert.Equal(t, []float64{1, 2.5, -300}, tbl.NumericView(0))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 0.5\t", 0.5, true},
		{"", 0, false},
		{"   ", 0, false},
		{"nan", 0, false},
		{"1,5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equalf(t, tt.ok, ok, "ParseNumber(%q)", tt.in)
		assert.Equalf(t, tt.want, got, "ParseNumber(%q)", tt.in)
	}
}

func TestMapColumnDoesNotMutate(t *testing.T) {
	tbl := mustLoad(t, []string{"a", "b"}, []string{"", "1"}, []string{"2", ""})
	out := tbl.MapColumn(0, func(cell string) string {
		if cell == "" {
			return "0"
		}
		return cell
	})

	assert.Equal(t, "", tbl.Cell(0, 0))
	assert.Equal(t, "0", out.Cell(0, 0))
	assert.Equal(t, "", out.Cell(1, 1))
	assert.Equal(t, tbl.Header(), out.Header())
}

func TestFilterContains(t *testing.T) {
	tbl := mustLoad(t, []string{"name", "n"},
		[]string{"apple", "1"}, []string{"banana", "2"}, []string{"pineapple", "3"},
	)
	out, err := tbl.FilterContains("name", "apple")
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, "pineapple", out.Cell(1, 0))
	assert.Equal(t, 3, tbl.NumRows())

	_, err = tbl.FilterContains("nope", "x")
	assert.Equal(t, errors.KindColumnNotFound, errors.KindOf(err))
}

func TestSortBy(t *testing.T) {
	tbl := mustLoad(t, []string{"v", "id"},
		[]string{"10", "a"}, []string{"x", "b"}, []string{"2", "c"},
		[]string{"", "d"}, []string{"2", "e"},
	)

	asc, err := tbl.SortBy("v", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e", "a", "", "x"}, idsAndValues(asc))

	desc, err := tbl.SortBy("v", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "e", "x", ""}, idsAndValues(desc))
}

// idsAndValues returns the id column for numeric rows and the value for the rest.
func idsAndValues(t *Table) []string {
	out := make([]string, t.NumRows())
	for i := range out {
		if _, ok := ParseNumber(t.Cell(i, 0)); ok {
			out[i] = t.Cell(i, 1)
		} else {
			out[i] = t.Cell(i, 0)
		}
	}
	return out
}

func TestFrequencies(t *testing.T) {
	tbl := mustLoad(t, []string{"c"},
		[]string{"b"}, []string{"a"}, []string{"b"}, []string{""}, []string{"a"}, []string{"b"},
	)
	freq, err := tbl.Frequencies("c")
	require.NoError(t, err)
	assert.Equal(t, []Frequency{{"b", 3}, {"a", 2}, {"", 1}}, freq)
}

func TestRecordsAndEqual(t *testing.T) {
	tbl := mustLoad(t, []string{"a", "b"}, []string{"1", "2"})
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, tbl.Records())

	same := mustLoad(t, []string{"a", "b"}, []string{"1", "2"})
	other := mustLoad(t, []string{"a", "b"}, []string{"1", "3"})
	assert.True(t, tbl.Equal(same))
	assert.False(t, tbl.Equal(other))
	assert.False(t, tbl.Equal(nil))
}
