package preprocessing

import (
	"strconv"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/stats"
	"github.com/YuminosukeSato/datalab/table"
	"gonum.org/v1/gonum/mat"
)

// Apply runs method on column and returns the transformed table.
//
// Only remove_missing and remove_outliers drop rows; every other method
// rewrites cells of the selected column. The header is never touched. On
// error the input table is the only valid result.
func Apply(t *table.Table, column string, method Method, opts ...Option) (*table.Table, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var out *table.Table
	switch method {
	case RemoveMissing:
		out = t.Filter(func(row []string) bool { return row[col] != "" })
	case FillMean, FillMedian, FillMode:
		value, err := fillStatistic(t.NumericView(col), method)
		if err != nil {
			return nil, errors.NewEmptyColumnError(method.String(), column)
		}
		out = fillMissing(t, col, strconv.FormatFloat(value, 'f', -1, 64))
	case FillCustom:
		out = fillMissing(t, col, o.customValue)
	case Normalize:
		if out, err = normalize(t, col, column, o.rangeMin, o.rangeMax); err != nil {
			return nil, err
		}
	case RemoveOutliers:
		if out, err = removeOutliers(t, col, column, o.outlierMultiplier); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewValidationError("method", "unknown preprocessing method", int(method))
	}

	if o.removeOutliers && method != RemoveOutliers {
		if out, err = removeOutliers(out, col, column, o.outlierMultiplier); err != nil {
			return nil, err
		}
	}

	log.GetLoggerWithName("preprocessing").Debug("Applied preprocessing method",
		log.OperationKey, log.OperationTransform,
		log.MethodKey, method.String(),
		log.ColumnKey, column,
		log.RowsKey, out.NumRows(),
		log.DroppedRowsKey, t.NumRows()-out.NumRows(),
	)
	return out, nil
}

func fillStatistic(view []float64, method Method) (float64, error) {
	switch method {
	case FillMedian:
		return stats.Median(view)
	case FillMode:
		return stats.Mode(view)
	default:
		return stats.Mean(view)
	}
}

// fillMissing writes value into every empty cell of col.
func fillMissing(t *table.Table, col int, value string) *table.Table {
	return t.MapColumn(col, func(cell string) string {
		if cell == "" {
			return value
		}
		return cell
	})
}

// normalize rescales the numeric cells of col into [lo, hi] and formats them
// with two decimals. Non-numeric cells are left as they are.
func normalize(t *table.Table, col int, column string, lo, hi float64) (*table.Table, error) {
	if !(lo < hi) {
		return nil, errors.NewValidationError("range", "min must be less than max", [2]float64{lo, hi})
	}
	view := t.NumericView(col)
	if len(view) == 0 {
		return nil, errors.NewEmptyColumnError(Normalize.String(), column)
	}

	scaler := NewMinMaxScaler([2]float64{lo, hi})
	scaler.FeatureNames = []string{column}
	scaled, err := scaler.FitTransform(mat.NewVecDense(len(view), view))
	if err != nil {
		return nil, err
	}

	// MapColumn visits rows in order, the same order the view was built in.
	next := 0
	return t.MapColumn(col, func(cell string) string {
		if _, ok := table.ParseNumber(cell); !ok {
			return cell
		}
		v := scaled.At(next, 0)
		next++
		return strconv.FormatFloat(v, 'f', 2, 64)
	}), nil
}

// removeOutliers keeps rows whose numeric value in col lies within
// [Q1 - k·IQR, Q3 + k·IQR]. Q1 and Q3 are taken by position from the view in
// row order, without sorting. Rows with a non-numeric cell are kept.
func removeOutliers(t *table.Table, col int, column string, k float64) (*table.Table, error) {
	view := t.NumericView(col)
	n := len(view)
	if n == 0 {
		return nil, errors.NewEmptyColumnError(RemoveOutliers.String(), column)
	}
	q1 := view[n/4]
	q3 := view[3*n/4]
	iqr := q3 - q1
	lower, upper := q1-k*iqr, q3+k*iqr

	return t.Filter(func(row []string) bool {
		v, ok := table.ParseNumber(row[col])
		return !ok || (v >= lower && v <= upper)
	}), nil
}
