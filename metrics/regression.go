// Package metrics provides regression scores over gonum vectors. NaN inputs
// are not filtered: a NaN in either vector makes the score NaN.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue.IsEmpty() || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		got := 0
		if !yPred.IsEmpty() {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	diff := mat.NewVecDense(n, nil)
	diff.SubVec(yTrue, yPred)
	return mat.Dot(diff, diff) / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。全変動はyTrue自身の平均に対して取る。
// yTrueが定数で全変動が0の場合は ErrZeroVariance を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := mat.Sum(yTrue) / float64(n)

	// 全変動（TSS）と残差変動（RSS）を計算
	var tss, rss float64
	for i := 0; i < n; i++ {
		yt := yTrue.AtVec(i)
		yp := yPred.AtVec(i)
		tss += (yt - yMean) * (yt - yMean)
		rss += (yt - yp) * (yt - yp)
	}

	if tss == 0 {
		return 0, errors.Wrap(errors.ErrZeroVariance, "R2Score: total sum of squares is zero")
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// R2ScoreOrNaN は R2Score と同じだが、全変動が0の場合はエラーの代わりに
// UndefinedMetricWarning を発行して NaN を返す。
func R2ScoreOrNaN(yTrue, yPred *mat.VecDense) (float64, error) {
	r2, err := R2Score(yTrue, yPred)
	if errors.Is(err, errors.ErrZeroVariance) {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "constant y_true", math.NaN()))
		return math.NaN(), nil
	}
	return r2, err
}

// ColumnVector copies the single column of an n×1 matrix into a vector.
func ColumnVector(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError("ColumnVector", "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}
