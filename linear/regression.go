// Package linear implements least-squares regression: ordinary linear
// regression over any number of features, and single-feature polynomial
// regression.
package linear

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/core/parallel"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator
	weights   *mat.VecDense // 重み（係数）
	intercept float64       // 切片
}

var (
	_ model.Estimator       = (*LinearRegression)(nil)
	_ model.LinearModel     = (*LinearRegression)(nil)
	_ model.FeatureImporter = (*LinearRegression)(nil)
)

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit はモデルを訓練データで学習させる
// 正規方程式 w = (X^T * X)^(-1) * X^T * y を使用
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c, err := checkFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	// 切片項のために X に 1 の列を追加: [1, X]
	design := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				design.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var xtx mat.Dense
	xtx.Mul(design.T(), design)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), mat.NewVecDense(r, mat.Col(nil, 0, y)))

	w := mat.NewVecDense(c+1, nil)
	w.MulVec(&xtxInv, &xty)

	lr.intercept = w.AtVec(0)
	lr.weights = mat.NewVecDense(c, nil)
	lr.weights.CopyVec(w.SliceVec(1, c+1))
	lr.SetFitted(c)
	return nil
}

// Predict は入力データに対する予測を行う: y = X * weights + intercept
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := lr.RequireFitted("LinearRegression", "Predict", c); err != nil {
		return nil, err
	}

	pred := mat.NewVecDense(r, nil)
	pred.MulVec(X, lr.weights)
	pred.AddVec(pred, constVec(r, lr.intercept))
	return pred, nil
}

// Weights は学習された重み（係数）を返す
func (lr *LinearRegression) Weights() []float64 {
	if lr.weights == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.weights)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// FeatureImportances は係数の絶対値を特徴量重要度として返す
func (lr *LinearRegression) FeatureImportances() []float64 {
	w := lr.Weights()
	for i := range w {
		w[i] = math.Abs(w[i])
	}
	return w
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return "LinearRegression()"
	}
	return fmt.Sprintf("LinearRegression(n_features=%d, intercept=%g)", lr.NFeatures(), lr.intercept)
}

func checkFitInput(op string, X, y mat.Matrix) (int, int, error) {
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return 0, 0, errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	return r, c, nil
}

func constVec(n int, v float64) *mat.VecDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return mat.NewVecDense(n, data)
}
