package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MinMaxScaler は各特徴量を指定した範囲（デフォルト[0,1]）に線形変換する
//
//	v' = (v - dataMin) / (dataMax - dataMin) * (max - min) + min
//
// 定数列（dataMax == dataMin）はゼロ除算になるため DegenerateRangeError を返す。
type MinMaxScaler struct {
	model.BaseEstimator

	// DataMin は学習データの各特徴量の最小値
	DataMin []float64

	// DataMax は学習データの各特徴量の最大値
	DataMax []float64

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64

	// FeatureNames はエラーメッセージに使う列名（省略可）
	FeatureNames []string
}

var _ model.Transformer = (*MinMaxScaler)(nil)

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0.0, 1.0})
//	XScaled, err := scaler.FitTransform(X)
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit は訓練データから最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	dataMin := make([]float64, c)
	dataMax := make([]float64, c)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, X)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == lo {
			return errors.NewDegenerateRangeError(m.featureName(j), lo)
		}
		dataMin[j] = lo
		dataMax[j] = hi
	}

	m.DataMin = dataMin
	m.DataMax = dataMax
	m.SetFitted(c)
	return nil
}

// Transform は学習済みの最小値・最大値を使ってデータをスケーリングする
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := m.RequireFitted("MinMaxScaler", "Transform", c); err != nil {
		return nil, err
	}

	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/(m.DataMax[j]-m.DataMin[j])*(hi-lo) + lo
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform はスケーリングされたデータを元の範囲に戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := m.RequireFitted("MinMaxScaler", "InverseTransform", c); err != nil {
		return nil, err
	}

	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-lo)/(hi-lo)*(m.DataMax[j]-m.DataMin[j]) + m.DataMin[j]
	}, X)
	return result, nil
}

func (m *MinMaxScaler) featureName(j int) string {
	if j < len(m.FeatureNames) {
		return m.FeatureNames[j]
	}
	return fmt.Sprintf("feature %d", j)
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.FeatureRange[0], m.FeatureRange[1])
	}
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g], n_features=%d)",
		m.FeatureRange[0], m.FeatureRange[1], m.NFeatures())
}
