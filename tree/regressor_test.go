package tree

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func stepData() (*mat.Dense, *mat.Dense) {
	// y は x < 5 で 1、それ以外で 10 の階段関数
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		if i < 5 {
			y.Set(i, 0, 1)
		} else {
			y.Set(i, 0, 10)
		}
	}
	return X, y
}

func TestDecisionTreeRegressorStep(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 3, dt.NodeCount())
	assert.Equal(t, 1, dt.Depth())

	pred, err := dt.Predict(mat.NewDense(3, 1, []float64{0, 4.4, 4.6}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
	assert.Equal(t, 10.0, pred.At(2, 0))
	assert.Equal(t, []float64{1}, dt.FeatureImportances())
}

func TestDecisionTreeRegressorMaxDepth(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	y := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})

	full := NewDecisionTreeRegressor()
	require.NoError(t, full.Fit(X, y))
	assert.Equal(t, 15, full.NodeCount(), "unlimited depth fits every sample")

	stump := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, stump.Fit(X, y))
	assert.Equal(t, 1, stump.Depth())

	pred, err := stump.Predict(mat.NewDense(2, 1, []float64{0, 7}))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 5.5, pred.At(1, 0), 1e-12)
}

func TestDecisionTreeRegressorMinSamplesLeaf(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 0, 100})

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 3, dt.NodeCount())

	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{3}))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, pred.At(0, 0), 1e-12)
}

func TestDecisionTreeRegressorFeatureImportances(t *testing.T) {
	// 2 列目だけが y を決める
	X := mat.NewDense(6, 2, []float64{
		5, 0,
		1, 0,
		4, 0,
		2, 1,
		6, 1,
		3, 1,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 10, 10, 10})

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	assert.InDeltaSlice(t, []float64{0, 1}, dt.FeatureImportances(), 1e-12)
}

func TestDecisionTreeRegressorConstantTarget(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{4, 4, 4})

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.NodeCount())
	assert.Equal(t, []float64{0}, dt.FeatureImportances())
}

func TestDecisionTreeRegressorNaN(t *testing.T) {
	t.Run("nan target yields nan leaf", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{1, 2, 3})
		y := mat.NewDense(3, 1, []float64{1, math.NaN(), 3})
		dt := NewDecisionTreeRegressor()
		require.NoError(t, dt.Fit(X, y))

		pred, err := dt.Predict(mat.NewDense(1, 1, []float64{1}))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(pred.At(0, 0)))
	})

	t.Run("nan training feature goes right", func(t *testing.T) {
		X := mat.NewDense(4, 1, []float64{0, 1, 10, math.NaN()})
		y := mat.NewDense(4, 1, []float64{0, 0, 5, 5})
		dt := NewDecisionTreeRegressor()
		require.NoError(t, dt.Fit(X, y))

		pred, err := dt.Predict(mat.NewDense(2, 1, []float64{0.5, 20}))
		require.NoError(t, err)
		assert.Equal(t, 0.0, pred.At(0, 0))
		assert.Equal(t, 5.0, pred.At(1, 0))
	})

	t.Run("nan predict feature yields nan", func(t *testing.T) {
		X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
		y := mat.NewDense(4, 1, []float64{0, 0, 5, 5})
		dt := NewDecisionTreeRegressor()
		require.NoError(t, dt.Fit(X, y))

		pred, err := dt.Predict(mat.NewDense(2, 1, []float64{math.NaN(), 10}))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(pred.At(0, 0)))
		assert.Equal(t, 5.0, pred.At(1, 0))
	})
}

func TestDecisionTreeRegressorErrors(t *testing.T) {
	dt := NewDecisionTreeRegressor()

	_, err := dt.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Nil(t, dt.FeatureImportances())

	err = dt.Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	err = NewDecisionTreeRegressor(WithMinSamplesSplit(1)).Fit(mat.NewDense(2, 1, nil), mat.NewDense(2, 1, nil))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	X, y := stepData()
	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.True(t, errors.As(err, &de))
}

func TestDecisionTreeRegressorMaxFeaturesDeterministic(t *testing.T) {
	X := mat.NewDense(6, 3, []float64{
		1, 5, 2,
		2, 3, 1,
		3, 1, 0,
		4, 6, 2,
		5, 2, 1,
		6, 4, 0,
	})
	y := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})

	a := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(7))
	b := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(7))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.FeatureImportances(), b.FeatureImportances())
	assert.Equal(t, a.NodeCount(), b.NodeCount())
}

func BenchmarkDecisionTreeRegressorFit(b *testing.B) {
	n, p := 2000, 5
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, float64((i*(j+3))%97))
		}
		y.Set(i, 0, X.At(i, 0)*2+X.At(i, 3))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewDecisionTreeRegressor(WithMaxDepth(8)).Fit(X, y)
	}
}
