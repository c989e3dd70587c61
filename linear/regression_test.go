package linear

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearRegressionBasic(t *testing.T) {
	// y = 2x + 1
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.InDelta(t, 2.0, lr.Weights()[0], 1e-9)
	assert.InDelta(t, 1.0, lr.Intercept(), 1e-9)
	assert.InDeltaSlice(t, []float64{2.0}, lr.FeatureImportances(), 1e-9)

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{5, 6}))
	require.NoError(t, err)
	assert.InDelta(t, 11.0, pred.At(0, 0), 1e-9)
	assert.InDelta(t, 13.0, pred.At(1, 0), 1e-9)
}

func TestLinearRegressionMultipleFeatures(t *testing.T) {
	// y = 1 + 0.5·x1 - 3·x2
	X := mat.NewDense(5, 2, []float64{
		1, 0,
		0, 1,
		2, 1,
		3, 5,
		4, 2,
	})
	y := mat.NewDense(5, 1, nil)
	for i := 0; i < 5; i++ {
		y.Set(i, 0, 1+0.5*X.At(i, 0)-3*X.At(i, 1))
	}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{0.5, -3}, lr.Weights(), 1e-9)
	assert.InDeltaSlice(t, []float64{0.5, 3}, lr.FeatureImportances(), 1e-9)
	assert.Contains(t, lr.String(), "n_features=2")
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2}))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	// Constant feature: XᵀX is singular.
	err = lr.Fit(mat.NewDense(3, 1, []float64{2, 2, 2}), mat.NewDense(3, 1, []float64{1, 2, 3}))
	assert.ErrorIs(t, err, errors.ErrSingularMatrix)

	require.NoError(t, lr.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1})))
	_, err = lr.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.True(t, errors.As(err, &de))
}

func TestPolynomialRegressionQuadratic(t *testing.T) {
	// y = 3 - 2x + 0.5x²
	xs := []float64{-3, -2, -1, 0, 1, 2, 3, 4}
	X := mat.NewDense(len(xs), 1, xs)
	y := mat.NewDense(len(xs), 1, nil)
	for i, x := range xs {
		y.Set(i, 0, 3-2*x+0.5*x*x)
	}

	p := NewPolynomialRegression()
	assert.Equal(t, DefaultDegree, p.Degree())
	require.NoError(t, p.Fit(X, y))
	assert.InDeltaSlice(t, []float64{3, -2, 0.5}, p.Coefficients(), 1e-8)
	assert.InDeltaSlice(t, []float64{2.5}, p.FeatureImportances(), 1e-8)

	pred, err := p.Predict(mat.NewDense(1, 1, []float64{10}))
	require.NoError(t, err)
	assert.InDelta(t, 33.0, pred.At(0, 0), 1e-6)
}

func TestPolynomialRegressionDegreeOneMatchesLinear(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	p := NewPolynomialRegression(WithDegree(1))
	require.NoError(t, p.Fit(X, y))
	coef := p.Coefficients()
	require.Len(t, coef, 2)
	assert.InDelta(t, 0, coef[0], 1e-9)
	assert.InDelta(t, 2, coef[1], 1e-9)
}

func TestPolynomialRegressionErrors(t *testing.T) {
	p := NewPolynomialRegression()

	err := p.Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 1, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	err = p.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 2}))
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	err = NewPolynomialRegression(WithDegree(0)).Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 2, 3}))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	assert.Nil(t, p.FeatureImportances())
	_, err = p.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestPolynomialRegressionNonFiniteInput(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{1, math.NaN(), 3, 4, 5})
	y := mat.NewDense(5, 1, []float64{1, 4, 9, 16, 25})

	p := NewPolynomialRegression(WithDegree(2))
	require.NoError(t, p.Fit(X, y))
	for _, c := range p.Coefficients() {
		assert.True(t, math.IsNaN(c))
	}

	pred, err := p.Predict(mat.NewDense(1, 1, []float64{2}))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(pred.At(0, 0)))
}

func TestHorner(t *testing.T) {
	assert.Equal(t, 0.0, horner(nil, 5))
	assert.Equal(t, 1+2*3+3*9.0, horner([]float64{1, 2, 3}, 3))
	assert.True(t, math.IsNaN(horner([]float64{1, 1}, math.NaN())))
}
