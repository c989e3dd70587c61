package linear

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PolynomialRegression fits y = c0 + c1·x + ... + cd·x^d on a single
// feature by least squares (QR factorization of the Vandermonde matrix).
type PolynomialRegression struct {
	model.BaseEstimator
	degree int
	coef   []float64 // coef[k] multiplies x^k
}

var (
	_ model.Estimator       = (*PolynomialRegression)(nil)
	_ model.FeatureImporter = (*PolynomialRegression)(nil)
)

// DefaultDegree is the polynomial degree used unless WithDegree is given.
const DefaultDegree = 2

// PolynomialOption configures a PolynomialRegression.
type PolynomialOption func(*PolynomialRegression)

// WithDegree sets the polynomial degree (at least 1).
func WithDegree(degree int) PolynomialOption {
	return func(p *PolynomialRegression) {
		p.degree = degree
	}
}

// NewPolynomialRegression creates a polynomial regressor.
func NewPolynomialRegression(opts ...PolynomialOption) *PolynomialRegression {
	p := &PolynomialRegression{degree: DefaultDegree}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit solves the least-squares problem for the coefficients. X must have
// exactly one column.
func (p *PolynomialRegression) Fit(X, y mat.Matrix) error {
	const op = "PolynomialRegression.Fit"
	r, c, err := checkFitInput(op, X, y)
	if err != nil {
		return err
	}
	if c != 1 {
		return errors.NewDimensionError(op, 1, c, 1)
	}
	if p.degree < 1 {
		return errors.NewValidationError("degree", "must be at least 1", p.degree)
	}
	if r < p.degree+1 {
		return errors.NewModelError(op, fmt.Sprintf("need at least %d samples for degree %d", p.degree+1, p.degree), errors.ErrEmptyData)
	}

	x, yv := mat.Col(nil, 0, X), mat.Col(nil, 0, y)
	if !allFinite(x) || !allFinite(yv) {
		// 非有限値があると QR は解けない。係数を NaN にして予測と指標へ伝播させる
		p.coef = make([]float64, p.degree+1)
		for k := range p.coef {
			p.coef[k] = math.NaN()
		}
		p.SetFitted(1)
		return nil
	}
	vander := vandermonde(x, p.degree)

	var w mat.VecDense
	if err := w.SolveVec(vander, mat.NewVecDense(r, yv)); err != nil {
		// An ill-conditioned but finite solve still yields usable coefficients.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return errors.NewModelError(op, "rank-deficient design matrix", errors.ErrSingularMatrix)
		}
	}

	p.coef = mat.Col(nil, 0, &w)
	p.SetFitted(1)
	return nil
}

// Predict evaluates the fitted polynomial on the single column of X.
func (p *PolynomialRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := p.RequireFitted("PolynomialRegression", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, horner(p.coef, X.At(i, 0)))
	}
	return out, nil
}

// Coefficients returns c0..cd.
func (p *PolynomialRegression) Coefficients() []float64 {
	return append([]float64(nil), p.coef...)
}

// FeatureImportances reports Σ|c_k| over the non-constant terms as the
// importance of the one feature.
func (p *PolynomialRegression) FeatureImportances() []float64 {
	if !p.IsFitted() {
		return nil
	}
	var sum float64
	for _, c := range p.coef[1:] {
		sum += math.Abs(c)
	}
	return []float64{sum}
}

// Degree returns the configured degree.
func (p *PolynomialRegression) Degree() int { return p.degree }

func vandermonde(x []float64, degree int) *mat.Dense {
	v := mat.NewDense(len(x), degree+1, nil)
	for i, xi := range x {
		pow := 1.0
		for k := 0; k <= degree; k++ {
			v.Set(i, k, pow)
			pow *= xi
		}
	}
	return v
}

func horner(coef []float64, x float64) float64 {
	var y float64
	for k := len(coef) - 1; k >= 0; k-- {
		y = y*x + coef[k]
	}
	return y
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
