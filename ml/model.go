package ml

import (
	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Model is a fully trained estimator together with the columns it was
// trained on. A Model is never partially trained.
type Model struct {
	algorithm Algorithm
	estimator model.Estimator
	target    string
	features  []string
}

// Algorithm returns the variant the model was trained with.
func (m *Model) Algorithm() Algorithm { return m.algorithm }

// Family reports whether Predict returns a regression value or a cluster
// index.
func (m *Model) Family() Family { return m.algorithm.Family() }

// Target returns the target column name (empty for k-means).
func (m *Model) Target() string { return m.target }

// Features returns the feature column names in training order.
func (m *Model) Features() []string { return append([]string(nil), m.features...) }

// Predict evaluates one feature vector, given in training column order.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != len(m.features) {
		return 0, errors.NewFeatureShapeError(len(m.features), len(features))
	}
	x := mat.NewDense(1, len(features), append([]float64(nil), features...))
	out, err := m.estimator.Predict(x)
	if err != nil {
		return 0, err
	}
	return out.At(0, 0), nil
}

// Predict is m.Predict with the NotTrainedError check for a nil model.
func Predict(m *Model, features []float64) (float64, error) {
	if m == nil {
		return 0, errors.NewNotTrainedError()
	}
	return m.Predict(features)
}
