// Package ml is the train/evaluate/predict engine. A Session holds one table
// snapshot and at most one trained Model; training runs either block
// (Session.Train) or run in the background (Session.TrainAsync).
package ml

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/datalab/cluster"
	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/ensemble"
	"github.com/YuminosukeSato/datalab/linear"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/tree"
	"github.com/rs/zerolog"
)

// Family tells callers how to interpret a prediction.
type Family int

const (
	// FamilyRegression predicts a target value.
	FamilyRegression Family = iota
	// FamilyClustering predicts a cluster index.
	FamilyClustering
)

func (f Family) String() string {
	if f == FamilyClustering {
		return "clustering"
	}
	return "regression"
}

// Algorithm selects a model family and carries its hyperparameters. The set
// of implementations is closed.
type Algorithm interface {
	// Name returns the stable selector name, e.g. "random_forest".
	Name() string
	Family() Family
	isAlgorithm()
}

// Algorithm selector names.
const (
	NameLinearRegression     = "linear_regression"
	NamePolynomialRegression = "polynomial_regression"
	NameDecisionTree         = "decision_tree"
	NameRandomForest         = "random_forest"
	NameKMeans               = "kmeans"
)

// LinearRegression is simple (single-feature) least squares.
type LinearRegression struct{}

// PolynomialRegression fits a single-feature polynomial.
type PolynomialRegression struct {
	Degree int
}

// DecisionTree is a CART regression tree.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
}

// RandomForest is a bagged ensemble of regression trees.
type RandomForest struct {
	NEstimators int
	MaxDepth    int
	Seed        uint64
}

// KMeans clusters the feature rows; the target is ignored.
type KMeans struct {
	NClusters int
	MaxIter   int
	Seed      uint64
}

func (LinearRegression) Name() string     { return NameLinearRegression }
func (PolynomialRegression) Name() string { return NamePolynomialRegression }
func (DecisionTree) Name() string         { return NameDecisionTree }
func (RandomForest) Name() string         { return NameRandomForest }
func (KMeans) Name() string               { return NameKMeans }

func (LinearRegression) Family() Family     { return FamilyRegression }
func (PolynomialRegression) Family() Family { return FamilyRegression }
func (DecisionTree) Family() Family         { return FamilyRegression }
func (RandomForest) Family() Family         { return FamilyRegression }
func (KMeans) Family() Family               { return FamilyClustering }

func (LinearRegression) isAlgorithm()     {}
func (PolynomialRegression) isAlgorithm() {}
func (DecisionTree) isAlgorithm()         {}
func (RandomForest) isAlgorithm()         {}
func (KMeans) isAlgorithm()               {}

// Default constructors.

func DefaultPolynomialRegression() PolynomialRegression {
	return PolynomialRegression{Degree: linear.DefaultDegree}
}

func DefaultDecisionTree() DecisionTree {
	return DecisionTree{MaxDepth: 10, MinSamplesSplit: 2}
}

func DefaultRandomForest() RandomForest {
	return RandomForest{
		NEstimators: ensemble.DefaultNEstimators,
		MaxDepth:    ensemble.DefaultMaxDepth,
		Seed:        ensemble.DefaultSeed,
	}
}

func DefaultKMeans() KMeans {
	return KMeans{
		NClusters: cluster.DefaultNClusters,
		MaxIter:   cluster.DefaultMaxIter,
		Seed:      cluster.DefaultSeed,
	}
}

// Hyperparameters is the flat, optional form of every variant's settings
// used at the CLI and config boundary. Zero fields take the variant default.
type Hyperparameters struct {
	Degree          int    `mapstructure:"degree" yaml:"degree,omitempty"`
	MaxDepth        int    `mapstructure:"max_depth" yaml:"max_depth,omitempty"`
	MinSamplesSplit int    `mapstructure:"min_samples_split" yaml:"min_samples_split,omitempty"`
	NEstimators     int    `mapstructure:"n_estimators" yaml:"n_estimators,omitempty"`
	NClusters       int    `mapstructure:"n_clusters" yaml:"n_clusters,omitempty"`
	MaxIter         int    `mapstructure:"max_iter" yaml:"max_iter,omitempty"`
	Seed            uint64 `mapstructure:"seed" yaml:"seed,omitempty"`
}

// Algorithms returns every selector name in catalog order.
func Algorithms() []string {
	return []string{NameLinearRegression, NamePolynomialRegression, NameDecisionTree, NameRandomForest, NameKMeans}
}

// ParseAlgorithm maps a selector name to its variant, filling unset
// hyperparameters with defaults.
func ParseAlgorithm(name string, hp Hyperparameters) (Algorithm, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameLinearRegression:
		return LinearRegression{}, nil
	case NamePolynomialRegression:
		a := DefaultPolynomialRegression()
		setIf(&a.Degree, hp.Degree)
		return a, nil
	case NameDecisionTree:
		a := DefaultDecisionTree()
		setIf(&a.MaxDepth, hp.MaxDepth)
		setIf(&a.MinSamplesSplit, hp.MinSamplesSplit)
		return a, nil
	case NameRandomForest:
		a := DefaultRandomForest()
		setIf(&a.NEstimators, hp.NEstimators)
		setIf(&a.MaxDepth, hp.MaxDepth)
		if hp.Seed != 0 {
			a.Seed = hp.Seed
		}
		return a, nil
	case NameKMeans:
		a := DefaultKMeans()
		setIf(&a.NClusters, hp.NClusters)
		setIf(&a.MaxIter, hp.MaxIter)
		if hp.Seed != 0 {
			a.Seed = hp.Seed
		}
		return a, nil
	}
	return nil, errors.NewValidationError("algorithm",
		fmt.Sprintf("unknown algorithm (want one of %s)", strings.Join(Algorithms(), ", ")), name)
}

// Validate rejects negative values. Zero means "use the default".
func (hp Hyperparameters) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"degree", hp.Degree},
		{"max_depth", hp.MaxDepth},
		{"min_samples_split", hp.MinSamplesSplit},
		{"n_estimators", hp.NEstimators},
		{"n_clusters", hp.NClusters},
		{"max_iter", hp.MaxIter},
	} {
		if f.v < 0 {
			return errors.NewValidationError(f.name, "must be at least 1 (0 selects the default)", f.v)
		}
	}
	return nil
}

func setIf(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// marshalAlgorithm writes the variant name and its hyperparameters.
func marshalAlgorithm(e *zerolog.Event, a Algorithm) {
	e.Str("name", a.Name())
	switch a := a.(type) {
	case PolynomialRegression:
		e.Int("degree", a.Degree)
	case DecisionTree:
		e.Int("max_depth", a.MaxDepth).Int("min_samples_split", a.MinSamplesSplit)
	case RandomForest:
		e.Int("n_estimators", a.NEstimators).Int("max_depth", a.MaxDepth).Uint64("seed", a.Seed)
	case KMeans:
		e.Int("n_clusters", a.NClusters).Int("max_iter", a.MaxIter).Uint64("seed", a.Seed)
	}
}

type algorithmObject struct{ Algorithm }

func (o algorithmObject) MarshalZerologObject(e *zerolog.Event) { marshalAlgorithm(e, o.Algorithm) }

// buildEstimator returns an unfitted estimator for a. progress, when set,
// receives per-tree updates from the random forest.
func buildEstimator(a Algorithm, progress func(done, total int)) (model.Estimator, error) {
	switch a := a.(type) {
	case LinearRegression:
		return linear.NewLinearRegression(), nil
	case PolynomialRegression:
		return linear.NewPolynomialRegression(linear.WithDegree(a.Degree)), nil
	case DecisionTree:
		return tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(a.MaxDepth),
			tree.WithMinSamplesSplit(a.MinSamplesSplit),
		), nil
	case RandomForest:
		opts := []ensemble.Option{
			ensemble.WithNEstimators(a.NEstimators),
			ensemble.WithMaxDepth(a.MaxDepth),
			ensemble.WithSeed(a.Seed),
		}
		if progress != nil {
			opts = append(opts, ensemble.WithProgress(progress))
		}
		return ensemble.NewRandomForestRegressor(opts...), nil
	case KMeans:
		return cluster.NewKMeans(
			cluster.WithNClusters(a.NClusters),
			cluster.WithMaxIter(a.MaxIter),
			cluster.WithRandomState(a.Seed),
		), nil
	case nil:
		return nil, errors.NewValidationError("algorithm", "no algorithm selected", nil)
	}
	return nil, errors.NewValidationError("algorithm", "unsupported algorithm", fmt.Sprintf("%T", a))
}
