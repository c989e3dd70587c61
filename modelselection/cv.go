package modelselection

import (
	"context"
	"math"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/metrics"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CVResult stores cross-validation results.
type CVResult struct {
	Scores []float64 // one held-out score per fold
	Mean   float64
	StdDev float64 // sample standard deviation (n-1)
}

// Scorer scores a fitted estimator on held-out data. y is nil for
// estimators trained without a target.
type Scorer func(est model.Estimator, X, y mat.Matrix) (float64, error)

// ContextFitter is implemented by estimators whose Fit can be cancelled.
type ContextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// R2Scorer scores with R² against the fold's own mean. A constant fold
// scores NaN.
func R2Scorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector(y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.ColumnVector(pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreOrNaN(yTrue, yPred)
}

// NegMeanInertiaScorer scores a clustering model with the negative mean
// squared distance of each held-out sample to its nearest center.
func NegMeanInertiaScorer(est model.Estimator, X, _ mat.Matrix) (float64, error) {
	in, ok := est.(interface {
		Inertia(X mat.Matrix) (float64, error)
	})
	if !ok {
		return 0, errors.NewValueError("NegMeanInertiaScorer", "estimator does not report inertia")
	}
	v, err := in.Inertia(X)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	return -v / float64(n), nil
}

// CVOption configures CrossValidate.
type CVOption func(*cvConfig)

type cvConfig struct {
	onFold func(done, total int)
}

// WithFoldCallback is called after each fold finishes.
func WithFoldCallback(fn func(done, total int)) CVOption {
	return func(c *cvConfig) { c.onFold = fn }
}

// CrossValidate fits a fresh estimator from newEstimator on the training
// indices of every fold and scores it on the held-out indices. Folds run in
// order; ctx is checked between folds and passed to estimators that
// implement ContextFitter. y may be nil for unsupervised estimators.
func CrossValidate(ctx context.Context, newEstimator func() model.Estimator, X, y mat.Matrix,
	cv *KFold, score Scorer, opts ...CVOption) (*CVResult, error) {
	cfg := cvConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	n, _ := X.Dims()
	folds, err := cv.Split(n)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("modelselection")
	scores := make([]float64, len(folds))
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trainX, testX := Subset(X, fold.TrainIndices), Subset(X, fold.TestIndices)
		var trainY, testY mat.Matrix
		if y != nil {
			trainY, testY = Subset(y, fold.TrainIndices), Subset(y, fold.TestIndices)
		}

		est := newEstimator()
		if cf, ok := est.(ContextFitter); ok {
			err = cf.FitContext(ctx, trainX, trainY)
		} else {
			err = est.Fit(trainX, trainY)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d training failed", i)
		}

		scores[i], err = score(est, testX, testY)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d scoring failed", i)
		}

		logger.Debug("fold done", log.PhaseKey, log.PhaseValidation, log.FoldKey, i, log.ScoreKey, scores[i])
		if cfg.onFold != nil {
			cfg.onFold(i+1, len(folds))
		}
	}

	res := &CVResult{Scores: scores}
	res.Mean, res.StdDev = stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		res.StdDev = math.NaN()
	}
	return res, nil
}
