// Package ensemble implements a bagged random forest of regression trees.
package ensemble

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/core/parallel"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor averages DecisionTreeRegressors, each fit on a
// bootstrap sample of the training rows.
//
// Tree i draws its bootstrap sample and its feature subsets from seed+i,
// so the fitted forest does not depend on how trees are scheduled.
type RandomForestRegressor struct {
	model.BaseEstimator

	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
	seed            uint64
	workers         int
	progress        func(done, total int)

	trees       []*tree.DecisionTreeRegressor
	importances []float64
}

var (
	_ model.Estimator       = (*RandomForestRegressor)(nil)
	_ model.FeatureImporter = (*RandomForestRegressor)(nil)
)

// Defaults used by NewRandomForestRegressor.
const (
	DefaultNEstimators = 100
	DefaultMaxDepth    = 10
	DefaultSeed        = 42
)

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(f *RandomForestRegressor) { f.nEstimators = n } }

// WithMaxDepth sets the depth limit of every tree. 0 => unlimited.
func WithMaxDepth(d int) Option { return func(f *RandomForestRegressor) { f.maxDepth = d } }

// WithMinSamplesSplit sets min_samples_split of every tree.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForestRegressor) { f.minSamplesSplit = n }
}

// WithMaxFeatures sets how many features each split considers. 0 => all.
func WithMaxFeatures(k int) Option { return func(f *RandomForestRegressor) { f.maxFeatures = k } }

// WithSeed sets the base seed.
func WithSeed(seed uint64) Option { return func(f *RandomForestRegressor) { f.seed = seed } }

// WithWorkers bounds the number of trees fit concurrently. 0 => NumCPU.
func WithWorkers(n int) Option { return func(f *RandomForestRegressor) { f.workers = n } }

// WithProgress registers a callback invoked after each tree is fit. done is
// strictly increasing across calls.
func WithProgress(fn func(done, total int)) Option {
	return func(f *RandomForestRegressor) { f.progress = fn }
}

// NewRandomForestRegressor creates a forest with 100 trees of depth 10 and
// seed 42 unless overridden.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		nEstimators:     DefaultNEstimators,
		maxDepth:        DefaultMaxDepth,
		minSamplesSplit: 2,
		seed:            DefaultSeed,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit is FitContext with a background context.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return f.FitContext(context.Background(), X, y)
}

// FitContext fits every tree, stopping early when ctx is cancelled.
func (f *RandomForestRegressor) FitContext(ctx context.Context, X, y mat.Matrix) error {
	const op = "RandomForestRegressor.Fit"
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	if f.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.nEstimators)
	}

	logger := log.GetLoggerWithName("ensemble")
	logger.Debug("fitting random forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"n_estimators", f.nEstimators,
		log.RandomSeedKey, f.seed,
	)

	trees := make([]*tree.DecisionTreeRegressor, f.nEstimators)
	var (
		mu   sync.Mutex
		done int
	)
	err := parallel.ForEach(ctx, f.nEstimators, f.workers, func(ctx context.Context, i int) error {
		seed := f.seed + uint64(i)
		bx, by := bootstrap(X, y, rand.New(rand.NewPCG(seed, seed)))

		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(f.maxDepth),
			tree.WithMinSamplesSplit(f.minSamplesSplit),
			tree.WithMaxFeatures(f.maxFeatures),
			tree.WithRandomState(seed),
		)
		if err := t.Fit(bx, by); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t

		mu.Lock()
		done++
		if f.progress != nil {
			f.progress(done, f.nEstimators)
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	f.trees = trees
	f.importances = meanImportances(trees, c)
	f.SetFitted(c)
	return nil
}

// Predict averages the predictions of every tree.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := f.RequireFitted("RandomForestRegressor", "Predict", c); err != nil {
		return nil, err
	}
	sum := mat.NewVecDense(r, nil)
	for _, t := range f.trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		sum.AddVec(sum, p.(*mat.VecDense))
	}
	sum.ScaleVec(1/float64(len(f.trees)), sum)
	return sum, nil
}

// FeatureImportances returns the mean of the per-tree normalized impurity
// decreases, renormalized to sum to 1.
func (f *RandomForestRegressor) FeatureImportances() []float64 {
	if !f.IsFitted() {
		return nil
	}
	return append([]float64(nil), f.importances...)
}

// NEstimators returns the configured number of trees.
func (f *RandomForestRegressor) NEstimators() int { return f.nEstimators }

// Trees returns the fitted trees.
func (f *RandomForestRegressor) Trees() []*tree.DecisionTreeRegressor { return f.trees }

func (f *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, max_depth=%d, seed=%d)",
		f.nEstimators, f.maxDepth, f.seed)
}

// bootstrap draws len(rows) rows with replacement.
func bootstrap(X, y mat.Matrix, rng *rand.Rand) (*mat.Dense, *mat.Dense) {
	r, c := X.Dims()
	bx := mat.NewDense(r, c, nil)
	by := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		src := rng.IntN(r)
		bx.SetRow(i, mat.Row(row, src, X))
		by.Set(i, 0, y.At(src, 0))
	}
	return bx, by
}

func meanImportances(trees []*tree.DecisionTreeRegressor, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, t := range trees {
		for j, v := range t.FeatureImportances() {
			out[j] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
