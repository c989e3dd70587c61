package ml

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/ensemble"
	"github.com/YuminosukeSato/datalab/metrics"
	"github.com/YuminosukeSato/datalab/modelselection"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/table"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Defaults applied to zero TrainRequest fields.
const (
	DefaultTestFraction = 0.2
	DefaultCVFolds      = modelselection.DefaultNSplits
)

// TrainRequest selects the columns and algorithm of one training run.
type TrainRequest struct {
	Target       string   // ignored by k-means
	Features     []string // ordered; Predict takes values in this order
	Algorithm    Algorithm
	TestFraction float64 // in (0, 1); 0 => DefaultTestFraction
	CVFolds      int     // 0 => DefaultCVFolds
}

// FeatureImportance pairs a feature column with its importance.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// TrainResult is what a successful run reports. RMSE and R2 are NaN for
// k-means; Inertia is NaN for regressors.
type TrainResult struct {
	Model        *Model
	RMSE         float64
	R2           float64
	Inertia      float64 // k-means inertia of the test split
	Importances  []FeatureImportance
	CV           modelselection.CVResult
	TrainSamples int
	TestSamples  int
	Duration     time.Duration
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r *TrainResult) MarshalZerologObject(e *zerolog.Event) {
	e.Str(log.ModelNameKey, r.Model.Algorithm().Name()).
		Float64(log.RMSEKey, r.RMSE).
		Float64(log.R2ScoreKey, r.R2).
		Float64(log.InertiaKey, r.Inertia).
		Float64(log.CVMeanKey, r.CV.Mean).
		Float64(log.CVStdKey, r.CV.StdDev).
		Int(log.TrainSamplesKey, r.TrainSamples).
		Int(log.TestSamplesKey, r.TestSamples).
		Int64(log.DurationMsKey, r.Duration.Milliseconds())
}

// dataset is a validated request with its matrices built.
type dataset struct {
	algorithm    Algorithm
	target       string
	features     []string
	X            *mat.Dense // nil when the table has no data rows
	y            *mat.Dense // nil for k-means
	testFraction float64
	folds        int
}

// prepare resolves every column and builds X and y. Cells that do not
// parse become NaN; no rows are dropped.
func prepare(t *table.Table, req TrainRequest) (*dataset, error) {
	if req.Algorithm == nil {
		return nil, errors.NewValidationError("algorithm", "no algorithm selected", nil)
	}
	if len(req.Features) == 0 {
		return nil, errors.NewValidationError("features", "at least one feature column is required", req.Features)
	}
	d := &dataset{
		algorithm:    req.Algorithm,
		features:     append([]string(nil), req.Features...),
		testFraction: req.TestFraction,
		folds:        req.CVFolds,
	}
	if d.testFraction == 0 {
		d.testFraction = DefaultTestFraction
	}
	if !(d.testFraction > 0 && d.testFraction < 1) {
		return nil, errors.NewValidationError("test_fraction", "must lie in (0, 1)", req.TestFraction)
	}
	if d.folds == 0 {
		d.folds = DefaultCVFolds
	}
	if d.folds < 2 {
		return nil, errors.NewValidationError("cv_folds", "must be at least 2", req.CVFolds)
	}

	cols := make([]int, len(req.Features))
	for j, name := range req.Features {
		c, err := t.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	target := -1
	if req.Algorithm.Family() == FamilyRegression {
		c, err := t.ColumnIndex(req.Target)
		if err != nil {
			return nil, err
		}
		target = c
		d.target = req.Target
	}

	n := t.NumRows()
	if n == 0 {
		return d, nil
	}
	d.X = mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for j, c := range cols {
			d.X.Set(i, j, parseOrNaN(t.Cell(i, c)))
		}
	}
	if target >= 0 {
		d.y = mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			d.y.Set(i, 0, parseOrNaN(t.Cell(i, target)))
		}
	}
	return d, nil
}

func parseOrNaN(cell string) float64 {
	if v, ok := table.ParseNumber(cell); ok {
		return v
	}
	return math.NaN()
}

// Progress milestones of a run. Fitting spans progressSplit..progressFitEnd
// and cross-validation spans progressCVStart..1.
const (
	progressPrepared = 0.05
	progressSplit    = 0.10
	progressFitEnd   = 0.60
	progressEval     = 0.65
	progressCVStart  = 0.70
)

// execute runs split, fit, evaluation, importance and cross-validation.
// Failures other than cancellation come back as *errors.TrainingError.
func execute(ctx context.Context, d *dataset, report func(float64), logger log.Logger) (*TrainResult, error) {
	name := d.algorithm.Name()
	start := time.Now()

	var res *TrainResult
	err := errors.SafeExecute(name+".train", func() error {
		var err error
		res, err = runStages(ctx, d, report, logger)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTrainingError(name, err)
	}
	res.Duration = time.Since(start)
	report(1)
	return res, nil
}

func runStages(ctx context.Context, d *dataset, report func(float64), logger log.Logger) (*TrainResult, error) {
	if d.X == nil {
		return nil, errors.NewModelError("train", "table has no data rows", errors.ErrEmptyData)
	}
	_, p := d.X.Dims()
	switch d.algorithm.(type) {
	case LinearRegression, PolynomialRegression:
		if p != 1 {
			return nil, errors.NewDimensionError(d.algorithm.Name(), 1, p, 1)
		}
	}
	report(progressPrepared)

	// 1. 順序を保った先頭分割
	var y mat.Matrix
	if d.y != nil {
		y = d.y
	}
	split, err := modelselection.TrainTestSplit(d.X, y, d.testFraction)
	if err != nil {
		return nil, err
	}
	nTrain, _ := split.XTrain.Dims()
	nTest, _ := split.XTest.Dims()
	report(progressSplit)
	logger.Debug("split dataset",
		log.PhaseKey, log.PhaseTraining,
		log.TrainSamplesKey, nTrain,
		log.TestSamplesKey, nTest,
	)

	// 2. 学習
	est, err := buildEstimator(d.algorithm, func(done, total int) {
		report(progressSplit + (progressFitEnd-progressSplit)*float64(done)/float64(total))
	})
	if err != nil {
		return nil, err
	}
	if err := fit(ctx, est, split.XTrain, split.YTrain); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(progressFitEnd)

	// 3. テスト分割で評価
	res := &TrainResult{
		Model: &Model{
			algorithm: d.algorithm,
			estimator: est,
			target:    d.target,
			features:  d.features,
		},
		RMSE:         math.NaN(),
		R2:           math.NaN(),
		Inertia:      math.NaN(),
		TrainSamples: nTrain,
		TestSamples:  nTest,
	}
	if err := evaluate(res, est, split); err != nil {
		return nil, err
	}
	logger.Debug("evaluated on test split",
		log.PhaseKey, log.PhaseTesting,
		log.RMSEKey, res.RMSE,
		log.R2ScoreKey, res.R2,
		log.InertiaKey, res.Inertia,
	)
	report(progressEval)

	// 4. 特徴量重要度
	res.Importances = importances(est, d)

	// 5. 全データでの交差検証
	var scorer modelselection.Scorer = modelselection.R2Scorer
	if d.algorithm.Family() == FamilyClustering {
		scorer = modelselection.NegMeanInertiaScorer
	}
	report(progressCVStart)
	// 行数より多い fold は切り詰める (テスト分割が成立していれば n >= 2)
	folds := min(d.folds, nTrain+nTest)
	if folds < d.folds {
		logger.Debug("capped cv folds to row count",
			log.PhaseKey, log.PhaseValidation,
			log.SamplesKey, nTrain+nTest,
			log.FoldKey, folds,
		)
	}
	cv, err := modelselection.CrossValidate(ctx,
		func() model.Estimator {
			e, _ := buildEstimator(d.algorithm, nil)
			return e
		},
		d.X, y, modelselection.NewKFold(folds), scorer,
		modelselection.WithFoldCallback(func(done, total int) {
			report(progressCVStart + (1-progressCVStart)*float64(done)/float64(total))
		}),
	)
	if err != nil {
		return nil, err
	}
	res.CV = *cv
	return res, nil
}

func fit(ctx context.Context, est model.Estimator, X, y mat.Matrix) error {
	if f, ok := est.(*ensemble.RandomForestRegressor); ok {
		return f.FitContext(ctx, X, y)
	}
	return est.Fit(X, y)
}

func evaluate(res *TrainResult, est model.Estimator, split *modelselection.Split) error {
	if res.Model.Family() == FamilyClustering {
		in, ok := est.(interface {
			Inertia(X mat.Matrix) (float64, error)
		})
		if !ok {
			return errors.NewValueError("evaluate", "clustering model does not report inertia")
		}
		v, err := in.Inertia(split.XTest)
		if err != nil {
			return err
		}
		res.Inertia = v
		return nil
	}

	pred, err := est.Predict(split.XTest)
	if err != nil {
		return err
	}
	yPred, err := metrics.ColumnVector(pred)
	if err != nil {
		return err
	}
	yTrue, err := metrics.ColumnVector(split.YTest)
	if err != nil {
		return err
	}
	if res.RMSE, err = metrics.RMSE(yTrue, yPred); err != nil {
		return err
	}
	// 全変動はテスト分割自身の平均に対して取る
	res.R2, err = metrics.R2ScoreOrNaN(yTrue, yPred)
	return err
}

// importances reports coefficient-derived importance for the regressions,
// per-feature impurity decrease for the forest and nothing otherwise.
func importances(est model.Estimator, d *dataset) []FeatureImportance {
	out := []FeatureImportance{}
	switch d.algorithm.(type) {
	case LinearRegression, PolynomialRegression, RandomForest:
	default:
		return out
	}
	fi, ok := est.(model.FeatureImporter)
	if !ok {
		return out
	}
	for j, v := range fi.FeatureImportances() {
		out = append(out, FeatureImportance{Feature: d.features[j], Importance: v})
	}
	return out
}
