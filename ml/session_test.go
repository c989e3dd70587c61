package ml

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/preprocessing"
	"github.com/YuminosukeSato/datalab/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearTable は y = 2x の列を持つテーブル
func linearTable(t *testing.T, n int) *table.Table {
	t.Helper()
	rows := make([][]string, n)
	for i := range rows {
		x := float64(i + 1)
		rows[i] = []string{
			strconv.FormatFloat(x, 'f', -1, 64),
			strconv.FormatFloat(2*x, 'f', -1, 64),
			strconv.Itoa((i * 7) % 5),
		}
	}
	tbl, err := table.LoadTable([]string{"x", "y", "z"}, rows)
	require.NoError(t, err)
	return tbl
}

func TestSessionTrainLinear(t *testing.T) {
	logger := log.NewTestLogger(log.LevelDebug)
	s := NewSession(linearTable(t, 20), WithLogger(logger), WithSessionID("s-1"))
	assert.Equal(t, StateIdle, s.State())

	res, err := s.Train(context.Background(), TrainRequest{
		Target:       "y",
		Features:     []string{"x"},
		Algorithm:    LinearRegression{},
		TestFraction: 0.2,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.R2, 1e-9)
	assert.InDelta(t, 0.0, res.RMSE, 1e-9)
	assert.True(t, math.IsNaN(res.Inertia))
	assert.Equal(t, 16, res.TrainSamples)
	assert.Equal(t, 4, res.TestSamples)
	require.Len(t, res.Importances, 1)
	assert.Equal(t, "x", res.Importances[0].Feature)
	assert.InDelta(t, 2.0, res.Importances[0].Importance, 1e-9)
	assert.Len(t, res.CV.Scores, DefaultCVFolds)
	assert.InDelta(t, 1.0, res.CV.Mean, 1e-9)

	assert.Equal(t, StateTrained, s.State())
	assert.Same(t, res.Model, s.Model())
	assert.Equal(t, FamilyRegression, s.Model().Family())
	assert.NoError(t, s.LastError())

	got, err := s.Predict([]float64{50})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 1e-6)

	assert.True(t, logger.ContainsMessage("training finished"))
	assert.True(t, logger.ContainsField(log.SessionIDKey, "s-1"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, NameLinearRegression))
}

func TestSessionPredictErrors(t *testing.T) {
	s := NewSession(linearTable(t, 10))
	_, err := s.Predict([]float64{1})
	assert.Equal(t, errors.KindNotTrained, errors.KindOf(err))

	_, err = Predict(nil, []float64{1})
	assert.Equal(t, errors.KindNotTrained, errors.KindOf(err))

	_, err = s.Train(context.Background(), TrainRequest{Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{}})
	require.NoError(t, err)

	_, err = s.Predict([]float64{1, 2})
	var fs *errors.FeatureShapeError
	require.True(t, errors.As(err, &fs))
	assert.Equal(t, 1, fs.Expected)
	assert.Equal(t, 2, fs.Got)
}

func TestSessionTrainMultiFeatureLinearFails(t *testing.T) {
	s := NewSession(linearTable(t, 10))
	_, err := s.Train(context.Background(), TrainRequest{
		Target:    "y",
		Features:  []string{"x", "z"},
		Algorithm: LinearRegression{},
	})
	require.Error(t, err)

	var te *errors.TrainingError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, NameLinearRegression, te.Algorithm)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	assert.Equal(t, StateFailed, s.State())
	assert.Nil(t, s.Model())
	assert.Equal(t, errors.KindTraining, errors.KindOf(s.LastError()))
}

func TestSessionTrainRequestErrorsLeaveStateUntouched(t *testing.T) {
	s := NewSession(linearTable(t, 10))
	_, err := s.Train(context.Background(), TrainRequest{Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{}})
	require.NoError(t, err)
	model := s.Model()

	tests := []struct {
		name string
		req  TrainRequest
		kind errors.Kind
	}{
		{"unknown feature", TrainRequest{Target: "y", Features: []string{"nope"}, Algorithm: LinearRegression{}}, errors.KindColumnNotFound},
		{"unknown target", TrainRequest{Target: "nope", Features: []string{"x"}, Algorithm: LinearRegression{}}, errors.KindColumnNotFound},
		{"no features", TrainRequest{Target: "y", Algorithm: LinearRegression{}}, ""},
		{"no algorithm", TrainRequest{Target: "y", Features: []string{"x"}}, ""},
		{"bad fraction", TrainRequest{Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{}, TestFraction: 1}, ""},
		{"one fold", TrainRequest{Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{}, CVFolds: 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Train(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
			assert.Equal(t, StateTrained, s.State())
			assert.Same(t, model, s.Model())
		})
	}
}

func TestSessionTrainEmptySplitFails(t *testing.T) {
	// floor(2 * 0.4) = 0 で訓練側が空
	s := NewSession(linearTable(t, 2))
	_, err := s.Train(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{}, TestFraction: 0.6,
	})
	assert.Equal(t, errors.KindTraining, errors.KindOf(err))
	assert.Equal(t, StateFailed, s.State())

	empty, err := table.LoadTable([]string{"x", "y"}, nil)
	require.NoError(t, err)
	_, err = NewSession(empty).Train(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{},
	})
	assert.ErrorIs(t, err, errors.ErrEmptyData)
}

func TestSessionTrainPolynomial(t *testing.T) {
	rows := make([][]string, 30)
	for i := range rows {
		x := float64(i) - 10
		rows[i] = []string{fmt.Sprint(x), fmt.Sprint(1 + 0.5*x*x)}
	}
	tbl, err := table.LoadTable([]string{"x", "y"}, rows)
	require.NoError(t, err)

	s := NewSession(tbl)
	alg, err := ParseAlgorithm(NamePolynomialRegression, Hyperparameters{})
	require.NoError(t, err)
	res, err := s.Train(context.Background(), TrainRequest{Target: "y", Features: []string{"x"}, Algorithm: alg})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.R2, 1e-6)
	require.Len(t, res.Importances, 1)
	assert.InDelta(t, 0.5, res.Importances[0].Importance, 1e-6)
}

func TestSessionTrainTreeAndForest(t *testing.T) {
	tbl := linearTable(t, 40)

	tree, err := NewSession(tbl).Train(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x", "z"}, Algorithm: DefaultDecisionTree(),
	})
	require.NoError(t, err)
	assert.Empty(t, tree.Importances)
	assert.NotNil(t, tree.Importances)

	s := NewSession(tbl)
	run, err := s.TrainAsync(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x", "z"},
		Algorithm: RandomForest{NEstimators: 10, MaxDepth: 5, Seed: 1},
	})
	require.NoError(t, err)
	forest, err := run.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1.0, run.Progress())

	require.Len(t, forest.Importances, 2)
	assert.InDelta(t, 1.0, forest.Importances[0].Importance+forest.Importances[1].Importance, 1e-9)
	assert.Greater(t, forest.Importances[0].Importance, forest.Importances[1].Importance)
	assert.Equal(t, StateTrained, s.State())
}

func TestSessionTrainKMeans(t *testing.T) {
	rows := [][]string{}
	for i := 0; i < 20; i++ {
		base := 0.0
		if i%2 == 1 {
			base = 100
		}
		rows = append(rows, []string{fmt.Sprint(base + float64(i%3)), "label"})
	}
	tbl, err := table.LoadTable([]string{"v", "name"}, rows)
	require.NoError(t, err)

	s := NewSession(tbl)
	res, err := s.Train(context.Background(), TrainRequest{
		Features:  []string{"v"},
		Algorithm: KMeans{NClusters: 2, MaxIter: 100, Seed: 3},
	})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(res.RMSE))
	assert.True(t, math.IsNaN(res.R2))
	assert.False(t, math.IsNaN(res.Inertia))
	assert.Empty(t, res.Importances)
	assert.LessOrEqual(t, res.CV.Mean, 0.0)
	assert.Equal(t, "", s.Model().Target())
	assert.Equal(t, FamilyClustering, s.Model().Family())

	low, err := s.Predict([]float64{1})
	require.NoError(t, err)
	high, err := s.Predict([]float64{101})
	require.NoError(t, err)
	assert.NotEqual(t, low, high)
	assert.Contains(t, []float64{0, 1}, low)
}

func TestSessionTrainNaNPropagatesToMetrics(t *testing.T) {
	tbl := linearTable(t, 10)
	tbl = tbl.MapColumn(1, func(cell string) string {
		if cell == "20" {
			return "n/a"
		}
		return cell
	})

	res, err := NewSession(tbl).Train(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x"}, Algorithm: DefaultDecisionTree(),
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.RMSE))
	assert.True(t, math.IsNaN(res.R2))
}

func TestSessionTrainNaNFeatureReachesMetrics(t *testing.T) {
	// 19 行目はテスト側 (訓練 16 行)
	tbl := linearTable(t, 20).MapColumn(0, func(cell string) string {
		if cell == "19" {
			return "n/a"
		}
		return cell
	})
	for _, alg := range []Algorithm{
		DefaultDecisionTree(),
		RandomForest{NEstimators: 5, MaxDepth: 5, Seed: 1},
		LinearRegression{},
	} {
		t.Run(alg.Name(), func(t *testing.T) {
			s := NewSession(tbl)
			res, err := s.Train(context.Background(), TrainRequest{
				Target: "y", Features: []string{"x"}, Algorithm: alg,
			})
			require.NoError(t, err)
			assert.True(t, math.IsNaN(res.RMSE))
			assert.True(t, math.IsNaN(res.R2))
			assert.Equal(t, StateTrained, s.State())
		})
	}
}

func TestSessionTrainPolynomialNaNFeature(t *testing.T) {
	rows := make([][]string, 20)
	for i := range rows {
		x := float64(i + 1)
		rows[i] = []string{fmt.Sprint(x), fmt.Sprint(x * x)}
	}
	rows[2][0] = "n/a"
	tbl, err := table.LoadTable([]string{"x", "y"}, rows)
	require.NoError(t, err)

	s := NewSession(tbl)
	res, err := s.Train(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x"}, Algorithm: DefaultPolynomialRegression(),
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.RMSE))
	assert.True(t, math.IsNaN(res.R2))
	assert.Equal(t, StateTrained, s.State())
}

func TestSessionTrainCapsFoldsToRowCount(t *testing.T) {
	s := NewSession(linearTable(t, 4))
	res, err := s.Train(context.Background(), TrainRequest{
		Target: "y", Features: []string{"x"}, Algorithm: LinearRegression{}, TestFraction: 0.25,
	})
	require.NoError(t, err)
	assert.Len(t, res.CV.Scores, 4)
	assert.Equal(t, 3, res.TrainSamples)
	assert.Equal(t, StateTrained, s.State())
}

func TestSessionRejectsConcurrentRun(t *testing.T) {
	s := NewSession(linearTable(t, 2000))
	req := TrainRequest{
		Target: "y", Features: []string{"x", "z"},
		Algorithm: RandomForest{NEstimators: 200, MaxDepth: 10, Seed: 1},
	}
	run, err := s.TrainAsync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StateTraining, s.State())

	_, err = s.TrainAsync(context.Background(), req)
	assert.Equal(t, errors.KindTrainingInProgress, errors.KindOf(err))

	run.Cancel()
	<-run.Done()
	_, err = run.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Model())
	assert.NoError(t, s.LastError())
}

func TestSessionApply(t *testing.T) {
	tbl, err := table.LoadTable([]string{"a"}, [][]string{{"1"}, {""}, {"3"}})
	require.NoError(t, err)
	s := NewSession(tbl)

	out, err := s.Apply("a", preprocessing.FillMean)
	require.NoError(t, err)
	assert.Equal(t, "2", out.Cell(1, 0))
	assert.Same(t, out, s.Table())

	_, err = s.Apply("missing", preprocessing.FillMean)
	assert.Equal(t, errors.KindColumnNotFound, errors.KindOf(err))
	assert.Same(t, out, s.Table())

	st, err := s.Describe("a")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, st.Mean, 1e-12)

	m, err := s.Correlate([]string{"a"})
	require.NoError(t, err)
	assert.Empty(t, m.Cells)
}

func TestRunProgressMonotonic(t *testing.T) {
	r := &Run{}
	r.setProgress(0.5)
	r.setProgress(0.2)
	assert.Equal(t, 0.5, r.Progress())
	r.setProgress(1)
	assert.Equal(t, 1.0, r.Progress())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "training", StateTraining.String())
	assert.Equal(t, "trained", StateTrained.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
