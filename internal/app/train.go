package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/datalab/ml"
	"github.com/spf13/cobra"
)

type trainFlags struct {
	algorithm    string
	target       string
	features     []string
	testFraction float64
	cvFolds      int
	hp           ml.Hyperparameters
	predict      string
	progress     bool
}

func newTrainCmd(o *options) *cobra.Command {
	f := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train FILE",
		Short: "Train a model, report test metrics and cross-validation",
		Long: `Train splits the table in row order (no shuffling) into a training
prefix and a test suffix, fits the chosen algorithm, reports RMSE and R²
on the test rows, feature importances and k-fold cross-validation scores.

Algorithms: linear_regression, polynomial_regression, decision_tree,
random_forest, kmeans. Linear and polynomial regression take exactly one
feature. kmeans ignores --target and reports inertia instead of RMSE/R².

Cells that do not parse as numbers become NaN and propagate into the
metrics rather than failing the run.`,
		Example: `  datalab train data.csv --algorithm linear_regression --target y --features x
  datalab train data.csv --algorithm random_forest --target price --features rooms,area --n-estimators 50
  datalab train data.csv --algorithm kmeans --features x,y --n-clusters 4 --predict 1.2,3.4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.train(cmd, args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.algorithm, "algorithm", "", "algorithm name")
	fl.StringVar(&f.target, "target", "", "target column (regression only)")
	fl.StringSliceVar(&f.features, "features", nil, "feature columns, in order")
	fl.Float64Var(&f.testFraction, "test-fraction", 0, "test split fraction in (0, 1) (default from config)")
	fl.IntVar(&f.cvFolds, "cv-folds", 0, "cross-validation folds (default from config)")
	fl.IntVar(&f.hp.Degree, "degree", 0, "polynomial degree")
	fl.IntVar(&f.hp.MaxDepth, "max-depth", 0, "tree depth limit")
	fl.IntVar(&f.hp.MinSamplesSplit, "min-samples-split", 0, "minimum samples to split a tree node")
	fl.IntVar(&f.hp.NEstimators, "n-estimators", 0, "number of forest trees")
	fl.IntVar(&f.hp.NClusters, "n-clusters", 0, "number of k-means clusters")
	fl.IntVar(&f.hp.MaxIter, "max-iter", 0, "k-means iteration limit")
	fl.Uint64Var(&f.hp.Seed, "seed", 0, "random seed for forest and k-means")
	fl.StringVar(&f.predict, "predict", "", "comma-separated feature values to predict after training")
	fl.BoolVar(&f.progress, "progress", false, "print training progress to stderr")
	_ = cmd.MarkFlagRequired("algorithm")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}

// hyperparameters overlays the flags the user set on the configured values.
func (o *options) hyperparameters(cmd *cobra.Command, f *trainFlags) ml.Hyperparameters {
	hp := o.cfg.Hyperparameters
	fl := cmd.Flags()
	for name, pair := range map[string][2]*int{
		"degree":            {&hp.Degree, &f.hp.Degree},
		"max-depth":         {&hp.MaxDepth, &f.hp.MaxDepth},
		"min-samples-split": {&hp.MinSamplesSplit, &f.hp.MinSamplesSplit},
		"n-estimators":      {&hp.NEstimators, &f.hp.NEstimators},
		"n-clusters":        {&hp.NClusters, &f.hp.NClusters},
		"max-iter":          {&hp.MaxIter, &f.hp.MaxIter},
	} {
		if fl.Changed(name) {
			*pair[0] = *pair[1]
		}
	}
	if fl.Changed("seed") {
		hp.Seed = f.hp.Seed
	}
	return hp
}

func (o *options) train(cmd *cobra.Command, path string, f *trainFlags) error {
	t, err := readTable(cmd, path)
	if err != nil {
		return err
	}
	alg, err := ml.ParseAlgorithm(f.algorithm, o.hyperparameters(cmd, f))
	if err != nil {
		return err
	}
	req := ml.TrainRequest{
		Target:       f.target,
		Features:     f.features,
		Algorithm:    alg,
		TestFraction: o.cfg.TestFraction,
		CVFolds:      o.cfg.CVFolds,
	}
	if cmd.Flags().Changed("test-fraction") {
		req.TestFraction = f.testFraction
	}
	if cmd.Flags().Changed("cv-folds") {
		req.CVFolds = f.cvFolds
	}

	var point []float64
	if f.predict != "" {
		if point, err = parseFloats(f.predict); err != nil {
			return err
		}
	}

	s := ml.NewSession(t, ml.WithLogger(o.logger))
	run, err := s.TrainAsync(cmd.Context(), req)
	if err != nil {
		return err
	}
	if f.progress {
		go reportProgress(cmd, run)
	}
	res, err := run.Wait()
	if err != nil {
		return err
	}

	var prediction *float64
	if point != nil {
		v, err := s.Predict(point)
		if err != nil {
			return err
		}
		prediction = &v
	}
	return o.printTrainResult(cmd, res, prediction)
}

func reportProgress(cmd *cobra.Command, run *ml.Run) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-run.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(cmd.ErrOrStderr(), "progress %3.0f%%\n", run.Progress()*100)
		}
	}
}

type importanceRow struct {
	Feature    string `json:"feature"`
	Importance number `json:"importance"`
}

type trainOutput struct {
	Algorithm    string          `json:"algorithm"`
	Family       string          `json:"family"`
	TrainSamples int             `json:"train_samples"`
	TestSamples  int             `json:"test_samples"`
	RMSE         number          `json:"rmse"`
	R2           number          `json:"r2"`
	Inertia      number          `json:"inertia"`
	CVScores     []number        `json:"cv_scores"`
	CVMean       number          `json:"cv_mean"`
	CVStdDev     number          `json:"cv_std_dev"`
	Importances  []importanceRow `json:"importances"`
	DurationMs   int64           `json:"duration_ms"`
	Prediction   *number         `json:"prediction,omitempty"`
}

func (o *options) printTrainResult(cmd *cobra.Command, res *ml.TrainResult, prediction *float64) error {
	m := res.Model
	p := o.printer(cmd)
	if p.json {
		out := trainOutput{
			Algorithm:    m.Algorithm().Name(),
			Family:       m.Family().String(),
			TrainSamples: res.TrainSamples,
			TestSamples:  res.TestSamples,
			RMSE:         number(res.RMSE),
			R2:           number(res.R2),
			Inertia:      number(res.Inertia),
			CVScores:     make([]number, len(res.CV.Scores)),
			CVMean:       number(res.CV.Mean),
			CVStdDev:     number(res.CV.StdDev),
			Importances:  make([]importanceRow, len(res.Importances)),
			DurationMs:   res.Duration.Milliseconds(),
		}
		for i, s := range res.CV.Scores {
			out.CVScores[i] = number(s)
		}
		for i, fi := range res.Importances {
			out.Importances[i] = importanceRow{Feature: fi.Feature, Importance: number(fi.Importance)}
		}
		if prediction != nil {
			v := number(*prediction)
			out.Prediction = &v
		}
		return p.encode(out)
	}

	scores := make([]string, len(res.CV.Scores))
	for i, s := range res.CV.Scores {
		scores[i] = formatFloat(s)
	}
	rows := [][]string{
		{"algorithm", m.Algorithm().Name()},
		{"train/test", fmt.Sprintf("%d/%d", res.TrainSamples, res.TestSamples)},
	}
	if m.Family() == ml.FamilyClustering {
		rows = append(rows, []string{"inertia", formatFloat(res.Inertia)})
	} else {
		rows = append(rows,
			[]string{"rmse", formatFloat(res.RMSE)},
			[]string{"r2", formatFloat(res.R2)},
		)
	}
	rows = append(rows,
		[]string{"cv scores", strings.Join(scores, " ")},
		[]string{"cv mean", formatFloat(res.CV.Mean)},
		[]string{"cv std", formatFloat(res.CV.StdDev)},
	)
	for _, fi := range res.Importances {
		rows = append(rows, []string{"importance " + fi.Feature, formatFloat(fi.Importance)})
	}
	if prediction != nil {
		v := formatFloat(*prediction)
		if m.Family() == ml.FamilyClustering {
			v = "cluster " + strconv.Itoa(int(*prediction))
		}
		rows = append(rows, []string{"prediction", v})
	}
	return p.grid([]string{"metric", "value"}, rows)
}
