// Package datalab is an in-memory tabular analysis and lightweight
// machine-learning engine for Go.
//
// A dataset is loaded once into an immutable table of header-named string
// columns. Statistics, correlation and preprocessing read numeric views of
// those columns; every transform returns a new table and never mutates its
// input.
//
// # Features
//
//   - Descriptive statistics: mean, median, mode and population standard deviation
//   - Pearson correlation matrices over any column selection
//   - Preprocessing: missing-value removal and imputation, min-max
//     normalization, IQR outlier removal, YAML pipelines
//   - A fixed model catalog: linear and polynomial regression, decision
//     tree, random forest, k-means
//   - Ordered train/test split, k-fold cross-validation, feature importance
//   - Structured errors with stable kind tags and zerolog-backed logging
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/datalab/ml"
//	    "github.com/YuminosukeSato/datalab/stats"
//	    "github.com/YuminosukeSato/datalab/table"
//	)
//
//	func main() {
//	    t, err := table.LoadTable([]string{"x", "y"}, [][]string{
//	        {"1", "2"}, {"2", "4"}, {"3", "6"}, {"4", "8"}, {"5", "10"},
//	        {"6", "12"}, {"7", "14"}, {"8", "16"}, {"9", "18"}, {"10", "20"},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    st, _ := stats.Describe(t, "y")
//	    fmt.Println("mean:", st.Mean)
//
//	    s := ml.NewSession(t)
//	    res, err := s.Train(context.Background(), ml.TrainRequest{
//	        Target:   "y",
//	        Features: []string{"x"},
//	        Algorithm: ml.LinearRegression{},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("r2:", res.R2)
//
//	    v, _ := s.Predict([]float64{11})
//	    fmt.Println("prediction:", v)
//	}
//
// # Packages
//
//   - table: the Table container, numeric views, filter, sort, frequencies
//   - stats: descriptive statistics
//   - correlation: Pearson correlation matrices
//   - preprocessing: column transforms, pipelines, MinMaxScaler
//   - ml: algorithm catalog, Session state machine, training and prediction
//   - linear, tree, ensemble, cluster: the estimators behind the catalog
//   - modelselection: train/test split, KFold, cross-validation
//   - metrics: MSE, RMSE, MAE, R²
//   - core/model: estimator base types and interfaces
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// The datalab command (cmd/datalab) exposes the engine over CSV files.
package datalab
