// Package log defines standard attribute keys for datalab operations.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so log lines from the table engine, the preprocessing
// pipeline and the ML session can be filtered uniformly.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator family.
	// Examples: "linear_regression", "random_forest", "kmeans"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// SessionIDKey identifies the analysis session a record belongs to.
	SessionIDKey = "session.id"

	// StateKey records a session state transition target.
	StateKey = "session.state"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey record the split sizes.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// ColumnKey names the table column an operation targets.
	ColumnKey = "table.column"

	// RowsKey records the number of data rows in a table.
	RowsKey = "table.rows"

	// DroppedRowsKey records how many rows a filter removed.
	DroppedRowsKey = "table.dropped_rows"

	// MethodKey names a preprocessing method.
	MethodKey = "preprocess.method"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RMSEKey records root mean squared error on the test split.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey records R² coefficient of determination for regression.
	// Range [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// InertiaKey records within-cluster sum of squares.
	InertiaKey = "metrics.inertia"

	// CVMeanKey and CVStdKey record cross-validation summaries.
	CVMeanKey = "metrics.cv_mean"
	CVStdKey  = "metrics.cv_std"

	// ScoreKey records a generic score (e.g. a cross-validation fold score).
	ScoreKey = "metrics.score"

	// FoldKey records the current cross-validation fold.
	FoldKey = "training.fold"

	// ProgressKey records advisory training progress in [0, 1].
	ProgressKey = "training.progress"
)

// Error and Warning Context
const (
	// ErrorKindKey carries the stable kind tag of a taxonomy error.
	ErrorKindKey = "error.kind"

	// ErrorTypeKey categorizes warnings and errors by Go type name.
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
