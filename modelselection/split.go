// Package modelselection provides ordered train/test splitting, contiguous
// k-fold splitting and a cross-validation driver.
package modelselection

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Split holds the two halves of an ordered train/test split. YTrain and
// YTest are nil when no target was given.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense
}

// TrainTestSplit puts the first floor(n·(1-testFraction)) rows in the train
// half and the rest in the test half. Rows are never shuffled.
func TrainTestSplit(X, y mat.Matrix, testFraction float64) (*Split, error) {
	if !(testFraction > 0 && testFraction < 1) {
		return nil, errors.NewValidationError("test_fraction", "must lie in (0, 1)", testFraction)
	}
	n, _ := X.Dims()
	if y != nil {
		if ry, _ := y.Dims(); ry != n {
			return nil, errors.NewDimensionError("TrainTestSplit", n, ry, 0)
		}
	}

	nTrain := int(math.Floor(float64(n) * (1 - testFraction)))
	if nTrain == 0 || nTrain == n {
		return nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("%d rows with test_fraction=%g leave an empty split (train=%d, test=%d)", n, testFraction, nTrain, n-nTrain))
	}

	s := &Split{
		XTrain: rowRange(X, 0, nTrain),
		XTest:  rowRange(X, nTrain, n),
	}
	if y != nil {
		s.YTrain = rowRange(y, 0, nTrain)
		s.YTest = rowRange(y, nTrain, n)
	}
	return s, nil
}

// Fold is one partition of a k-fold split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits n samples into NSplits contiguous, unshuffled folds. The
// first n%NSplits folds get one extra sample.
type KFold struct {
	NSplits int
}

// DefaultNSplits is the fold count NewKFold falls back to.
const DefaultNSplits = 5

// NewKFold creates a splitter, defaulting to 5 folds when nSplits < 2.
func NewKFold(nSplits int) *KFold {
	if nSplits < 2 {
		nSplits = DefaultNSplits
	}
	return &KFold{NSplits: nSplits}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split returns the folds for nSamples rows.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if nSamples < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot have n_splits=%d greater than n_samples=%d", kf.NSplits, nSamples))
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		end := start + size

		test := make([]int, 0, size)
		train := make([]int, 0, nSamples-size)
		for j := 0; j < nSamples; j++ {
			if j >= start && j < end {
				test = append(test, j)
			} else {
				train = append(train, j)
			}
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start = end
	}
	return folds, nil
}

// Subset copies the given rows of m into a new dense matrix.
func Subset(m mat.Matrix, indices []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	row := make([]float64, c)
	for i, idx := range indices {
		out.SetRow(i, mat.Row(row, idx, m))
	}
	return out
}

func rowRange(m mat.Matrix, start, end int) *mat.Dense {
	indices := make([]int, end-start)
	for i := range indices {
		indices[i] = start + i
	}
	return Subset(m, indices)
}
