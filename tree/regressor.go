// Package tree implements a CART regression tree that splits on variance
// reduction (squared error).
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor is a binary regression tree. Each leaf predicts the
// mean target of its training samples.
//
// During Fit, NaN feature values sort after every number and follow the
// right branch. A NaN target makes every split gain NaN, so the node stays a
// leaf whose prediction is NaN. Predict returns NaN for a row that reaches a
// split on a NaN feature.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	maxDepth        int // 0 => no limit
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 => every feature at every split
	randomState     uint64

	root        *node
	importances []float64 // summed SSE decrease per feature
	nodeCount   int
}

type node struct {
	leaf      bool
	value     float64
	samples   int
	feature   int
	threshold float64 // x <= threshold => left
	left      *node
	right     *node
}

// SplitInfo describes a candidate split.
type SplitInfo struct {
	Feature   int
	Threshold float64
	Gain      float64 // parent SSE minus children SSE
}

var (
	_ model.Estimator       = (*DecisionTreeRegressor)(nil)
	_ model.FeatureImporter = (*DecisionTreeRegressor)(nil)
)

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the depth of the tree (root depth = 0). 0 => no limit.
func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.maxDepth = d } }

// WithMinSamplesSplit sets the minimum samples a node needs to be split.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many randomly chosen features are tried per split.
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.maxFeatures = k } }

// WithRandomState seeds feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.randomState = seed }
}

// NewDecisionTreeRegressor returns a regressor with MinSamplesSplit=2,
// MinSamplesLeaf=1 and no depth limit unless overridden.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on X (n × p) and the column vector y.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "y must be a column vector")
	}
	if t.minSamplesSplit < 2 || t.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples", "min_samples_split must be >= 2 and min_samples_leaf >= 1",
			[2]int{t.minSamplesSplit, t.minSamplesLeaf})
	}

	b := &builder{
		tree:    t,
		X:       X,
		y:       mat.Col(nil, 0, y),
		nFeat:   c,
		rng:     rand.New(rand.NewPCG(t.randomState, t.randomState)),
		gains:   make([]float64, c),
		indices: make([]int, r),
	}
	for i := range b.indices {
		b.indices[i] = i
	}

	t.nodeCount = 0
	t.root = b.buildNode(b.indices, 0)
	t.importances = b.gains
	t.SetFitted(c)
	return nil
}

// Predict returns the leaf mean reached by each row of X, or NaN when the
// row has NaN in a feature the path splits on.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := t.RequireFitted("DecisionTreeRegressor", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		out.SetVec(i, t.predictRow(mat.Row(row, i, X)))
	}
	return out, nil
}

func (t *DecisionTreeRegressor) predictRow(x []float64) float64 {
	n := t.root
	for !n.leaf {
		v := x[n.feature]
		if math.IsNaN(v) {
			return math.NaN()
		}
		if v <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// FeatureImportances returns the total squared-error decrease contributed
// by each feature, normalized to sum to 1. A tree without splits reports
// all zeros.
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	if !t.IsFitted() {
		return nil
	}
	return normalize(t.importances)
}

// NodeCount returns the number of nodes in the fitted tree.
func (t *DecisionTreeRegressor) NodeCount() int { return t.nodeCount }

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTreeRegressor) Depth() int { return depth(t.root) }

func (t *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_split=%d, min_samples_leaf=%d)",
		t.maxDepth, t.minSamplesSplit, t.minSamplesLeaf)
}

func depth(n *node) int {
	if n == nil || n.leaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	var total float64
	for _, x := range v {
		total += x
	}
	if total <= 0 || math.IsNaN(total) {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}

// builder holds the state of a single Fit call.
type builder struct {
	tree    *DecisionTreeRegressor
	X       mat.Matrix
	y       []float64
	nFeat   int
	rng     *rand.Rand
	gains   []float64
	indices []int
}

func (b *builder) buildNode(indices []int, depth int) *node {
	t := b.tree
	t.nodeCount++

	var sum, sumSq float64
	for _, i := range indices {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := len(indices)
	nd := &node{leaf: true, value: sum / float64(n), samples: n}

	if (t.maxDepth > 0 && depth >= t.maxDepth) ||
		n < t.minSamplesSplit ||
		n < 2*t.minSamplesLeaf {
		return nd
	}
	parentSSE := sumSq - sum*sum/float64(n)
	if parentSSE <= 0 {
		return nd
	}

	best, ok := b.findBestSplit(indices, sum, sumSq)
	if !ok {
		return nd
	}

	left, right := b.splitData(indices, best)
	if len(left) < t.minSamplesLeaf || len(right) < t.minSamplesLeaf {
		return nd
	}

	b.gains[best.Feature] += best.Gain
	nd.leaf = false
	nd.feature = best.Feature
	nd.threshold = best.Threshold
	nd.left = b.buildNode(left, depth+1)
	nd.right = b.buildNode(right, depth+1)
	return nd
}

func (b *builder) candidateFeatures() []int {
	k := b.tree.maxFeatures
	if k <= 0 || k >= b.nFeat {
		all := make([]int, b.nFeat)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(b.nFeat)[:k]
}

// findBestSplit scans every candidate feature and returns the split with the
// largest positive gain.
func (b *builder) findBestSplit(indices []int, sum, sumSq float64) (SplitInfo, bool) {
	best := SplitInfo{Gain: 0}
	found := false
	for _, f := range b.candidateFeatures() {
		split, ok := b.findBestSplitForFeature(indices, f, sum, sumSq)
		if ok && split.Gain > best.Gain {
			best = split
			found = true
		}
	}
	return best, found
}

type sample struct {
	value float64
	y     float64
}

func (b *builder) findBestSplitForFeature(indices []int, feature int, sum, sumSq float64) (SplitInfo, bool) {
	values := make([]sample, len(indices))
	for i, idx := range indices {
		values[i] = sample{value: b.X.At(idx, feature), y: b.y[idx]}
	}
	slices.SortFunc(values, func(a, b sample) int { return compareNaNLast(a.value, b.value) })

	n := len(values)
	parentSSE := sumSq - sum*sum/float64(n)
	minLeaf := b.tree.minSamplesLeaf

	best := SplitInfo{Feature: feature}
	found := false
	var leftSum, leftSq float64
	for i := 0; i < n-1; i++ {
		leftSum += values[i].y
		leftSq += values[i].y * values[i].y

		cur, next := values[i].value, values[i+1].value
		if cur == next || math.IsNaN(cur) || math.IsNaN(next) {
			continue
		}
		nl, nr := i+1, n-i-1
		if nl < minLeaf || nr < minLeaf {
			continue
		}
		rightSum := sum - leftSum
		rightSq := sumSq - leftSq
		sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
		gain := parentSSE - sse
		if gain > best.Gain {
			best.Gain = gain
			best.Threshold = cur + (next-cur)/2
			found = true
		}
	}
	return best, found
}

// splitData partitions indices with the same rule Predict uses.
func (b *builder) splitData(indices []int, split SplitInfo) ([]int, []int) {
	var left, right []int
	for _, idx := range indices {
		if b.X.At(idx, split.Feature) <= split.Threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func compareNaNLast(a, b float64) int {
	switch an, bn := math.IsNaN(a), math.IsNaN(b); {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
