// Package cluster implements k-means clustering.
package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/YuminosukeSato/datalab/core/model"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans はk-means++初期化とLloydイテレーションによるK-meansクラスタリング
type KMeans struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	maxIter     int     // 最大イテレーション数
	tol         float64 // 中心移動量の収束判定
	randomState uint64  // 乱数シード

	// 学習パラメータ
	centers [][]float64 // クラスタ中心（nClusters x nFeatures）
	labels  []int       // 学習データのクラスタラベル
	inertia float64     // 学習データのクラスタ内平方和
	nIter   int         // 実行されたイテレーション数

	mu sync.RWMutex
}

var _ model.Estimator = (*KMeans)(nil)

// デフォルト値
const (
	DefaultNClusters = 3
	DefaultMaxIter   = 300
	DefaultSeed      = 42
	DefaultTol       = 1e-4
)

// Option はKMeansの設定オプション
type Option func(*KMeans)

// WithNClusters はクラスタ数を設定
func WithNClusters(n int) Option {
	return func(k *KMeans) {
		k.nClusters = n
	}
}

// WithMaxIter は最大イテレーション数を設定
func WithMaxIter(n int) Option {
	return func(k *KMeans) {
		k.maxIter = n
	}
}

// WithTol は収束判定の許容誤差を設定
func WithTol(tol float64) Option {
	return func(k *KMeans) {
		k.tol = tol
	}
}

// WithRandomState は乱数シードを設定
func WithRandomState(seed uint64) Option {
	return func(k *KMeans) {
		k.randomState = seed
	}
}

// NewKMeans は新しいKMeansを作成
func NewKMeans(opts ...Option) *KMeans {
	k := &KMeans{
		nClusters:   DefaultNClusters,
		maxIter:     DefaultMaxIter,
		tol:         DefaultTol,
		randomState: DefaultSeed,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Fit はXをクラスタリングする。yは使用しない（nilでもよい）。
func (k *KMeans) Fit(X, _ mat.Matrix) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if k.nClusters < 1 {
		return errors.NewValidationError("n_clusters", "must be at least 1", k.nClusters)
	}
	if k.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", k.maxIter)
	}
	if rows < k.nClusters {
		return errors.NewValueError("KMeans.Fit",
			fmt.Sprintf("n_samples=%d should be >= n_clusters=%d", rows, k.nClusters))
	}

	samples := make([][]float64, rows)
	for i := range samples {
		samples[i] = mat.Row(nil, i, X)
	}

	rng := rand.New(rand.NewPCG(k.randomState, k.randomState))
	centers := initKMeansPlusPlus(samples, k.nClusters, rng)
	labels := make([]int, rows)

	var iter int
	for iter = 1; iter <= k.maxIter; iter++ {
		// 割り当てステップ
		for i, s := range samples {
			labels[i] = nearest(s, centers)
		}

		// 更新ステップ（空クラスタは前の中心を維持）
		next := make([][]float64, k.nClusters)
		counts := make([]int, k.nClusters)
		for c := range next {
			next[c] = make([]float64, cols)
		}
		for i, s := range samples {
			floats.Add(next[labels[i]], s)
			counts[labels[i]]++
		}
		var shift float64
		for c := range next {
			if counts[c] == 0 {
				copy(next[c], centers[c])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
			shift += sqDist(next[c], centers[c])
		}
		centers = next

		if shift <= k.tol {
			break
		}
	}
	if iter > k.maxIter {
		iter = k.maxIter
	}

	for i, s := range samples {
		labels[i] = nearest(s, centers)
	}

	k.centers = centers
	k.labels = labels
	k.nIter = iter
	k.inertia = inertia(samples, centers)
	k.SetFitted(cols)
	return nil
}

// Predict は各行の最近傍クラスタ番号をfloat64として返す
func (k *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rows, cols := X.Dims()
	if err := k.RequireFitted("KMeans", "Predict", cols); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(rows, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		out.SetVec(i, float64(nearest(mat.Row(row, i, X), k.centers)))
	}
	return out, nil
}

// Inertia はXの各サンプルと最近傍クラスタ中心との距離の二乗和を返す
func (k *KMeans) Inertia(X mat.Matrix) (float64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rows, cols := X.Dims()
	if err := k.RequireFitted("KMeans", "Inertia", cols); err != nil {
		return 0, err
	}
	samples := make([][]float64, rows)
	for i := range samples {
		samples[i] = mat.Row(nil, i, X)
	}
	return inertia(samples, k.centers), nil
}

// TrainingInertia は学習データに対する慣性を返す
func (k *KMeans) TrainingInertia() float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.inertia
}

// ClusterCenters は学習されたクラスタ中心のコピーを返す
func (k *KMeans) ClusterCenters() [][]float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	centers := make([][]float64, len(k.centers))
	for i, c := range k.centers {
		centers[i] = append([]float64(nil), c...)
	}
	return centers
}

// Labels は学習データのクラスタラベルを返す
func (k *KMeans) Labels() []int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]int(nil), k.labels...)
}

// NIterations は実行されたイテレーション数を返す
func (k *KMeans) NIterations() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.nIter
}

// NClusters は設定されたクラスタ数を返す
func (k *KMeans) NClusters() int { return k.nClusters }

func (k *KMeans) String() string {
	return fmt.Sprintf("KMeans(n_clusters=%d, max_iter=%d, random_state=%d)", k.nClusters, k.maxIter, k.randomState)
}

// initKMeansPlusPlus は最初の中心を一様に、残りを最近傍中心までの距離の二乗に
// 比例した確率で選ぶ
func initKMeansPlusPlus(samples [][]float64, n int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, n)
	centers = append(centers, append([]float64(nil), samples[rng.IntN(len(samples))]...))

	dist := make([]float64, len(samples))
	for len(centers) < n {
		var total float64
		for i, s := range samples {
			dist[i] = sqDist(s, centers[nearest(s, centers)])
			total += dist[i]
		}

		// 全サンプルが既存の中心と一致する場合は先頭から順に選ぶ
		selected := len(centers) % len(samples)
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i, d := range dist {
				cum += d
				if cum >= target && d > 0 {
					selected = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), samples[selected]...))
	}
	return centers
}

// nearest は最近傍クラスタを検索する。距離がNaNの場合はクラスタ0。
func nearest(s []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(s, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func inertia(samples [][]float64, centers [][]float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += sqDist(s, centers[nearest(s, centers)])
	}
	return sum
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
