package cluster

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func twoBlobs() *mat.Dense {
	return mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		10, 10,
		10, 11,
		11, 10,
	})
}

func TestKMeansTwoBlobs(t *testing.T) {
	X := twoBlobs()
	km := NewKMeans(WithNClusters(2))
	require.NoError(t, km.Fit(X, nil))

	labels := km.Labels()
	require.Len(t, labels, 6)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[3], labels[5])
	assert.NotEqual(t, labels[0], labels[3])

	// 各クラスタ: 重心 (1/3, 1/3) からの二乗距離の和 = 4/3
	assert.InDelta(t, 8.0/3.0, km.TrainingInertia(), 1e-9)

	pred, err := km.Predict(mat.NewDense(2, 2, []float64{0.2, 0.2, 9, 9}))
	require.NoError(t, err)
	assert.Equal(t, float64(labels[0]), pred.At(0, 0))
	assert.Equal(t, float64(labels[3]), pred.At(1, 0))

	in, err := km.Inertia(mat.NewDense(1, 2, []float64{1.0 / 3, 1.0 / 3}))
	require.NoError(t, err)
	assert.InDelta(t, 0, in, 1e-12)

	centers := km.ClusterCenters()
	require.Len(t, centers, 2)
	centers[0][0] = 999
	assert.NotEqual(t, 999.0, km.ClusterCenters()[0][0])
}

func TestKMeansDefaults(t *testing.T) {
	km := NewKMeans()
	assert.Equal(t, DefaultNClusters, km.NClusters())
	assert.Contains(t, km.String(), "n_clusters=3")
	assert.Contains(t, km.String(), "random_state=42")
}

func TestKMeansDeterministic(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 10, 11, 12, 30, 31})
	a := NewKMeans(WithRandomState(5))
	b := NewKMeans(WithRandomState(5))
	require.NoError(t, a.Fit(X, nil))
	require.NoError(t, b.Fit(X, nil))
	assert.Equal(t, a.ClusterCenters(), b.ClusterCenters())
	assert.Equal(t, a.Labels(), b.Labels())
}

func TestKMeansSingleCluster(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 6})
	km := NewKMeans(WithNClusters(1))
	require.NoError(t, km.Fit(X, nil))
	assert.InDeltaSlice(t, []float64{3}, km.ClusterCenters()[0], 1e-12)
	assert.InDelta(t, 14.0, km.TrainingInertia(), 1e-12)
	assert.LessOrEqual(t, km.NIterations(), DefaultMaxIter)
}

func TestKMeansDuplicatePoints(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})
	km := NewKMeans(WithNClusters(2))
	require.NoError(t, km.Fit(X, nil))
	assert.Equal(t, 0.0, km.TrainingInertia())
}

func TestKMeansNaNPropagates(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, math.NaN(), 10, 11})
	km := NewKMeans(WithNClusters(2))
	require.NoError(t, km.Fit(X, nil))
	assert.True(t, math.IsNaN(km.TrainingInertia()))
}

func TestKMeansErrors(t *testing.T) {
	km := NewKMeans()

	_, err := km.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = km.Inertia(mat.NewDense(1, 2, nil))
	assert.True(t, errors.As(err, &nf))

	err = km.Fit(mat.NewDense(2, 1, []float64{1, 2}), nil)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	err = NewKMeans(WithNClusters(0)).Fit(mat.NewDense(2, 1, nil), nil)
	var vl *errors.ValidationError
	assert.True(t, errors.As(err, &vl))

	km2 := NewKMeans(WithNClusters(2))
	require.NoError(t, km2.Fit(twoBlobs(), nil))
	_, err = km2.Predict(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func BenchmarkKMeansFit(b *testing.B) {
	n := 1000
	X := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%10)*10+float64(i%7)*0.1)
		X.Set(i, 1, float64(i%3)*5)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewKMeans(WithNClusters(5)).Fit(X, nil)
	}
}
