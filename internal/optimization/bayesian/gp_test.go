package bayesian

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/TRITMAP/internal/optimization/kernels"
)

func newTestGP(t *testing.T, noise float64) *GP {
	t.Helper()

	kernel, err := kernels.NewRBFKernel(1.0, 1.0)
	require.NoError(t, err)
	gp, err := NewGP(kernel, noise, zap.NewNop())
	require.NoError(t, err)
	return gp
}

func TestGPFitAndPredict(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{1, 2, 1})

	gp := newTestGP(t, 1e-8)
	require.NoError(t, gp.Fit(X, y))

	// Near noiseless: the posterior interpolates the training points
	mean, variance, err := gp.Predict(mat.NewDense(3, 1, []float64{1, 2, 3}))
	require.NoError(t, err)
	for i, want := range []float64{1, 2, 1} {
		assert.InDelta(t, want, mean.AtVec(i), 1e-3)
		assert.InDelta(t, 0, variance.AtVec(i), 1e-3)
	}

	// Far from the data the prior returns: mean of y, variance of y
	mu, sigma, err := gp.PredictPoint([]float64{100})
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, mu, 1e-6)
	assert.Greater(t, sigma, 0.5)
}

func TestGPFitErrors(t *testing.T) {
	gp := newTestGP(t, 1e-6)

	assert.Error(t, gp.Fit(nil, nil))
	assert.Error(t, gp.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewVecDense(3, nil)))

	_, _, err := gp.Predict(mat.NewDense(1, 1, []float64{0}))
	assert.Error(t, err, "predicting before fitting")

	require.NoError(t, gp.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewVecDense(2, []float64{0, 1})))
	_, _, err = gp.Predict(mat.NewDense(1, 2, []float64{0, 1}))
	assert.Error(t, err, "feature count mismatch")
	_, _, err = gp.PredictPoint(nil)
	assert.Error(t, err)

	_, err = NewGP(nil, 0, nil)
	assert.Error(t, err)
}

func TestGPDuplicatePoints(t *testing.T) {
	// Identical inputs make the noiseless kernel matrix singular
	X := mat.NewDense(4, 2, []float64{
		0.5, 0.5,
		0.5, 0.5,
		0.5, 0.5,
		0.1, 0.9,
	})
	y := mat.NewVecDense(4, []float64{1, 1.1, 0.9, 0})

	gp := newTestGP(t, 0)
	require.NoError(t, gp.Fit(X, y))
	assert.Greater(t, gp.jitter, 0.0)

	mu, sigma, err := gp.PredictPoint([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mu, 0.05)
	assert.False(t, math.IsNaN(sigma))
}

func TestGPConstantTargets(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 0.5, 1})
	y := mat.NewVecDense(3, []float64{2, 2, 2})

	gp := newTestGP(t, 1e-6)
	require.NoError(t, gp.Fit(X, y))

	mu, _, err := gp.PredictPoint([]float64{0.25})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mu, 1e-9)
}

func TestGPVarianceNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 20
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.Float64())
		X.Set(i, 1, rng.Float64())
		y.SetVec(i, rng.NormFloat64())
	}

	gp := newTestGP(t, 1e-6)
	require.NoError(t, gp.Fit(X, y))

	test := mat.NewDense(50, 2, nil)
	for i := 0; i < 50; i++ {
		test.Set(i, 0, rng.Float64()*2-0.5)
		test.Set(i, 1, rng.Float64()*2-0.5)
	}
	_, variance, err := gp.Predict(test)
	require.NoError(t, err)
	for i := 0; i < variance.Len(); i++ {
		assert.GreaterOrEqual(t, variance.AtVec(i), 0.0)
	}
}
