package bayesian

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/kernels"
)

// maxJitter bounds the diagonal jitter added when the kernel matrix is not
// numerically positive definite.
const maxJitter = 1e-2

// GP implements a Gaussian Process model for Bayesian Optimization.
// Targets are standardized before fitting so the kernel's signal variance
// is scale free.
type GP struct {
	// Kernel function
	kernel kernels.Kernel

	// Noise variance, in standardized target units
	noiseVar float64

	// Training data
	X *mat.Dense // Input points (n_samples, n_features)

	yMean, yStd float64

	// Precomputed values
	alpha  *mat.VecDense
	chol   *mat.Cholesky
	jitter float64

	// Logger for structured logging
	logger *zap.Logger
}

// NewGP creates a new Gaussian Process model
func NewGP(kernel kernels.Kernel, noiseVar float64, logger *zap.Logger) (*GP, error) {
	if kernel == nil {
		return nil, optimization.NewError("kernel must not be nil").
			WithComponent("gaussian_process").WithOperation("NewGP")
	}
	if noiseVar < 0 || math.IsNaN(noiseVar) {
		return nil, optimization.NewErrorf("noise variance must be non-negative, got %v", noiseVar).
			WithComponent("gaussian_process").WithOperation("NewGP")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named("gaussian_process"),
	}, nil
}

// Fit fits the GP model to the training data
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "Fit"
	fail := func(err error) error {
		return optimization.WrapError(err, "fit failed").
			WithComponent("gaussian_process").WithOperation(op)
	}

	if X == nil || y == nil {
		return fail(errors.New("input matrices must not be nil"))
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return fail(errors.New("input matrix X must not be empty"))
	}
	if nSamples != y.Len() {
		return fail(fmt.Errorf("dimension mismatch: X has %d samples but y has length %d", nSamples, y.Len()))
	}

	values := mat.Col(nil, 0, y)
	mean, std := stat.MeanStdDev(values, nil)
	if nSamples < 2 || !(std > 0) {
		std = 1
	}
	for i := range values {
		values[i] = (values[i] - mean) / std
	}
	target := mat.NewVecDense(nSamples, values)

	K := gp.kernelMatrix(X)
	chol, jitter, err := factorize(K, gp.noiseVar)
	if err != nil {
		return fail(err)
	}

	alpha := mat.NewVecDense(nSamples, nil)
	if err := chol.SolveVecTo(alpha, target); err != nil {
		return fail(fmt.Errorf("failed to solve linear system: %w", err))
	}

	gp.X = mat.DenseCopyOf(X)
	gp.yMean, gp.yStd = mean, std
	gp.alpha = alpha
	gp.chol = chol
	gp.jitter = jitter

	gp.logger.Debug("Fitted GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
		zap.Float64("jitter", jitter),
		zap.Float64s("kernel_params", gp.kernel.Hyperparameters()),
	)
	return nil
}

func (gp *GP) kernelMatrix(X *mat.Dense) *mat.SymDense {
	n, _ := X.Dims()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := X.RawRowView(i)
		for j := i; j < n; j++ {
			K.SetSym(i, j, gp.kernel.Eval(x1, X.RawRowView(j)))
		}
	}
	return K
}

// factorize computes the Cholesky factor of K + (noise + jitter)I, raising
// the jitter tenfold from 1e-10 until the factorization succeeds.
func factorize(K *mat.SymDense, noise float64) (*mat.Cholesky, float64, error) {
	n := K.SymmetricDim()
	shifted := mat.NewSymDense(n, nil)

	for jitter := 0.0; jitter <= maxJitter; {
		shifted.CopySym(K)
		for i := 0; i < n; i++ {
			shifted.SetSym(i, i, K.At(i, i)+noise+jitter)
		}

		var chol mat.Cholesky
		if chol.Factorize(shifted) {
			return &chol, jitter, nil
		}

		if jitter == 0 {
			jitter = 1e-10
		} else {
			jitter *= 10
		}
	}
	return nil, 0, errors.New("kernel matrix is not positive definite")
}

// Predict returns the mean and variance of the latent function at the rows
// of X, in the units of the training targets.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "Predict"

	if X == nil {
		return nil, nil, optimization.NewError("input matrix X is nil").
			WithComponent("gaussian_process").WithOperation(op)
	}
	if gp.alpha == nil {
		return nil, nil, optimization.NewError("model not trained").
			WithComponent("gaussian_process").WithOperation(op)
	}

	nTest, nFeatures := X.Dims()
	nTrain, trained := gp.X.Dims()
	if nFeatures != trained {
		return nil, nil, optimization.NewErrorf("expected %d features, got %d", trained, nFeatures).
			WithComponent("gaussian_process").WithOperation(op)
	}

	mean := mat.NewVecDense(nTest, nil)
	variance := mat.NewVecDense(nTest, nil)

	kStar := mat.NewVecDense(nTrain, nil)
	v := mat.NewVecDense(nTrain, nil)
	for i := 0; i < nTest; i++ {
		xStar := X.RawRowView(i)
		for j := 0; j < nTrain; j++ {
			kStar.SetVec(j, gp.kernel.Eval(xStar, gp.X.RawRowView(j)))
		}

		mean.SetVec(i, gp.yMean+gp.yStd*mat.Dot(kStar, gp.alpha))

		// var = k(x*, x*) - k*ᵀ K⁻¹ k*
		if err := gp.chol.SolveVecTo(v, kStar); err != nil {
			return nil, nil, optimization.WrapError(err, "failed to solve linear system").
				WithComponent("gaussian_process").WithOperation(op)
		}
		latent := gp.kernel.Eval(xStar, xStar) - mat.Dot(kStar, v)
		variance.SetVec(i, gp.yStd*gp.yStd*math.Max(0, latent))
	}

	return mean, variance, nil
}

// PredictPoint returns the predictive mean and standard deviation at x.
func (gp *GP) PredictPoint(x []float64) (float64, float64, error) {
	if len(x) == 0 {
		return 0, 0, optimization.NewError("point must not be empty").
			WithComponent("gaussian_process").WithOperation("PredictPoint")
	}
	mean, variance, err := gp.Predict(mat.NewDense(1, len(x), x))
	if err != nil {
		return 0, 0, err
	}
	return mean.AtVec(0), math.Sqrt(variance.AtVec(0)), nil
}
