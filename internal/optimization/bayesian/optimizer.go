// Package bayesian implements Gaussian process based Bayesian optimization
// of continuous, expensive and noisy objectives over a box. It tunes the
// parameters of the arrangement searches rather than arrangements
// themselves.
package bayesian

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/acquisition"
	"github.com/copyleftdev/TRITMAP/internal/optimization/kernels"
)

const (
	// DefaultInitialPoints is the size of the Latin hypercube design
	DefaultInitialPoints = 5
	// DefaultIterations is the number of model guided evaluations
	DefaultIterations = 15
	// DefaultXi is the expected improvement margin, in objective units
	DefaultXi = 0.01

	// DefaultLengthScale is the kernel length scale on the unit cube
	DefaultLengthScale = 0.25
	// Observation noise in standardized units; objectives are noisy averages
	defaultNoiseVar = 1e-3
	// Nelder-Mead budget per start when maximizing the acquisition
	acquisitionEvaluations = 200
)

// Objective evaluates the function being maximized at x. It is called
// sequentially and should honor ctx.
type Objective func(ctx context.Context, x []float64) (float64, error)

// Bound is the closed interval searched along one dimension.
type Bound struct {
	Lower, Upper float64
}

// Config configures an Optimizer
type Config struct {
	// Search box, one bound per dimension
	Bounds []Bound

	// Function to maximize
	Objective Objective

	// Number of Latin hypercube points evaluated before the model is used
	InitialPoints int

	// Number of evaluations proposed by the acquisition function
	Iterations int

	// Expected improvement margin
	Xi float64

	// Covariance over the unit cube; Matérn 5/2 when nil
	Kernel kernels.Kernel

	// Random seed for reproducibility; zero picks a time based seed
	RandomSeed int64
}

// Sample is one objective evaluation
type Sample struct {
	Iteration int
	X         []float64
	Value     float64
}

// Result contains the result of a run
type Result struct {
	Best    Sample
	History []Sample
	Seed    int64
}

// Optimizer maximizes an Objective with a Gaussian process surrogate and
// the expected improvement acquisition function.
type Optimizer struct {
	config Config
	gp     *GP
	ei     *acquisition.ExpectedImprovement
	rng    *rand.Rand
	seed   int64
	logger *zap.Logger

	mu      sync.Mutex
	unit    [][]float64
	history []Sample
	best    *Sample
	cancel  context.CancelFunc
}

// New creates an Optimizer
func New(config Config, logger *zap.Logger) (*Optimizer, error) {
	invalid := func(format string, args ...interface{}) error {
		return optimization.WrapErrorf(optimization.ErrInvalidConfig, format, args...).
			WithComponent("bayesian").WithOperation("New")
	}

	if len(config.Bounds) == 0 {
		return nil, invalid("at least one bound is required")
	}
	for i, b := range config.Bounds {
		if math.IsNaN(b.Lower) || math.IsInf(b.Lower, 0) || math.IsNaN(b.Upper) || math.IsInf(b.Upper, 0) || !(b.Lower < b.Upper) {
			return nil, invalid("bound %d must be a finite interval with lower < upper, got [%v, %v]", i, b.Lower, b.Upper)
		}
	}
	if config.Objective == nil {
		return nil, invalid("objective must not be nil")
	}
	if config.InitialPoints < 0 || config.Iterations < 0 {
		return nil, invalid("initial points and iterations must be non-negative")
	}
	if config.InitialPoints == 0 {
		config.InitialPoints = DefaultInitialPoints
	}
	if config.Xi == 0 {
		config.Xi = DefaultXi
	}
	if config.Kernel == nil {
		k, err := kernels.NewMatern52Kernel(DefaultLengthScale, 1)
		if err != nil {
			return nil, err
		}
		config.Kernel = k
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bayesian")

	gp, err := NewGP(config.Kernel, defaultNoiseVar, logger)
	if err != nil {
		return nil, err
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Optimizer{
		config: config,
		gp:     gp,
		ei:     acquisition.NewExpectedImprovement(math.Inf(-1), config.Xi, acquisition.Maximize),
		rng:    rand.New(rand.NewSource(seed)),
		seed:   seed,
		logger: logger,
	}, nil
}

// Optimize evaluates the initial design and then Iterations points
// proposed by maximizing the expected improvement. If ctx is cancelled the
// samples gathered so far are returned together with the context error.
func (bo *Optimizer) Optimize(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bo.mu.Lock()
	bo.cancel = cancel
	bo.unit, bo.history, bo.best = nil, nil, nil
	bo.mu.Unlock()

	bo.logger.Info("Starting Bayesian optimization",
		zap.Int("dimensions", len(bo.config.Bounds)),
		zap.Int("initial_points", bo.config.InitialPoints),
		zap.Int("iterations", bo.config.Iterations),
		zap.Int64("seed", bo.seed))

	for _, u := range bo.latinHypercubeSample(bo.config.InitialPoints) {
		if err := bo.evaluate(ctx, u); err != nil {
			return bo.result(), err
		}
	}

	for i := 0; i < bo.config.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return bo.result(), err
		}
		if err := bo.evaluate(ctx, bo.propose()); err != nil {
			return bo.result(), err
		}
	}

	result := bo.result()
	bo.logger.Info("Bayesian optimization finished",
		zap.Float64("best_value", result.Best.Value),
		zap.Float64s("best_x", result.Best.X),
		zap.Int("evaluations", len(result.History)))
	return result, nil
}

// evaluate calls the objective at the unit cube point u.
func (bo *Optimizer) evaluate(ctx context.Context, u []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x := bo.scale(u)
	value, err := bo.config.Objective(ctx, x)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return optimization.WrapError(err, "objective evaluation failed").
			WithComponent("bayesian").WithOperation("Optimize")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return optimization.NewErrorf("objective returned %v at %v", value, x).
			WithComponent("bayesian").WithOperation("Optimize")
	}

	bo.mu.Lock()
	sample := Sample{Iteration: len(bo.history), X: x, Value: value}
	bo.unit = append(bo.unit, u)
	bo.history = append(bo.history, sample)
	if bo.best == nil || value > bo.best.Value {
		best := sample
		bo.best = &best
	}
	bo.mu.Unlock()

	bo.logger.Debug("Evaluated point",
		zap.Int("iteration", sample.Iteration),
		zap.Float64s("x", x),
		zap.Float64("value", value))
	return nil
}

// propose fits the surrogate and returns the unit cube point of largest
// expected improvement. A random point is returned if the fit fails.
func (bo *Optimizer) propose() []float64 {
	bo.mu.Lock()
	X, y := bo.trainingData()
	best := bo.best.Value
	incumbent := append([]float64(nil), bo.unit[bo.best.Iteration]...)
	bo.mu.Unlock()

	if err := bo.gp.Fit(X, y); err != nil {
		bo.logger.Warn("Surrogate fit failed, sampling at random", zap.Error(err))
		return bo.randomPoint()
	}
	bo.ei.UpdateBest(best)

	dims := len(bo.config.Bounds)
	scratch := make([]float64, dims)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clampUnit(scratch, x)
			mu, sigma, err := bo.gp.PredictPoint(scratch)
			if err != nil {
				return math.Inf(1)
			}
			return -bo.ei.Compute(mu, sigma)
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: acquisitionEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 50,
		},
	}

	starts := [][]float64{incumbent}
	for len(starts) < 5+int(5*math.Sqrt(float64(dims))) {
		starts = append(starts, bo.randomPoint())
	}

	var next []float64
	bestVal := math.Inf(1)
	for _, start := range starts {
		method := &optimize.NelderMead{SimplexSize: 0.1}
		result, err := optimize.Minimize(problem, start, settings, method)
		if err != nil {
			bo.logger.Debug("Acquisition search stopped early", zap.Error(err))
		}
		if result == nil {
			continue
		}
		if result.F < bestVal {
			bestVal = result.F
			next = make([]float64, dims)
			clampUnit(next, result.X)
		}
	}

	if next == nil || bestVal >= 0 {
		// No point improves on the incumbent in expectation
		return bo.randomPoint()
	}
	return next
}

func (bo *Optimizer) trainingData() (*mat.Dense, *mat.VecDense) {
	n, dims := len(bo.unit), len(bo.config.Bounds)
	X := mat.NewDense(n, dims, nil)
	y := mat.NewVecDense(n, nil)
	for i, u := range bo.unit {
		X.SetRow(i, u)
		y.SetVec(i, bo.history[i].Value)
	}
	return X, y
}

// latinHypercubeSample returns n points of the unit cube with exactly one
// point in each of the n strata along every dimension.
func (bo *Optimizer) latinHypercubeSample(n int) [][]float64 {
	dims := len(bo.config.Bounds)
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, dims)
	}

	for i := 0; i < dims; i++ {
		perm := bo.rng.Perm(n)
		for j := 0; j < n; j++ {
			samples[j][i] = (float64(perm[j]) + bo.rng.Float64()) / float64(n)
		}
	}
	return samples
}

func (bo *Optimizer) randomPoint() []float64 {
	u := make([]float64, len(bo.config.Bounds))
	for i := range u {
		u[i] = bo.rng.Float64()
	}
	return u
}

// scale maps a unit cube point into the search box.
func (bo *Optimizer) scale(u []float64) []float64 {
	x := make([]float64, len(u))
	for i, b := range bo.config.Bounds {
		x[i] = b.Lower + u[i]*(b.Upper-b.Lower)
	}
	return x
}

func clampUnit(dst, x []float64) {
	for i, v := range x {
		dst[i] = math.Max(0, math.Min(1, v))
	}
}

func (bo *Optimizer) result() *Result {
	bo.mu.Lock()
	defer bo.mu.Unlock()

	r := &Result{
		History: append([]Sample(nil), bo.history...),
		Seed:    bo.seed,
	}
	if bo.best != nil {
		r.Best = *bo.best
	}
	return r
}

// Best returns the best sample so far and false if nothing was evaluated
func (bo *Optimizer) Best() (Sample, bool) {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	if bo.best == nil {
		return Sample{}, false
	}
	return *bo.best, true
}

// History returns the evaluations so far in order
func (bo *Optimizer) History() []Sample {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	return append([]Sample(nil), bo.history...)
}

// Seed returns the seed of the optimizer's random source
func (bo *Optimizer) Seed() int64 {
	return bo.seed
}

// Stop cancels a running optimization
func (bo *Optimizer) Stop() {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	if bo.cancel != nil {
		bo.cancel()
	}
}
