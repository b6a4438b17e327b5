// Package tuning chooses the Metropolis temperature schedule of the
// stochastic search for a given frequency table by Bayesian optimization of
// the mean normalized score over repeated seeded runs.
package tuning

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/acceptance"
	"github.com/copyleftdev/TRITMAP/internal/optimization/bayesian"
	"github.com/copyleftdev/TRITMAP/internal/optimization/kernels"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/optimization/stochastic"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

const (
	// DefaultRepeats is the number of seeded runs averaged per candidate
	DefaultRepeats = 3
	// DefaultEvaluations is the number of model guided candidates
	DefaultEvaluations = 12
)

// The schedule is searched in log space:
// x[0] = log10(T0) and x[1] = log10(1 - cooling).
var (
	temperatureBound = bayesian.Bound{Lower: -4, Upper: 0}
	coolingBound     = bayesian.Bound{Lower: -5, Upper: -2}
)

// Config configures a tuning run
type Config struct {
	// Trial swaps per stochastic run; stochastic.DefaultIterations when zero
	Iterations int

	// Seeded runs averaged per candidate schedule
	Repeats int

	// Candidates proposed by the surrogate after the initial design
	Evaluations int

	// Size of the initial design; bayesian.DefaultInitialPoints when zero
	InitialPoints int

	// Starting arrangement of every run; identity when nil
	Initial *ternary.Arrangement

	// Collision remap of the stochastic search; multiplicative when nil
	Remap stochastic.Remap

	// Surrogate covariance, one of kernels.Names; Matérn 5/2 when empty
	Kernel string

	// Random seed for reproducibility; zero picks a time based seed
	Seed int64
}

// Trial is one evaluated temperature schedule
type Trial struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Cooling     float64 `json:"cooling" yaml:"cooling"`
	MeanScore   float64 `json:"mean_score" yaml:"mean_score"`
}

// Result is the best schedule found together with every trial
type Result struct {
	Best   Trial   `json:"best" yaml:"best"`
	Trials []Trial `json:"trials" yaml:"trials"`
	Kernel string  `json:"kernel" yaml:"kernel"`
	Seed   int64   `json:"seed" yaml:"seed"`
}

// Schedule converts a point of the log search space into a temperature and
// a cooling factor.
func Schedule(x []float64) (temperature, cooling float64) {
	return math.Pow(10, x[0]), 1 - math.Pow(10, x[1])
}

// TuneMetropolis searches for the Metropolis schedule that maximizes the
// mean normalized score the stochastic search reaches on freq. Every
// candidate is run with the same seeds so that candidates are compared on
// identical swap sequences.
func TuneMetropolis(ctx context.Context, freq ternary.Frequencies, config Config, logger *zap.Logger) (*Result, error) {
	const op = "TuneMetropolis"

	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("tuning")

	if config.Iterations < 0 || config.Repeats < 0 || config.Evaluations < 0 || config.InitialPoints < 0 {
		return nil, optimization.WrapError(optimization.ErrInvalidConfig, "counts must be non-negative").
			WithComponent("tuning").WithOperation(op)
	}
	if config.Repeats == 0 {
		config.Repeats = DefaultRepeats
	}
	if config.Evaluations == 0 {
		config.Evaluations = DefaultEvaluations
	}
	if config.Kernel == "" {
		config.Kernel = kernels.Matern52
	}
	kernel, err := kernels.New(config.Kernel, bayesian.DefaultLengthScale, 1)
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrInvalidConfig, err.Error()).
			WithComponent("tuning").WithOperation(op)
	}

	scorer, err := scoring.NewScorer(freq)
	if err != nil {
		return nil, err
	}
	if scorer.Total() <= 0 {
		return nil, optimization.WrapError(optimization.ErrDegenerateFrequencies, "cannot tune").
			WithComponent("tuning").WithOperation(op)
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	objective := func(ctx context.Context, x []float64) (float64, error) {
		temperature, cooling := Schedule(x)
		sum := 0.0
		for r := 0; r < config.Repeats; r++ {
			searcher, err := stochastic.New(optimization.OptimizerConfig{
				MaxIterations: config.Iterations,
				Initial:       config.Initial,
				RandomSeed:    runSeed(seed, r),
			},
				stochastic.WithPolicy(&acceptance.Metropolis{InitialTemperature: temperature, Cooling: cooling}),
				stochastic.WithRemap(config.Remap),
			)
			if err != nil {
				return 0, err
			}
			result, err := searcher.Optimize(ctx, freq)
			if err != nil {
				return 0, err
			}
			score, err := scorer.Normalize(result.BestSolution.Score)
			if err != nil {
				return 0, err
			}
			sum += score
		}
		mean := sum / float64(config.Repeats)

		logger.Debug("Evaluated schedule",
			zap.Float64("temperature", temperature),
			zap.Float64("cooling", cooling),
			zap.Float64("mean_score", mean))
		return mean, nil
	}

	bo, err := bayesian.New(bayesian.Config{
		Bounds:        []bayesian.Bound{temperatureBound, coolingBound},
		Objective:     objective,
		InitialPoints: config.InitialPoints,
		Iterations:    config.Evaluations,
		// Scores are normalized to [0, 1]; demand a modest improvement
		Xi:         1e-4,
		Kernel:     kernel,
		RandomSeed: seed,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Tuning Metropolis schedule",
		zap.String("kernel", config.Kernel),
		zap.Int("iterations", config.Iterations),
		zap.Int("repeats", config.Repeats),
		zap.Int("evaluations", config.Evaluations),
		zap.Int64("seed", seed))

	bres, err := bo.Optimize(ctx)
	result := convert(bres, seed)
	result.Kernel = config.Kernel
	if err != nil {
		return result, err
	}

	logger.Info("Tuned Metropolis schedule",
		zap.Float64("temperature", result.Best.Temperature),
		zap.Float64("cooling", result.Best.Cooling),
		zap.Float64("mean_score", result.Best.MeanScore))
	return result, nil
}

// runSeed returns the seed of the r-th run; it is never zero, which would
// ask the search for a time based seed.
func runSeed(seed int64, r int) int64 {
	s := seed + int64(r)
	if s == 0 {
		s = math.MinInt64
	}
	return s
}

func convert(bres *bayesian.Result, seed int64) *Result {
	result := &Result{Seed: seed}
	if bres == nil {
		return result
	}
	for _, s := range bres.History {
		result.Trials = append(result.Trials, trial(s))
	}
	if len(bres.History) > 0 {
		result.Best = trial(bres.Best)
	}
	return result
}

func trial(s bayesian.Sample) Trial {
	t, c := Schedule(s.X)
	return Trial{Temperature: t, Cooling: c, MeanScore: s.Value}
}
