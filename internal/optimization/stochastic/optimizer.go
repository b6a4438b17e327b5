// Package stochastic implements the randomized arrangement search: a single
// arrangement is repeatedly perturbed by random pairwise swaps, keeping the
// swaps that do not lower the score and, subject to an acceptance policy,
// some that do.
package stochastic

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/acceptance"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

const (
	// DefaultIterations is used when MaxIterations is unset
	DefaultIterations = 10000
	// DefaultTemperature is the default initial Metropolis temperature
	DefaultTemperature = 0.01
	// DefaultCooling is the default per step temperature decay
	DefaultCooling = 0.999

	logEvery = 1000
)

// Option configures a Searcher
type Option func(*Searcher)

// WithPolicy sets the acceptance policy for score decreasing swaps
func WithPolicy(p acceptance.Policy) Option {
	return func(s *Searcher) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithRemap sets the collision remap
func WithRemap(r Remap) Option {
	return func(s *Searcher) {
		if r != nil {
			s.remap = r
		}
	}
}

// WithLogger sets the logger; the searcher names it "stochastic"
func WithLogger(logger *zap.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvaluationHook registers fn to be called once at the end of a run with
// the number of score evaluations performed
func WithEvaluationHook(fn func(n int)) Option {
	return func(s *Searcher) { s.onEvaluations = fn }
}

// Searcher implements optimization.Optimizer with random pairwise swaps.
type Searcher struct {
	config optimization.OptimizerConfig
	policy acceptance.Policy
	remap  Remap
	rng    *rand.Rand
	seed   int64

	logger        *zap.Logger
	onEvaluations func(n int)

	// completed steps of the current run
	steps atomic.Int64

	mu      sync.Mutex
	current *optimization.Solution
	history []optimization.Evaluation
	cancel  context.CancelFunc
}

// New creates a Searcher. The default policy is Metropolis acceptance with
// DefaultTemperature and DefaultCooling.
func New(config optimization.OptimizerConfig, opts ...Option) (*Searcher, error) {
	if config.MaxIterations < 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig, "iterations must be non-negative, got %d", config.MaxIterations).
			WithComponent("stochastic").WithOperation("New")
	}
	if config.MaxIterations == 0 {
		config.MaxIterations = DefaultIterations
	}
	if config.Initial != nil {
		if err := config.Initial.Validate(); err != nil {
			return nil, optimization.WrapError(err, "initial arrangement").
				WithComponent("stochastic").WithOperation("New")
		}
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Searcher{
		config: config,
		policy: &acceptance.Metropolis{InitialTemperature: DefaultTemperature, Cooling: DefaultCooling},
		remap:  MultiplicativeRemap,
		rng:    rand.New(rand.NewSource(seed)),
		seed:   seed,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("stochastic")
	return s, nil
}

// Seed returns the seed of the searcher's random source
func (s *Searcher) Seed() int64 {
	return s.seed
}

// Optimize runs MaxIterations trial swaps and returns the final arrangement,
// its score and the number of accepted swaps. If ctx is cancelled the state
// after the last completed step is returned together with the context error.
func (s *Searcher) Optimize(ctx context.Context, freq ternary.Frequencies) (*optimization.OptimizationResult, error) {
	scorer, err := scoring.NewScorer(freq)
	if err != nil {
		return nil, err
	}
	total := scorer.Total()
	if total <= 0 {
		// deltas are normalized by the total; a zero table never changes the score
		total = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	arr := ternary.Identity()
	if s.config.Initial != nil {
		arr = *s.config.Initial
	}
	score := scorer.Score(&arr)

	s.mu.Lock()
	s.cancel = cancel
	s.current = &optimization.Solution{Arrangement: arr, Score: score}
	s.history = s.history[:0]
	s.mu.Unlock()
	s.steps.Store(0)

	s.logger.Info("Starting stochastic search",
		zap.Int("iterations", s.config.MaxIterations),
		zap.Int64("seed", s.seed),
		zap.String("policy", s.policy.Name()),
		zap.Float64("initial_score", score))

	accepted, steps, evaluations := 0, 0, 1
	for t := 0; t < s.config.MaxIterations; t++ {
		if err = ctx.Err(); err != nil {
			break
		}

		i, j := s.draw()
		arr.Swap(i, j)
		trial := scorer.Score(&arr)
		evaluations++

		if trial >= score || s.policy.Keep(t, (trial-score)/total, s.rng) {
			score = trial
			accepted++
			s.publish(t, arr, score)
		} else {
			arr.Swap(i, j)
		}
		steps++
		s.steps.Store(int64(steps))

		if s.config.Verbose && (t+1)%logEvery == 0 {
			s.logger.Info("Search progress",
				zap.Int("step", t+1),
				zap.Float64("score", score),
				zap.Int("accepted", accepted))
		}
	}

	if s.onEvaluations != nil {
		s.onEvaluations(evaluations)
	}

	result := &optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Arrangement: arr, Score: score},
		History:      s.GetHistory(),
		Iterations:   steps,
		Accepted:     accepted,
		Seed:         s.seed,
		Converged:    err == nil,
	}
	if err != nil {
		s.logger.Warn("Stochastic search interrupted", zap.Int("steps", steps), zap.Error(err))
		return result, err
	}

	s.logger.Info("Stochastic search finished",
		zap.Float64("score", score),
		zap.Int("accepted", accepted),
		zap.String("mapping", arr.Letters()))
	return result, nil
}

// draw picks two distinct non-whitespace slots.
func (s *Searcher) draw() (int, int) {
	i := 1 + s.rng.Intn(ternary.NumLetters)
	j := 1 + s.rng.Intn(ternary.NumLetters)
	if i == j {
		j = s.remap(i, j)
	}
	return i, j
}

func (s *Searcher) publish(step int, arr ternary.Arrangement, score float64) {
	sol := &optimization.Solution{Arrangement: arr, Score: score}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sol
	s.history = append(s.history, optimization.Evaluation{Iteration: step, Solution: sol})
}

// GetBestSolution returns the live arrangement and its score
func (s *Searcher) GetBestSolution() *optimization.Solution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Progress returns the fraction of MaxIterations steps completed
func (s *Searcher) Progress() float64 {
	return float64(s.steps.Load()) / float64(s.config.MaxIterations)
}

// GetHistory returns one evaluation per accepted swap
func (s *Searcher) GetHistory() []optimization.Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]optimization.Evaluation(nil), s.history...)
}

// Stop cancels the running search
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
