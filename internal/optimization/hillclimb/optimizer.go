// Package hillclimb implements the deterministic arrangement search: random
// restarts, each improved by coordinate sweeps of pairwise swaps until a full
// sweep leaves the score unchanged.
package hillclimb

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

const (
	// DefaultRestarts is used when the configuration leaves Restarts unset
	DefaultRestarts = 100
)

// Option configures a HillClimber
type Option func(*HillClimber)

// WithTieBreak sets the rule for equal trial scores
func WithTieBreak(tb TieBreak) Option {
	return func(hc *HillClimber) { hc.tieBreak = tb }
}

// WithLogger sets the logger; the optimizer names it "hillclimb"
func WithLogger(logger *zap.Logger) Option {
	return func(hc *HillClimber) {
		if logger != nil {
			hc.logger = logger
		}
	}
}

// WithCommitHook registers fn to be called after every committed swap with
// the restart index and the score after the swap. With more than one worker
// fn is called concurrently.
func WithCommitHook(fn func(restart int, score float64)) Option {
	return func(hc *HillClimber) { hc.onCommit = fn }
}

// WithEvaluationHook registers fn to be called once per finished restart with
// the number of score evaluations it performed
func WithEvaluationHook(fn func(n int)) Option {
	return func(hc *HillClimber) { hc.onEvaluations = fn }
}

// HillClimber implements optimization.Optimizer with restarted coordinate
// sweeps. Only the starting permutation of each restart is random.
type HillClimber struct {
	// Configuration
	config   optimization.OptimizerConfig
	tieBreak TieBreak
	seed     int64

	logger        *zap.Logger
	onCommit      func(restart int, score float64)
	onEvaluations func(n int)

	mu           sync.Mutex
	bestSolution *optimization.Solution
	bestRestart  int
	history      []optimization.Evaluation
	cancel       context.CancelFunc
}

// New creates a HillClimber
func New(config optimization.OptimizerConfig, opts ...Option) (*HillClimber, error) {
	if config.Restarts < 0 || config.Workers < 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig, "restarts and workers must be non-negative, got %d and %d",
			config.Restarts, config.Workers).WithComponent("hillclimb").WithOperation("New")
	}
	if config.Restarts == 0 {
		config.Restarts = DefaultRestarts
	}
	if config.Workers == 0 {
		config.Workers = 1
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	hc := &HillClimber{
		config:   config,
		tieBreak: PreferLast,
		seed:     seed,
		logger:   zap.NewNop(),
		history:  make([]optimization.Evaluation, 0, config.Restarts),
	}
	for _, opt := range opts {
		opt(hc)
	}
	hc.logger = hc.logger.Named("hillclimb")
	return hc, nil
}

// Seed returns the seed the restarts derive their random sources from
func (hc *HillClimber) Seed() int64 {
	return hc.seed
}

// Optimize runs all restarts and returns the best arrangement found. If ctx
// is cancelled, restarts that have not started are skipped and the best
// completed restart is returned together with the context error.
func (hc *HillClimber) Optimize(ctx context.Context, freq ternary.Frequencies) (*optimization.OptimizationResult, error) {
	scorer, err := scoring.NewScorer(freq)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	hc.mu.Lock()
	hc.cancel = cancel
	hc.bestSolution = nil
	hc.history = hc.history[:0]
	hc.mu.Unlock()

	hc.logger.Info("Starting hill climb",
		zap.Int("restarts", hc.config.Restarts),
		zap.Int("workers", hc.config.Workers),
		zap.Int64("seed", hc.seed),
		zap.String("tie_break", hc.tieBreak.String()))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hc.config.Workers)

	for r := 0; r < hc.config.Restarts; r++ {
		if gctx.Err() != nil {
			break
		}
		restart := r
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hc.runRestart(restart, scorer)
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()
	sort.Slice(hc.history, func(i, j int) bool {
		return hc.history[i].Iteration < hc.history[j].Iteration
	})

	result := &optimization.OptimizationResult{
		BestSolution: hc.bestSolution.Clone(),
		History:      append([]optimization.Evaluation(nil), hc.history...),
		Iterations:   len(hc.history),
		Seed:         hc.seed,
		Converged:    err == nil,
	}
	if err != nil {
		hc.logger.Warn("Hill climb interrupted",
			zap.Int("completed_restarts", result.Iterations),
			zap.Error(err))
		return result, err
	}

	hc.logger.Info("Hill climb finished",
		zap.Float64("best_score", result.BestSolution.Score),
		zap.String("best_mapping", result.BestSolution.Arrangement.Letters()),
		zap.Int("best_restart", hc.bestRestart))
	return result, nil
}

// runRestart climbs from the restart's random starting point and records the
// local optimum.
func (hc *HillClimber) runRestart(restart int, scorer *scoring.Scorer) {
	rng := rand.New(rand.NewSource(hc.seed + int64(restart)))
	arr := ternary.RandomArrangement(rng)

	score, evaluations, sweeps := hc.climb(restart, &arr, scorer)
	if hc.onEvaluations != nil {
		hc.onEvaluations(evaluations)
	}

	level := zap.DebugLevel
	if hc.config.Verbose {
		level = zap.InfoLevel
	}
	if ce := hc.logger.Check(level, "Restart converged"); ce != nil {
		ce.Write(
			zap.Int("restart", restart),
			zap.Float64("score", score),
			zap.Int("sweeps", sweeps),
			zap.Int("evaluations", evaluations))
	}

	hc.record(restart, &optimization.Solution{Arrangement: arr, Score: score})
}

// climb improves arr in place until a full sweep leaves the score unchanged.
// For each code i it scans every later code j, tentatively swapping and
// rescoring, then commits the swap with the best partner found.
func (hc *HillClimber) climb(restart int, arr *ternary.Arrangement, scorer *scoring.Scorer) (score float64, evaluations, sweeps int) {
	score = scorer.Score(arr)
	evaluations = 1

	for {
		start := score
		sweeps++

		for i := 1; i < ternary.NumCodes; i++ {
			best := i
			for j := i + 1; j < ternary.NumCodes; j++ {
				arr.Swap(i, j)
				trial := scorer.Score(arr)
				evaluations++
				if hc.tieBreak.Better(trial, score) {
					score = trial
					best = j
				}
				arr.Swap(i, j)
			}

			if best != i {
				arr.Swap(i, best)
				if hc.onCommit != nil {
					hc.onCommit(restart, score)
				}
			}
		}

		if score == start {
			return score, evaluations, sweeps
		}
	}
}

// record adds a finished restart to the history and keeps the best solution.
// Ties go to the lower restart index so the result does not depend on the
// order in which concurrent restarts finish.
func (hc *HillClimber) record(restart int, sol *optimization.Solution) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.history = append(hc.history, optimization.Evaluation{
		Iteration: restart,
		Solution:  sol,
	})

	if hc.bestSolution == nil ||
		sol.Score > hc.bestSolution.Score ||
		(sol.Score == hc.bestSolution.Score && restart < hc.bestRestart) {
		hc.bestSolution = sol.Clone()
		hc.bestRestart = restart
	}
}

// GetBestSolution returns the best solution found so far
func (hc *HillClimber) GetBestSolution() *optimization.Solution {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.bestSolution.Clone()
}

// Progress returns the fraction of restarts completed
func (hc *HillClimber) Progress() float64 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return float64(len(hc.history)) / float64(hc.config.Restarts)
}

// GetHistory returns one evaluation per completed restart
func (hc *HillClimber) GetHistory() []optimization.Evaluation {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return append([]optimization.Evaluation(nil), hc.history...)
}

// Stop cancels the running optimization
func (hc *HillClimber) Stop() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.cancel != nil {
		hc.cancel()
	}
}
