package optimization

import (
	"context"

	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// Optimizer defines the interface for arrangement search algorithms
type Optimizer interface {
	// Optimize searches for a high scoring arrangement for the given frequencies
	Optimize(ctx context.Context, freq ternary.Frequencies) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the history of evaluations
	GetHistory() []Evaluation

	// Stop gracefully stops the optimization process
	Stop()
}

// ProgressReporter is implemented by optimizers that know how much of a run
// is done.
type ProgressReporter interface {
	// Progress returns the completed fraction of the current run in [0, 1]
	Progress() float64
}

// OptimizerConfig contains configuration shared by the optimizers
type OptimizerConfig struct {
	// Number of independent restarts (deterministic search)
	Restarts int

	// Number of trial swaps (stochastic search)
	MaxIterations int

	// Maximum number of restarts evaluated concurrently
	Workers int

	// Starting arrangement for the stochastic search; identity when nil
	Initial *ternary.Arrangement

	// Random seed for reproducibility; zero picks a time based seed
	RandomSeed int64

	// Verbose logging
	Verbose bool
}

// Solution is an arrangement together with its raw score
type Solution struct {
	Arrangement ternary.Arrangement
	Score       float64
}

// Clone returns a copy that does not alias s
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Evaluation records one completed unit of search: a restart for the
// deterministic optimizer, an accepted swap for the stochastic one
type Evaluation struct {
	Iteration int
	Solution  *Solution
	Error     error
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	// Accepted counts accepted swaps, forced accepts included
	Accepted int
	// Seed is the seed actually used, so time seeded runs can be replayed
	Seed      int64
	Converged bool
}
