package stochastic

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/acceptance"
	"github.com/copyleftdev/TRITMAP/internal/optimization/optimizationtest"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

func TestRemapDistinct(t *testing.T) {
	remaps := map[string]Remap{
		"multiplicative": MultiplicativeRemap,
		"next":           NextSlotRemap,
	}

	for name, remap := range remaps {
		t.Run(name, func(t *testing.T) {
			for slot := 1; slot <= ternary.NumLetters; slot++ {
				r := remap(slot, slot)
				assert.NotEqual(t, slot, r, "slot %d", slot)
				assert.GreaterOrEqual(t, r, 1)
				assert.LessOrEqual(t, r, ternary.NumLetters)
			}
		})
	}

	assert.Equal(t, 17, MultiplicativeRemap(1, 1))
	assert.Equal(t, 1, MultiplicativeRemap(26, 26))
	assert.Equal(t, 14, MultiplicativeRemap(13, 13))
	assert.Equal(t, 1, NextSlotRemap(26, 26))
}

func TestParseRemap(t *testing.T) {
	for _, name := range []string{"", "multiplicative", "next"} {
		r, err := ParseRemap(name)
		require.NoError(t, err)
		assert.NotNil(t, r)
	}
	_, err := ParseRemap("xor")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	s, err := New(optimization.OptimizerConfig{RandomSeed: 5})
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, s.config.MaxIterations)
	assert.Equal(t, "metropolis", s.policy.Name())
	assert.Equal(t, int64(5), s.Seed())

	_, err = New(optimization.OptimizerConfig{MaxIterations: -1})
	assert.Error(t, err)

	bad := ternary.Identity()
	bad.Swap(0, 3)
	_, err = New(optimization.OptimizerConfig{Initial: &bad})
	assert.True(t, errors.Is(err, optimization.ErrInvalidArrangement))
}

func search(t *testing.T, config optimization.OptimizerConfig, opts ...Option) *optimization.OptimizationResult {
	t.Helper()

	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	s, err := New(config, opts...)
	require.NoError(t, err)
	result, err := s.Optimize(context.Background(), optimizationtest.EnglishBigrams())
	require.NoError(t, err)
	return result
}

func TestOptimizeReproducible(t *testing.T) {
	config := optimization.OptimizerConfig{MaxIterations: 2000, RandomSeed: 21}

	first := search(t, config)
	second := search(t, config)

	assert.Equal(t, first.BestSolution, second.BestSolution)
	assert.Equal(t, first.Accepted, second.Accepted)
	assert.Equal(t, 2000, first.Iterations)
	optimizationtest.RequireBijection(t, first.BestSolution.Arrangement)
}

func TestFinalScoreMatchesArrangement(t *testing.T) {
	result := search(t, optimization.OptimizerConfig{MaxIterations: 1500, RandomSeed: 2})

	scorer, err := scoring.NewScorer(optimizationtest.EnglishBigrams())
	require.NoError(t, err)
	arr := result.BestSolution.Arrangement
	assert.Equal(t, scorer.Score(&arr), result.BestSolution.Score)

	require.Len(t, result.History, result.Accepted)
	for _, eval := range result.History {
		optimizationtest.RequireBijection(t, eval.Solution.Arrangement)
	}
}

func TestGreedyPolicyNeverDecreases(t *testing.T) {
	initial := ternary.Identity()
	scorer, err := scoring.NewScorer(optimizationtest.EnglishBigrams())
	require.NoError(t, err)

	result := search(t, optimization.OptimizerConfig{MaxIterations: 3000, RandomSeed: 13},
		WithPolicy(acceptance.Never{}))

	scores := []float64{scorer.Score(&initial)}
	for _, eval := range result.History {
		scores = append(scores, eval.Solution.Score)
	}
	optimizationtest.RequireNonDecreasing(t, scores)
	assert.GreaterOrEqual(t, result.BestSolution.Score, scores[0])
}

func TestStepCutoffForcesEarlyAccepts(t *testing.T) {
	cutoff, err := acceptance.NewStepCutoff(10)
	require.NoError(t, err)

	result := search(t, optimization.OptimizerConfig{MaxIterations: 500, RandomSeed: 8},
		WithPolicy(cutoff))

	require.GreaterOrEqual(t, len(result.History), 10)
	for step := 0; step < 10; step++ {
		assert.Equal(t, step, result.History[step].Iteration, "step %d must be kept", step)
	}

	// after the cutoff only non-decreasing swaps survive
	var after []float64
	for _, eval := range result.History[9:] {
		after = append(after, eval.Solution.Score)
	}
	optimizationtest.RequireNonDecreasing(t, after)
}

func TestInitialArrangementIsUsed(t *testing.T) {
	initial, err := ternary.ParseArrangement("zyxwvutsrqponmlkjihgfedcba")
	require.NoError(t, err)

	s, err := New(optimization.OptimizerConfig{MaxIterations: 1, Initial: &initial, RandomSeed: 1},
		WithPolicy(acceptance.Never{}))
	require.NoError(t, err)
	result, err := s.Optimize(context.Background(), ternary.Frequencies{"ab": 1})
	require.NoError(t, err)

	// one trial swap at most, so at least 24 letters keep their slot
	same := 0
	for c := range initial {
		if initial[c] == result.BestSolution.Arrangement[c] {
			same++
		}
	}
	assert.GreaterOrEqual(t, same, ternary.NumCodes-2)
}

func TestOptimizeCancelled(t *testing.T) {
	s, err := New(optimization.OptimizerConfig{MaxIterations: 100, RandomSeed: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.Optimize(ctx, optimizationtest.SmallFrequencies())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, result.Iterations)
	assert.Equal(t, ternary.Identity(), result.BestSolution.Arrangement)
	assert.False(t, result.Converged)
}

func TestEvaluationHook(t *testing.T) {
	var evaluations int
	search(t, optimization.OptimizerConfig{MaxIterations: 250, RandomSeed: 4},
		WithEvaluationHook(func(n int) { evaluations = n }))
	assert.Equal(t, 251, evaluations)
}

func TestZeroTableStillRuns(t *testing.T) {
	s, err := New(optimization.OptimizerConfig{MaxIterations: 50, RandomSeed: 6})
	require.NoError(t, err)
	result, err := s.Optimize(context.Background(), ternary.Frequencies{})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Accepted, "ties are always accepted")
	assert.Equal(t, 0.0, result.BestSolution.Score)
}

// stopAfter rejects every decreasing swap and stops the search at the first
// one on or after step n.
type stopAfter struct {
	n int
	s *Searcher
}

func (p *stopAfter) Keep(step int, _ float64, _ *rand.Rand) bool {
	if step >= p.n {
		p.s.Stop()
	}
	return false
}

func (p *stopAfter) Name() string { return "stop-after" }

func TestProgress(t *testing.T) {
	var _ optimization.ProgressReporter = (*Searcher)(nil)

	policy := &stopAfter{n: 100}
	s, err := New(optimization.OptimizerConfig{MaxIterations: 1000, RandomSeed: 12}, WithPolicy(policy))
	require.NoError(t, err)
	policy.s = s
	assert.Equal(t, 0.0, s.Progress())

	result, err := s.Optimize(context.Background(), optimizationtest.EnglishBigrams())
	require.ErrorIs(t, err, context.Canceled)
	assert.Greater(t, result.Iterations, 100)
	assert.Less(t, result.Iterations, 1000)
	assert.InDelta(t, float64(result.Iterations)/1000, s.Progress(), 1e-12)

	full, err := New(optimization.OptimizerConfig{MaxIterations: 300, RandomSeed: 12})
	require.NoError(t, err)
	_, err = full.Optimize(context.Background(), optimizationtest.EnglishBigrams())
	require.NoError(t, err)
	assert.Equal(t, 1.0, full.Progress())
}
