package mapping

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/hillclimb"
	"github.com/copyleftdev/TRITMAP/internal/optimization/optimizationtest"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

func TestCompact(t *testing.T) {
	a, err := New(ternary.Identity(), 25, 100)
	require.NoError(t, err)

	line, err := a.Compact()
	require.NoError(t, err)
	assert.Equal(t, ternary.Letters+":0.25", line)
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{0.25, "0.25"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e-4, "0.0001"},
		{1.5e-5, "1.5e-05"},
		{1e-5, "1e-05"},
		{123456.5, "123456.5"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{2.5e-300, "2.5e-300"},
		{math.Inf(1), "inf"},
		{math.NaN(), "nan"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatScore(tt.in))
		})
	}

	for _, score := range []float64{0, 1} {
		a, err := New(ternary.Identity(), score*40, 40)
		require.NoError(t, err)
		line, err := a.Compact()
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(line, ":"+formatScore(score)), line)
		assert.Contains(t, line, ".0")
	}
}

func TestCompactZeroTotal(t *testing.T) {
	a, err := New(ternary.Identity(), 0, 0)
	require.NoError(t, err)

	_, err = a.Compact()
	assert.True(t, errors.Is(err, optimization.ErrDegenerateFrequencies))

	var b strings.Builder
	assert.True(t, errors.Is(a.WriteVerbose(&b), optimization.ErrDegenerateFrequencies))
}

func TestNewRejectsInvalidArrangement(t *testing.T) {
	arr := ternary.Identity()
	arr[5] = arr[6]

	_, err := New(arr, 1, 1)
	assert.True(t, errors.Is(err, optimization.ErrInvalidArrangement))
}

func TestWriteVerbose(t *testing.T) {
	arr, err := ternary.ParseArrangement("zyxwvutsrqponmlkjihgfedcba")
	require.NoError(t, err)

	a, err := FromResult(&optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Arrangement: arr, Score: 3},
		Accepted:     12,
	}, 4, "stochastic")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, a.WriteVerbose(&b))
	out := b.String()

	assert.Contains(t, out, "Algorithm: stochastic\n")
	assert.Contains(t, out, "Score: 0.75\n")
	assert.Contains(t, out, "Raw score: 3.0\n")
	assert.Contains(t, out, "Accepted swaps: 12\n")

	lines := strings.Split(strings.TrimSpace(strings.SplitN(out, "Mapping:\n\n", 2)[1]), "\n")
	require.Len(t, lines, ternary.NumCodes)
	assert.Equal(t, "_ -> 000", lines[0])
	assert.Equal(t, "z -> 001", lines[1])
	assert.Equal(t, "a -> 222", lines[26])
}

func TestFromResultWithoutSolution(t *testing.T) {
	_, err := FromResult(&optimization.OptimizationResult{}, 1, "hillclimb")
	assert.Error(t, err)
	_, err = FromResult(nil, 1, "hillclimb")
	assert.Error(t, err)
}

func TestCompactIsReproducibleEndToEnd(t *testing.T) {
	freq := optimizationtest.SmallFrequencies()

	run := func() string {
		hc, err := hillclimb.New(optimization.OptimizerConfig{Restarts: 5, RandomSeed: 1234})
		require.NoError(t, err)
		result, err := hc.Optimize(context.Background(), freq)
		require.NoError(t, err)

		a, err := FromResult(result, float64(freq.Total()), "hillclimb")
		require.NoError(t, err)
		line, err := a.Compact()
		require.NoError(t, err)
		return line
	}

	first := run()
	assert.Equal(t, first, run())

	letters, score, ok := strings.Cut(first, ":")
	require.True(t, ok)
	_, err := ternary.ParseArrangement(letters)
	require.NoError(t, err)
	assert.NotEmpty(t, score)
}

func TestAcceptedOnlyForStochastic(t *testing.T) {
	result := &optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Arrangement: ternary.Identity()},
		Accepted:     3,
	}

	a, err := FromResult(result, 1, "hillclimb")
	require.NoError(t, err)
	assert.Nil(t, a.Accepted)

	a, err = FromResult(result, 1, "stochastic")
	require.NoError(t, err)
	require.NotNil(t, a.Accepted)
	assert.Equal(t, 3, *a.Accepted)
}
