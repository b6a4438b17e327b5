package acquisition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedImprovement(t *testing.T) {
	tests := []struct {
		name          string
		goal          Goal
		bestObserved  float64
		xi            float64
		mu            float64
		sigma         float64
		expectedValue float64
	}{
		{
			name:          "maximize no improvement",
			goal:          Maximize,
			bestObserved:  1.0,
			xi:            0.01,
			mu:            0.5,
			sigma:         0.1,
			expectedValue: 0.0000,
		},
		{
			name:          "maximize definite improvement",
			goal:          Maximize,
			bestObserved:  0.5,
			xi:            0.01,
			mu:            1.0,
			sigma:         0.2,
			expectedValue: 0.4905, // 0.49 * Φ(2.45) + 0.2 * φ(2.45)
		},
		{
			name:          "minimize definite improvement",
			goal:          Minimize,
			bestObserved:  1.0,
			xi:            0.01,
			mu:            0.5,
			sigma:         0.2,
			expectedValue: 0.4905,
		},
		{
			name:          "zero sigma",
			goal:          Minimize,
			bestObserved:  1.0,
			xi:            0.0,
			mu:            0.5,
			sigma:         0.0,
			expectedValue: 0.5,
		},
		{
			name:          "zero sigma without improvement",
			goal:          Maximize,
			bestObserved:  1.0,
			xi:            0.0,
			mu:            0.5,
			sigma:         0.0,
			expectedValue: 0.0,
		},
		{
			name:          "uncertain prediction at best",
			goal:          Maximize,
			bestObserved:  1.0,
			xi:            0.0,
			mu:            1.0,
			sigma:         1.0,
			expectedValue: 1 / math.Sqrt(2*math.Pi), // sigma * φ(0)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ei := NewExpectedImprovement(tt.bestObserved, tt.xi, tt.goal)
			result := ei.Compute(tt.mu, tt.sigma)
			assert.InDelta(t, tt.expectedValue, result, 1e-4)
			assert.GreaterOrEqual(t, result, 0.0)
		})
	}
}

func TestExpectedImprovementUpdate(t *testing.T) {
	ei := NewExpectedImprovement(0.5, 0.01, Maximize)

	before := ei.Compute(0.6, 0.1)
	assert.Greater(t, before, 0.0)

	// Raising the incumbent makes the same prediction less attractive
	ei.UpdateBest(0.7)
	assert.Less(t, ei.Compute(0.6, 0.1), before)

	// A larger xi demands more improvement
	strict := NewExpectedImprovement(0.7, 0.2, Maximize)
	assert.Less(t, strict.Compute(0.6, 0.1), ei.Compute(0.6, 0.1))
	assert.Less(t, strict.Compute(0.6, 0.1), strict.Compute(0.9, 0.1))
}
