package acceptance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepCutoff(t *testing.T) {
	p, err := NewStepCutoff(10)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	for step := 0; step < 10; step++ {
		assert.True(t, p.Keep(step, -1, rng), "step %d", step)
	}
	for step := 10; step < 100; step++ {
		assert.False(t, p.Keep(step, -1e-9, rng), "step %d", step)
	}

	_, err = NewStepCutoff(-1)
	assert.Error(t, err)
}

func TestMetropolisTemperature(t *testing.T) {
	p, err := NewMetropolis(0.5, 0.9)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, p.Temperature(0), 1e-12)
	assert.InDelta(t, 0.5*math.Pow(0.9, 10), p.Temperature(10), 1e-12)
	assert.Less(t, p.Temperature(100), p.Temperature(99))
}

func TestMetropolisAcceptanceRate(t *testing.T) {
	tests := []struct {
		name  string
		temp  float64
		delta float64
	}{
		{name: "small loss", temp: 0.1, delta: -0.01},
		{name: "large loss", temp: 0.1, delta: -0.2},
		{name: "even odds", temp: 1, delta: math.Log(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewMetropolis(tt.temp, 1)
			require.NoError(t, err)
			rng := rand.New(rand.NewSource(42))

			const trials = 20000
			kept := 0
			for i := 0; i < trials; i++ {
				if p.Keep(i, tt.delta, rng) {
					kept++
				}
			}
			want := math.Exp(tt.delta / tt.temp)
			assert.InDelta(t, want, float64(kept)/trials, 0.02)
		})
	}
}

func TestMetropolisFrozen(t *testing.T) {
	p, err := NewMetropolis(0, 0.5)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	assert.False(t, p.Keep(0, -1e-12, rng))
	assert.True(t, p.Keep(0, 0, rng))
}

func TestNewMetropolisValidation(t *testing.T) {
	for _, cooling := range []float64{0, -0.5, 1.5} {
		_, err := NewMetropolis(0.1, cooling)
		assert.Error(t, err, "cooling %v", cooling)
	}
	_, err := NewMetropolis(-1, 0.9)
	assert.Error(t, err)
	_, err = NewMetropolis(math.NaN(), 0.9)
	assert.Error(t, err)
}

func TestNever(t *testing.T) {
	var p Policy = Never{}
	assert.False(t, p.Keep(0, -0.1, nil))
	assert.Equal(t, "never", p.Name())
}
