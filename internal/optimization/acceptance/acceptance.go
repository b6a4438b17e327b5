// Package acceptance provides the rules that decide whether the stochastic
// search keeps a swap that lowered the score.
package acceptance

import (
	"fmt"
	"math"
	"math/rand"
)

// Policy decides whether to keep a score decreasing swap. Swaps that do not
// decrease the score are always kept and never reach the policy.
type Policy interface {
	// Keep is called with the step index and the normalized score change,
	// which is negative. rng is the search's own random source.
	Keep(step int, delta float64, rng *rand.Rand) bool

	// Name identifies the policy in logs and reports
	Name() string
}

// StepCutoff keeps every swap during the first Steps steps and none after.
type StepCutoff struct {
	Steps int
}

// NewStepCutoff creates a StepCutoff policy
func NewStepCutoff(steps int) (*StepCutoff, error) {
	if steps < 0 {
		return nil, fmt.Errorf("cutoff steps must be non-negative, got %d", steps)
	}
	return &StepCutoff{Steps: steps}, nil
}

// Keep implements Policy
func (p *StepCutoff) Keep(step int, _ float64, _ *rand.Rand) bool {
	return step < p.Steps
}

// Name implements Policy
func (p *StepCutoff) Name() string {
	return "cutoff"
}

// Metropolis keeps a worsening swap with probability exp(delta/T) where the
// temperature decays geometrically: T = InitialTemperature * Cooling^step.
type Metropolis struct {
	// Temperature at step 0, in normalized score units
	InitialTemperature float64
	// Per step decay factor in (0, 1]
	Cooling float64
}

// NewMetropolis creates a Metropolis policy
func NewMetropolis(initialTemperature, cooling float64) (*Metropolis, error) {
	if initialTemperature < 0 || math.IsNaN(initialTemperature) {
		return nil, fmt.Errorf("temperature must be non-negative, got %v", initialTemperature)
	}
	if cooling <= 0 || cooling > 1 {
		return nil, fmt.Errorf("cooling must be in (0, 1], got %v", cooling)
	}
	return &Metropolis{InitialTemperature: initialTemperature, Cooling: cooling}, nil
}

// Temperature returns the temperature at step.
func (p *Metropolis) Temperature(step int) float64 {
	return p.InitialTemperature * math.Pow(p.Cooling, float64(step))
}

// Keep implements Policy
func (p *Metropolis) Keep(step int, delta float64, rng *rand.Rand) bool {
	if delta >= 0 {
		return true
	}
	temp := p.Temperature(step)
	if temp <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(delta/temp)
}

// Name implements Policy
func (p *Metropolis) Name() string {
	return "metropolis"
}

// Never rejects every worsening swap, turning the search into a pure
// stochastic hill climb.
type Never struct{}

// Keep implements Policy
func (Never) Keep(int, float64, *rand.Rand) bool { return false }

// Name implements Policy
func (Never) Name() string { return "never" }
