// Package acquisition scores candidate points from a surrogate's
// predictive mean and standard deviation.
package acquisition

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Goal selects the direction of improvement.
type Goal int

const (
	// Maximize treats larger objective values as better. Mapping scores
	// are maximized, so this is the zero value.
	Maximize Goal = iota
	// Minimize treats smaller objective values as better.
	Minimize
)

// minSigma is the predictive deviation below which the prediction is
// treated as certain.
const minSigma = 1e-10

// ExpectedImprovement implements the Expected Improvement acquisition function
type ExpectedImprovement struct {
	// Best observed value so far
	bestObserved float64
	// Exploration-exploitation trade-off parameter (xi)
	xi   float64
	goal Goal
}

// NewExpectedImprovement creates a new ExpectedImprovement acquisition function
// for the given goal.
func NewExpectedImprovement(bestObserved, xi float64, goal Goal) *ExpectedImprovement {
	return &ExpectedImprovement{
		bestObserved: bestObserved,
		xi:           xi,
		goal:         goal,
	}
}

func (ei *ExpectedImprovement) improvement(mu float64) float64 {
	if ei.goal == Minimize {
		return ei.bestObserved - mu - ei.xi
	}
	return mu - ei.bestObserved - ei.xi
}

// Compute computes the Expected Improvement at a point with predictive
// mean mu and standard deviation sigma. The result is never negative.
//
//	EI = improvement * Φ(z) + sigma * φ(z),  z = improvement / sigma
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	improvement := ei.improvement(mu)

	if sigma <= minSigma {
		if improvement <= 0 {
			return 0
		}
		return improvement
	}

	z := improvement / sigma
	value := improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	if value < 0 {
		return 0
	}
	return value
}

// UpdateBest updates the best observed value
func (ei *ExpectedImprovement) UpdateBest(best float64) {
	ei.bestObserved = best
}
