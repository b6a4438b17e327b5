// Package strategy builds an optimizer from configuration.
package strategy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/copyleftdev/TRITMAP/internal/config"
	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/acceptance"
	"github.com/copyleftdev/TRITMAP/internal/optimization/hillclimb"
	"github.com/copyleftdev/TRITMAP/internal/optimization/stochastic"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// Algorithm names
const (
	HillClimb  = "hillclimb"
	Stochastic = "stochastic"
)

// Params selects and tunes an optimizer. Zero values fall back to the
// package defaults of the chosen optimizer.
type Params struct {
	Algorithm   string
	Restarts    int
	Iterations  int
	Workers     int
	Seed        int64
	Initial     *ternary.Arrangement
	TieBreak    string
	Remap       string
	Acceptance  string
	CutoffSteps int
	Temperature float64
	Cooling     float64
	Verbose     bool
}

// ParamsFromConfig copies the optimization section of cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	o := cfg.Optimization
	return Params{
		Algorithm:   o.Algorithm,
		Restarts:    o.Restarts,
		Iterations:  o.Iterations,
		Workers:     o.WorkerCount,
		Seed:        o.Seed,
		TieBreak:    o.TieBreak,
		Remap:       o.Remap,
		Acceptance:  o.Acceptance,
		CutoffSteps: o.CutoffSteps,
		Temperature: o.Temperature,
		Cooling:     o.Cooling,
	}
}

// Hooks receive optimizer progress, typically for metrics.
type Hooks struct {
	// Evaluations is called with batches of score evaluation counts
	Evaluations func(n int)
}

// New builds the optimizer named by p.Algorithm.
func New(p Params, logger *zap.Logger, hooks Hooks) (optimization.Optimizer, error) {
	cfg := optimization.OptimizerConfig{
		Restarts:      p.Restarts,
		MaxIterations: p.Iterations,
		Workers:       p.Workers,
		Initial:       p.Initial,
		RandomSeed:    p.Seed,
		Verbose:       p.Verbose,
	}

	switch Normalize(p.Algorithm) {
	case HillClimb:
		tb, err := hillclimb.ParseTieBreak(p.TieBreak)
		if err != nil {
			return nil, invalid(err)
		}
		hc, err := hillclimb.New(cfg,
			hillclimb.WithTieBreak(tb),
			hillclimb.WithLogger(logger),
			hillclimb.WithEvaluationHook(hooks.Evaluations))
		if err != nil {
			return nil, err
		}
		return hc, nil
	case Stochastic:
		policy, err := Policy(p)
		if err != nil {
			return nil, invalid(err)
		}
		remap, err := stochastic.ParseRemap(p.Remap)
		if err != nil {
			return nil, invalid(err)
		}
		s, err := stochastic.New(cfg,
			stochastic.WithPolicy(policy),
			stochastic.WithRemap(remap),
			stochastic.WithLogger(logger),
			stochastic.WithEvaluationHook(hooks.Evaluations))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, invalid(fmt.Errorf("unknown algorithm %q", p.Algorithm))
	}
}

// Normalize lowercases an algorithm name and maps the empty name to HillClimb.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return HillClimb
	}
	return name
}

// Policy builds the acceptance policy for the stochastic search.
func Policy(p Params) (acceptance.Policy, error) {
	switch strings.ToLower(strings.TrimSpace(p.Acceptance)) {
	case "", "metropolis":
		temp, cooling := p.Temperature, p.Cooling
		if temp == 0 && cooling == 0 {
			temp, cooling = stochastic.DefaultTemperature, stochastic.DefaultCooling
		}
		return acceptance.NewMetropolis(temp, cooling)
	case "cutoff":
		return acceptance.NewStepCutoff(p.CutoffSteps)
	case "never", "greedy":
		return acceptance.Never{}, nil
	default:
		return nil, fmt.Errorf("unknown acceptance policy %q", p.Acceptance)
	}
}

func invalid(err error) error {
	return optimization.WrapError(optimization.ErrInvalidConfig, err.Error()).WithComponent("strategy")
}
