package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/TRITMAP/internal/logging"
	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/kernels"
	"github.com/copyleftdev/TRITMAP/internal/optimization/stochastic"
	"github.com/copyleftdev/TRITMAP/internal/optimization/tuning"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

type tuneOptions struct {
	iterations    int
	repeats       int
	evaluations   int
	initialPoints int
	seed          int64
	initial       string
	kernel        string
	format        string
	report        bool
}

// tuneCommand creates the tune command that picks a Metropolis schedule.
func (c *CLI) tuneCommand() *cobra.Command {
	var opts tuneOptions

	cmd := &cobra.Command{
		Use:   "tune <frequencies>",
		Short: "Tune the stochastic search temperature schedule",
		Long: `Search for the Metropolis start temperature and cooling factor under which
the stochastic search reaches the highest mean normalized score on a bigram
table. Each candidate schedule is scored by --repeats seeded runs of
--iterations trial swaps; candidates are proposed by Bayesian optimization.

The result is printed as environment assignments that can be saved to .env,
or as a YAML report of every trial with --report.`,
		Example: `  # Tune and keep the schedule for later generate runs
  tritmap tune bigrams.json --seed 3 > .env

  # Full report of a longer tuning run
  tritmap tune bigrams.json -n 20000 --evaluations 30 --report

  # Smoother surrogate
  tritmap tune bigrams.json --kernel rbf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTune(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.iterations, "iterations", "n", 0, "trial swaps per run; 0 uses OPT_ITERATIONS")
	cmd.Flags().IntVar(&opts.repeats, "repeats", tuning.DefaultRepeats, "seeded runs averaged per schedule")
	cmd.Flags().IntVar(&opts.evaluations, "evaluations", tuning.DefaultEvaluations, "schedules proposed by the surrogate model")
	cmd.Flags().IntVar(&opts.initialPoints, "initial-points", 0, "schedules sampled before the model is used")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed; 0 uses OPT_SEED or the clock")
	cmd.Flags().StringVar(&opts.initial, "initial", "", "starting mapping of every run")
	cmd.Flags().StringVar(&opts.kernel, "kernel", kernels.Matern52,
		fmt.Sprintf("surrogate covariance: %s", strings.Join(kernels.Names, " or ")))
	cmd.Flags().StringVar(&opts.format, "format", "", "frequency table format: json or yaml (by extension if empty)")
	cmd.Flags().BoolVar(&opts.report, "report", false, "print every trial as YAML")

	return cmd
}

func (c *CLI) tuneConfig(opts tuneOptions) (tuning.Config, error) {
	o := c.cfg.Optimization
	config := tuning.Config{
		Iterations:    o.Iterations,
		Repeats:       opts.repeats,
		Evaluations:   opts.evaluations,
		InitialPoints: opts.initialPoints,
		Kernel:        opts.kernel,
		Seed:          o.Seed,
	}
	if opts.iterations != 0 {
		config.Iterations = opts.iterations
	}
	if opts.seed != 0 {
		config.Seed = opts.seed
	}
	if opts.initial != "" {
		arr, err := ternary.ParseArrangement(opts.initial)
		if err != nil {
			return config, fmt.Errorf("initial mapping: %w", err)
		}
		config.Initial = &arr
	}
	remap, err := stochastic.ParseRemap(o.Remap)
	if err != nil {
		return config, fmt.Errorf("%w: %v", optimization.ErrInvalidConfig, err)
	}
	config.Remap = remap
	return config, nil
}

func (c *CLI) runTune(cmd *cobra.Command, path string, opts tuneOptions) error {
	freq, err := c.loadFrequencies(path, opts.format)
	if err != nil {
		return err
	}
	config, err := c.tuneConfig(opts)
	if err != nil {
		return err
	}

	result, err := tuning.TuneMetropolis(cmd.Context(), freq, config, logging.NewZapLogger(c.Logger))
	if err != nil {
		return err
	}

	if opts.report {
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}

	env, err := godotenv.Marshal(map[string]string{
		"OPT_ACCEPTANCE":  "metropolis",
		"OPT_TEMPERATURE": strconv.FormatFloat(result.Best.Temperature, 'g', 6, 64),
		"OPT_COOLING":     strconv.FormatFloat(result.Best.Cooling, 'g', 8, 64),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, env)
	return err
}
