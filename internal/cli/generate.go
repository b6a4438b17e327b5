package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/TRITMAP/internal/logging"
	"github.com/copyleftdev/TRITMAP/internal/mapping"
	"github.com/copyleftdev/TRITMAP/internal/ngram"
	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/optimization/strategy"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

type generateOptions struct {
	iterations int
	pretty     bool
	score      string
	algorithm  string
	seed       int64
	workers    int
	tieBreak   string
	acceptance string
	initial    string
	format     string
}

// generateCommand creates the generate command that searches for a mapping.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <frequencies>",
		Short: "Generate a letter to ternary code mapping",
		Long: `Search for the mapping that maximizes the frequency weighted pair score of a
bigram table and print it as "<letters>:<normalized score>", or as a report
with --pretty. With --score the given mapping is scored instead.

The hillclimb algorithm runs --iterations random restarts, each improved by
sweeps of pairwise swaps. The stochastic algorithm runs --iterations random
swaps from --initial (alphabetical by default).`,
		Example: `  # Best of 100 restarts
  tritmap generate bigrams.json

  # Reproducible stochastic search, pretty printed
  tritmap generate bigrams.json -a stochastic -n 20000 --seed 7 -p

  # Score an existing mapping
  tritmap generate bigrams.json --score etaoinshrdlcumwfgypbvkjxqz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.iterations, "iterations", "n", 0, "restarts (hillclimb) or trial swaps (stochastic); 0 uses OPT_RESTARTS or OPT_ITERATIONS")
	cmd.Flags().BoolVarP(&opts.pretty, "pretty", "p", false, "pretty-print the mapping, default compact format")
	cmd.Flags().StringVar(&opts.score, "score", "", "score an existing mapping instead of generating one")
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "search algorithm: hillclimb or stochastic")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed; 0 picks one from the clock")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "restarts evaluated concurrently")
	cmd.Flags().StringVar(&opts.tieBreak, "tie-break", "", "equal trial scores: last or first")
	cmd.Flags().StringVar(&opts.acceptance, "acceptance", "", "stochastic acceptance policy: metropolis, cutoff or never")
	cmd.Flags().StringVar(&opts.initial, "initial", "", "starting mapping of the stochastic search")
	cmd.Flags().StringVar(&opts.format, "format", "", "frequency table format: json or yaml (by extension if empty)")

	return cmd
}

func (c *CLI) loadFrequencies(path, format string) (ternary.Frequencies, error) {
	f := ngram.FormatFromPath(path)
	if format != "" {
		var err error
		if f, err = ngram.ParseFormat(format); err != nil {
			return nil, err
		}
	}

	in, err := c.openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return ngram.Decode(in, f)
}

func (c *CLI) params(opts generateOptions) (strategy.Params, error) {
	p := strategy.ParamsFromConfig(c.cfg)
	if opts.algorithm != "" {
		p.Algorithm = opts.algorithm
	}
	p.Algorithm = strategy.Normalize(p.Algorithm)
	if opts.iterations != 0 {
		if p.Algorithm == strategy.Stochastic {
			p.Iterations = opts.iterations
		} else {
			p.Restarts = opts.iterations
		}
	}
	if opts.seed != 0 {
		p.Seed = opts.seed
	}
	if opts.workers != 0 {
		p.Workers = opts.workers
	}
	if opts.tieBreak != "" {
		p.TieBreak = opts.tieBreak
	}
	if opts.acceptance != "" {
		p.Acceptance = opts.acceptance
	}
	if opts.initial != "" {
		arr, err := ternary.ParseArrangement(opts.initial)
		if err != nil {
			return p, fmt.Errorf("initial mapping: %w", err)
		}
		p.Initial = &arr
	}
	if p.Restarts < 0 || p.Iterations < 0 || p.Workers < 0 {
		return p, fmt.Errorf("%w: iterations and workers must be non-negative", optimization.ErrInvalidConfig)
	}
	p.Verbose = c.verbose
	return p, nil
}

func (c *CLI) runGenerate(cmd *cobra.Command, path string, opts generateOptions) error {
	freq, err := c.loadFrequencies(path, opts.format)
	if err != nil {
		return err
	}
	if freq.Total() == 0 {
		return fmt.Errorf("%s: %w", path, optimization.ErrDegenerateFrequencies)
	}

	var artifact *mapping.Artifact
	if opts.score != "" {
		artifact, err = scoreMapping(freq, opts.score)
	} else {
		artifact, err = c.search(cmd.Context(), freq, opts)
	}
	if err != nil {
		return err
	}

	if opts.pretty {
		return artifact.WriteVerbose(c.out)
	}
	line, err := artifact.Compact()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, line)
	return err
}

func scoreMapping(freq ternary.Frequencies, letters string) (*mapping.Artifact, error) {
	arr, err := ternary.ParseArrangement(letters)
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(freq)
	if err != nil {
		return nil, err
	}
	return mapping.New(arr, scorer.Score(&arr), scorer.Total())
}

func (c *CLI) search(ctx context.Context, freq ternary.Frequencies, opts generateOptions) (*mapping.Artifact, error) {
	p, err := c.params(opts)
	if err != nil {
		return nil, err
	}
	optimizer, err := strategy.New(p, logging.NewZapLogger(c.Logger), strategy.Hooks{})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := optimizer.Optimize(ctx, freq)
	if err != nil {
		if errors.Is(err, context.Canceled) && result != nil && result.BestSolution != nil {
			c.Logger.Warn("Search interrupted", map[string]interface{}{
				"best_mapping": result.BestSolution.Arrangement.Letters(),
				"iterations":   result.Iterations,
			})
		}
		return nil, err
	}

	c.Logger.Info("Generated mapping", map[string]interface{}{
		"algorithm": p.Algorithm,
		"seed":      result.Seed,
		"elapsed":   time.Since(start).Round(time.Millisecond).String(),
	})
	return mapping.FromResult(result, float64(freq.Total()), p.Algorithm)
}
