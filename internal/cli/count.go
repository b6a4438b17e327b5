package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/TRITMAP/internal/ngram"
)

// countCommand creates the count command that builds frequency tables.
func (c *CLI) countCommand() *cobra.Command {
	var n int
	var output string
	var format string

	cmd := &cobra.Command{
		Use:   "count [text]",
		Short: "Count n-grams of normalized text",
		Long: `Count every window of n symbols in a text after lowercasing it, mapping
non-letters to whitespace and collapsing runs of whitespace. The text counts
as preceded by whitespace. The table is written as JSON unless --format or an
output file extension selects YAML.`,
		Example: `  # Bigram table of a corpus
  tritmap count corpus.txt -o bigrams.json

  # Trigrams from stdin as YAML
  cat corpus.txt | tritmap count -n 3 --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := ngram.FormatFromPath(output)
			if format != "" {
				var err error
				if f, err = ngram.ParseFormat(format); err != nil {
					return err
				}
			}

			in, err := c.openInput(inputArg(args))
			if err != nil {
				return err
			}
			defer in.Close()

			start := time.Now()
			freq, err := ngram.Count(cmd.Context(), in, n)
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}

			out, err := c.createOutput(output)
			if err != nil {
				return err
			}
			if err := ngram.Encode(out, freq, f); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			c.Logger.Debug("Counted n-grams", map[string]interface{}{
				"n":        n,
				"distinct": len(freq),
				"total":    freq.Total(),
				"elapsed":  time.Since(start).Round(time.Millisecond).String(),
			})
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "size", "n", 2, "size of n-gram to count")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&format, "format", "", "output format: json or yaml")

	return cmd
}
