// Package cli implements the tritmap command-line interface.
//
// The commands mirror the mapping pipeline:
//   - count: count n-grams of a text into a frequency table
//   - generate: search for a letter to code mapping, or score a given one
//   - encode: apply a mapping to text, producing ternary digit triples
//   - decode: turn a digit stream back into normalized text
//   - tune: pick the stochastic search temperature schedule for a table
//
// Defaults come from the environment (see internal/config); flags override
// them. Logs go to stderr so that command output can be piped.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/TRITMAP/internal/config"
	"github.com/copyleftdev/TRITMAP/internal/logging"
)

const appName = "tritmap"

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *logging.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	cfg    *config.Config

	verbose bool
	quiet   bool
}

// New creates a CLI reading from in and writing command output to out and
// logs to errOut.
func New(in io.Reader, out, errOut io.Writer) *CLI {
	return &CLI{
		Logger: logging.NewWithFormat(logging.InfoLevel, logging.TextFormat, errOut),
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Tritmap assigns letters to ternary codes",
		Long: `Tritmap searches for an assignment of the 26 letters to the non-zero
three-trit codes that maximizes a frequency weighted balance and spread score
over adjacent code pairs, and encodes text with the resulting mapping.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "only log warnings and errors")

	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(c.countCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.encodeCommand())
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.tuneCommand())

	return root
}

// setup loads the configuration and rebuilds the logger from it.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	c.cfg = cfg

	level := logging.ParseLevel(cfg.Logging.Level)
	switch {
	case c.verbose:
		level = logging.DebugLevel
	case c.quiet:
		level = logging.WarnLevel
	}

	format := logging.TextFormat
	if config.GetEnv("LOG_FORMAT", "") != "" {
		format = logging.ParseFormat(cfg.Logging.Format)
	}
	c.Logger = logging.NewWithFormat(level, format, c.errOut)
	return nil
}

// openInput opens path for reading; "" and "-" mean the CLI input stream.
func (c *CLI) openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(c.in), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// createOutput opens path for writing; "" and "-" mean the CLI output stream.
func (c *CLI) createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{c.out}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// inputArg returns the optional single positional path argument.
func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
