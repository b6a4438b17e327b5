package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/TRITMAP/internal/encoder"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// encodeCommand creates the encode command that applies a mapping to text.
func (c *CLI) encodeCommand() *cobra.Command {
	var output string
	var letters string
	var opts encoder.Options
	var noSpaces bool

	cmd := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text as ternary digit triples",
		Example: `  tritmap encode story.txt -m etaoinshrdlcumwfgypbvkjxqz -s " "
  echo "hello world" | tritmap encode -x`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OmitSpaces = noSpaces
			enc, err := encoder.NewFromLetters(letters, opts)
			if err != nil {
				return fmt.Errorf("mapping: %w", err)
			}

			in, err := c.openInput(inputArg(args))
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := c.createOutput(output)
			if err != nil {
				return err
			}
			if err := enc.Encode(cmd.Context(), in, out); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&letters, "mapping", "m", ternary.Letters, "mapping alphabet string")
	cmd.Flags().StringVarP(&opts.Separator, "separator", "s", "", "separator between ternary triples")
	cmd.Flags().BoolVarP(&noSpaces, "no-spaces", "x", false, "omit the whitespace code 000")

	return cmd
}

// decodeCommand creates the decode command, the inverse of encode.
func (c *CLI) decodeCommand() *cobra.Command {
	var output string
	var letters string
	var separator string

	cmd := &cobra.Command{
		Use:   "decode [stream]",
		Short: "Decode ternary digit triples back to text",
		Long: `Decode a stream written by encode with the same mapping and separator.
Whitespace decodes to a single space; text encoded with --no-spaces decodes
without word boundaries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arr, err := ternary.ParseArrangement(letters)
			if err != nil {
				return fmt.Errorf("mapping: %w", err)
			}

			in, err := c.openInput(inputArg(args))
			if err != nil {
				return err
			}
			defer in.Close()

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read stream: %w", err)
			}
			text, err := encoder.Decode(strings.TrimRight(string(data), "\r\n"), arr, separator)
			if err != nil {
				return err
			}

			out, err := c.createOutput(output)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, text); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&letters, "mapping", "m", ternary.Letters, "mapping alphabet string")
	cmd.Flags().StringVarP(&separator, "separator", "s", "", "separator between ternary triples")

	return cmd
}
