// Package encoder applies a finalized arrangement to text, producing a
// stream of ternary digit triples, and inverts that stream.
package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

const checkEvery = 4096

// Options controls the output stream.
type Options struct {
	// Separator is written between consecutive triples
	Separator string
	// OmitSpaces drops the whitespace code 000 from the output
	OmitSpaces bool
}

// Encoder maps normalized text onto codes.
type Encoder struct {
	codes [ternary.NumSymbols]ternary.Code
	opts  Options
}

// New creates an Encoder for arr.
func New(arr ternary.Arrangement, opts Options) (*Encoder, error) {
	if err := arr.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{codes: arr.Codes(), opts: opts}, nil
}

// NewFromLetters creates an Encoder from the compact 26 letter mapping.
func NewFromLetters(letters string, opts Options) (*Encoder, error) {
	arr, err := ternary.ParseArrangement(letters)
	if err != nil {
		return nil, err
	}
	return New(arr, opts)
}

// Encode reads text from r and writes the code stream to w, followed by a
// newline.
func (e *Encoder) Encode(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	norm := ternary.NewNormalizer()

	first := true
	for read := 0; ; read++ {
		if read%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ch, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}

		s, ok := norm.Next(ch)
		if !ok || (s == ternary.Space && e.opts.OmitSpaces) {
			continue
		}
		if !first {
			bw.WriteString(e.opts.Separator)
		}
		first = false
		bw.WriteString(e.codes[s.Index()].String())
	}

	bw.WriteByte('\n')
	return bw.Flush()
}

// EncodeString encodes s without the trailing newline.
func (e *Encoder) EncodeString(s string) string {
	var b strings.Builder
	_ = e.Encode(context.Background(), strings.NewReader(s), &b)
	return strings.TrimSuffix(b.String(), "\n")
}

// Decode inverts an encoded stream. With an empty separator the stream is
// split into fixed width triples. Surrounding whitespace and one separator
// after the last triple are ignored.
func Decode(stream string, arr ternary.Arrangement, separator string) (string, error) {
	if err := arr.Validate(); err != nil {
		return "", err
	}
	stream = strings.TrimSpace(stream)
	if sep := strings.TrimSpace(separator); sep != "" {
		stream = strings.TrimSuffix(stream, sep)
	}
	if stream == "" {
		return "", nil
	}

	var tokens []string
	if separator == "" {
		if len(stream)%ternary.TritsPerCode != 0 {
			return "", fmt.Errorf("encoded stream length %d is not a multiple of %d", len(stream), ternary.TritsPerCode)
		}
		for i := 0; i < len(stream); i += ternary.TritsPerCode {
			tokens = append(tokens, stream[i:i+ternary.TritsPerCode])
		}
	} else {
		tokens = strings.Split(stream, separator)
	}

	out := make([]byte, 0, len(tokens))
	for k, tok := range tokens {
		c, err := ternary.ParseCode(tok)
		if err != nil {
			return "", fmt.Errorf("token %d: %w", k, err)
		}
		out = append(out, byte(arr[c]))
	}
	return string(out), nil
}
