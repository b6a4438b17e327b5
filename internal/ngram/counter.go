// Package ngram counts symbol windows in text and reads and writes the
// resulting frequency tables.
package ngram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// checkEvery is how many runes Count reads between context checks.
const checkEvery = 4096

// Counter accumulates n-gram counts over normalized text. The window starts
// out holding a single whitespace symbol, so the first letter of a text also
// produces a boundary bigram such as " h".
type Counter struct {
	n      int
	norm   *ternary.Normalizer
	window []byte
	counts ternary.Frequencies
}

// NewCounter creates a Counter for windows of n symbols.
func NewCounter(n int) (*Counter, error) {
	if n < 1 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig, "n-gram size must be positive, got %d", n).
			WithComponent("ngram")
	}
	c := &Counter{
		n:      n,
		norm:   ternary.NewNormalizer(),
		window: make([]byte, 0, n+1),
		counts: make(ternary.Frequencies),
	}
	c.window = append(c.window, byte(ternary.Space))
	return c, nil
}

// Add feeds one character.
func (c *Counter) Add(r rune) {
	s, ok := c.norm.Next(r)
	if !ok {
		return
	}
	c.window = append(c.window, byte(s))
	if len(c.window) > c.n {
		copy(c.window, c.window[1:])
		c.window = c.window[:c.n]
	}
	if len(c.window) < c.n {
		return
	}
	c.counts[string(c.window)]++
}

// AddString feeds every character of s.
func (c *Counter) AddString(s string) {
	for _, r := range s {
		c.Add(r)
	}
}

// ReadFrom feeds every character read from r until EOF.
func (c *Counter) ReadFrom(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	for read := 0; ; read++ {
		if read%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ch, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		c.Add(ch)
	}
}

// Frequencies returns a copy of the counts so far.
func (c *Counter) Frequencies() ternary.Frequencies {
	out := make(ternary.Frequencies, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Count returns the n-gram counts of the text read from r.
func Count(ctx context.Context, r io.Reader, n int) (ternary.Frequencies, error) {
	c, err := NewCounter(n)
	if err != nil {
		return nil, err
	}
	if err := c.ReadFrom(ctx, r); err != nil {
		return nil, err
	}
	return c.Frequencies(), nil
}
