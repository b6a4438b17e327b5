package ternary

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer maps a character stream onto the alphabet. A character is a
// letter when its full lowercase form is a single letter a-z, so 'K' and
// the Kelvin sign become 'k' while 'İ', which lowercases to two runes, does
// not. Every other character becomes whitespace and runs of whitespace
// collapse into a single symbol. The stream is treated as if preceded by
// whitespace, so leading boundaries are dropped.
type Normalizer struct {
	prev  Symbol
	lower cases.Caser
}

// NewNormalizer returns a Normalizer positioned at the start of a stream.
func NewNormalizer() *Normalizer {
	return &Normalizer{prev: Space, lower: cases.Lower(language.Und)}
}

// Next maps r and reports whether it produced a symbol. A false result means
// r was a boundary merged into the preceding one.
func (n *Normalizer) Next(r rune) (Symbol, bool) {
	s := Space
	switch {
	case r >= 'a' && r <= 'z':
		s = Symbol(r)
	case r >= 'A' && r <= 'Z':
		s = Symbol(r + 'a' - 'A')
	case r >= utf8.RuneSelf:
		if l := n.lower.String(string(r)); len(l) == 1 && l[0] >= 'a' && l[0] <= 'z' {
			s = Symbol(l[0])
		}
	}
	if s == Space && n.prev == Space {
		return 0, false
	}
	n.prev = s
	return s, true
}

// NormalizeString applies a fresh Normalizer to s.
func NormalizeString(s string) string {
	n := NewNormalizer()
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if sym, ok := n.Next(r); ok {
			out = append(out, byte(sym))
		}
	}
	return string(out)
}
