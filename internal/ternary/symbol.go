// Package ternary defines the symbol alphabet, the 3-trit code space and the
// symbol-to-code arrangements that the mapping optimizers search over.
package ternary

import "errors"

// Symbol is one of the 26 lowercase letters or the whitespace sentinel.
type Symbol byte

const (
	// Space is the whitespace sentinel. It is always assigned code 000.
	Space Symbol = ' '

	// NumLetters is the number of non-whitespace symbols.
	NumLetters = 26
	// NumSymbols is the size of the alphabet, whitespace included.
	NumSymbols = NumLetters + 1
)

// Letters lists the non-whitespace symbols in alphabetical order.
const Letters = "abcdefghijklmnopqrstuvwxyz"

// ErrInvalidArrangement is returned for mappings that are not a bijection
// between the alphabet and the code space.
var ErrInvalidArrangement = errors.New("invalid arrangement")

// IsLetter reports whether s is one of the 26 lowercase letters.
func (s Symbol) IsLetter() bool {
	return s >= 'a' && s <= 'z'
}

// Valid reports whether s belongs to the alphabet.
func (s Symbol) Valid() bool {
	return s == Space || s.IsLetter()
}

// Index returns the position of s in the alphabet: 0 for whitespace and
// 1..26 for 'a'..'z'. It returns -1 for symbols outside the alphabet.
func (s Symbol) Index() int {
	switch {
	case s == Space:
		return 0
	case s.IsLetter():
		return int(s-'a') + 1
	default:
		return -1
	}
}

// String renders whitespace as "_" so reports stay readable.
func (s Symbol) String() string {
	if s == Space {
		return "_"
	}
	return string(rune(s))
}
