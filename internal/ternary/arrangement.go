package ternary

import (
	"fmt"
	"math/rand"
	"strings"
)

// Arrangement assigns a symbol to each code. The array index is the code, so
// a[0] is always Space and a[1..26] is a permutation of the letters.
type Arrangement [NumCodes]Symbol

// Identity returns the arrangement that assigns letters in alphabetical order.
func Identity() Arrangement {
	a, _ := ParseArrangement(Letters)
	return a
}

// RandomArrangement draws a uniformly random permutation of the letters into
// the 26 non-whitespace codes.
func RandomArrangement(rng *rand.Rand) Arrangement {
	var a Arrangement
	a[0] = Space
	for k, p := range rng.Perm(NumLetters) {
		a[k+1] = Symbol(Letters[p])
	}
	return a
}

// ParseArrangement builds an arrangement from the compact 26 letter form,
// where the first letter receives code 001 and the last 222.
func ParseArrangement(letters string) (Arrangement, error) {
	var a Arrangement
	if len(letters) != NumLetters {
		return a, fmt.Errorf("%w: expected %d letters, got %d", ErrInvalidArrangement, NumLetters, len(letters))
	}
	a[0] = Space
	var seen [NumSymbols]bool
	for k := 0; k < NumLetters; k++ {
		s := Symbol(letters[k])
		if !s.IsLetter() {
			return a, fmt.Errorf("%w: %q is not a lowercase letter", ErrInvalidArrangement, letters[k])
		}
		if seen[s.Index()] {
			return a, fmt.Errorf("%w: duplicate letter %q", ErrInvalidArrangement, letters[k])
		}
		seen[s.Index()] = true
		a[k+1] = s
	}
	return a, nil
}

// Validate checks the bijection invariant.
func (a *Arrangement) Validate() error {
	if a[0] != Space {
		return fmt.Errorf("%w: code 000 must hold whitespace, got %q", ErrInvalidArrangement, byte(a[0]))
	}
	var seen [NumSymbols]bool
	for c := 1; c < NumCodes; c++ {
		s := a[c]
		if !s.IsLetter() {
			return fmt.Errorf("%w: code %s holds %q", ErrInvalidArrangement, Code(c), byte(s))
		}
		if seen[s.Index()] {
			return fmt.Errorf("%w: letter %q assigned twice", ErrInvalidArrangement, byte(s))
		}
		seen[s.Index()] = true
	}
	return nil
}

// Swap exchanges the symbols held by codes i and j.
func (a *Arrangement) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
}

// Codes returns the inverse lookup: the code of every symbol, indexed by
// Symbol.Index.
func (a *Arrangement) Codes() [NumSymbols]Code {
	var out [NumSymbols]Code
	for c, s := range a {
		out[s.Index()] = Code(c)
	}
	return out
}

// Letters returns the compact form: the letters ordered by code 001..222.
func (a *Arrangement) Letters() string {
	var b strings.Builder
	b.Grow(NumLetters)
	for _, s := range a[1:] {
		b.WriteByte(byte(s))
	}
	return b.String()
}

func (a Arrangement) String() string {
	return a.Letters()
}
