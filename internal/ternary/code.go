package ternary

import (
	"fmt"
	"strings"
)

const (
	// TritsPerCode is the fixed code length.
	TritsPerCode = 3
	// NumCodes is the number of distinct codes, 3^3.
	NumCodes = 27
)

// Code is an index into the code space. Codes enumerate trit triples in
// lexicographic base-3 order, so Code(5) is 012.
type Code int

var codeStrings = func() [NumCodes]string {
	var out [NumCodes]string
	for c := Code(0); c < NumCodes; c++ {
		t := c.Trits()
		out[c] = fmt.Sprintf("%d%d%d", t[0], t[1], t[2])
	}
	return out
}()

// Valid reports whether c lies in [0, NumCodes).
func (c Code) Valid() bool {
	return c >= 0 && c < NumCodes
}

// Trits returns the three base-3 digits of c, most significant first.
func (c Code) Trits() [TritsPerCode]uint8 {
	return [TritsPerCode]uint8{uint8(c / 9), uint8(c / 3 % 3), uint8(c % 3)}
}

// String renders the code as an ASCII digit triple such as "012".
func (c Code) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeStrings[c]
}

// ParseCode parses a three character digit string over {0,1,2}.
func ParseCode(s string) (Code, error) {
	if len(s) != TritsPerCode || strings.Trim(s, "012") != "" {
		return 0, fmt.Errorf("invalid ternary code %q", s)
	}
	return Code((s[0]-'0')*9 + (s[1]-'0')*3 + (s[2] - '0')), nil
}
