package stochastic

import (
	"fmt"
	"strings"

	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// Remap replaces the second slot of a draw when both slots coincide. It must
// return a slot in [1, 26] different from i.
type Remap func(i, j int) int

// MultiplicativeRemap maps j to max(1, 17*j mod 26). That leaves 13 fixed, so
// a remap that still collides moves on to the next slot.
func MultiplicativeRemap(i, j int) int {
	r := max(1, (17*j)%ternary.NumLetters)
	if r == i {
		return NextSlotRemap(i, r)
	}
	return r
}

// NextSlotRemap moves j to the following non-whitespace slot, wrapping 26 to 1.
func NextSlotRemap(_, j int) int {
	return j%ternary.NumLetters + 1
}

// ParseRemap parses "multiplicative" or "next".
func ParseRemap(s string) (Remap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multiplicative":
		return MultiplicativeRemap, nil
	case "next":
		return NextSlotRemap, nil
	default:
		return nil, fmt.Errorf("unknown remap %q", s)
	}
}
