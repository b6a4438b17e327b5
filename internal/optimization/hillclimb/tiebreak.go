package hillclimb

import (
	"fmt"
	"strings"
)

// TieBreak decides whether a trial score replaces the best score tracked
// while scanning swap partners for one code.
type TieBreak int

const (
	// PreferLast accepts equal scores, so among tied partners the last one
	// scanned (the largest code) wins.
	PreferLast TieBreak = iota
	// PreferFirst only accepts strict improvements, so the first tied partner
	// scanned wins.
	PreferFirst
)

// Better reports whether candidate should replace incumbent.
func (t TieBreak) Better(candidate, incumbent float64) bool {
	if t == PreferFirst {
		return candidate > incumbent
	}
	return candidate >= incumbent
}

func (t TieBreak) String() string {
	switch t {
	case PreferLast:
		return "last"
	case PreferFirst:
		return "first"
	default:
		return fmt.Sprintf("TieBreak(%d)", int(t))
	}
}

// ParseTieBreak parses "last" or "first".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return PreferLast, nil
	case "first":
		return PreferFirst, nil
	default:
		return PreferLast, fmt.Errorf("unknown tie break %q", s)
	}
}
