// Package optimizationtest provides fixtures and assertions shared by the
// optimizer tests.
package optimizationtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// SmallFrequencies is a four entry bigram table.
func SmallFrequencies() ternary.Frequencies {
	return ternary.Frequencies{"th": 100, "he": 50, "e ": 30, " t": 30}
}

// EnglishBigrams returns a rough table of common English bigrams, whitespace
// boundaries included.
func EnglishBigrams() ternary.Frequencies {
	return ternary.Frequencies{
		"th": 356, "he": 307, "in": 243, "er": 205, "an": 199, "re": 185,
		"on": 176, "at": 149, "en": 145, "nd": 135, "ti": 134, "es": 134,
		"or": 128, "te": 120, "of": 117, "ed": 117, "is": 113, "it": 112,
		"al": 109, "ar": 107, "st": 105, "to": 104, "nt": 104, "ng": 95,
		"se": 93, "ha": 93, "as": 87, "ou": 87, "io": 83, "le": 83,
		"ve": 83, "co": 79, "me": 79, "de": 76, "hi": 76, "ri": 73,
		"ro": 73, "ic": 70, "ne": 69, "ea": 69, "ra": 69, "ce": 65,
		"e ": 390, " t": 270, "s ": 260, "d ": 190, " a": 180, "n ": 160,
		" o": 120, "y ": 110, " i": 105, " s": 100, "t ": 98, " w": 80,
		"r ": 78, " c": 70, "f ": 60, " b": 55, "qu": 9, "zy": 2, "jo": 6,
		"ex": 12, "xp": 4, "kn": 5, "wh": 40, "ly": 45, "ck": 20,
	}
}

// RequireBijection fails the test unless a maps whitespace to code 000 and
// the 26 letters to distinct non-zero codes.
func RequireBijection(t testing.TB, a ternary.Arrangement) {
	t.Helper()

	require.NoError(t, a.Validate())
	codes := a.Codes()
	require.Equal(t, ternary.Code(0), codes[ternary.Space.Index()])

	seen := make(map[ternary.Code]bool, ternary.NumCodes)
	for _, c := range codes {
		require.False(t, seen[c], "code %s assigned twice", c)
		seen[c] = true
	}
}

// RequireNonDecreasing fails the test if scores ever decrease.
func RequireNonDecreasing(t testing.TB, scores []float64) {
	t.Helper()

	for i := 1; i < len(scores); i++ {
		require.GreaterOrEqual(t, scores[i], scores[i-1], "score decreased at step %d", i)
	}
}
