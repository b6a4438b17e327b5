// Package scoring implements the pair cost model and the frequency weighted
// score of an arrangement.
package scoring

import (
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// Scorer evaluates arrangements against one frequency table. It is immutable
// and safe for concurrent use.
type Scorer struct {
	costs *PairCostTable
	// weights[a][b] is the count of symbol a followed by symbol b, indexed by
	// Symbol.Index.
	weights [ternary.NumSymbols][ternary.NumSymbols]float64
	total   float64
}

// NewScorer builds a Scorer for freq. Keys that are not two alphabet symbols
// long contribute to the total but never to the score.
func NewScorer(freq ternary.Frequencies) (*Scorer, error) {
	const op = "NewScorer"

	if err := freq.Validate(); err != nil {
		return nil, optimization.WrapError(optimization.ErrInvalidFrequencies, err.Error()).
			WithComponent("scoring").WithOperation(op)
	}

	s := &Scorer{costs: PairCost()}
	counts := make([]float64, 0, len(freq))
	for _, key := range freq.Keys() {
		v := freq[key]
		counts = append(counts, float64(v))
		if len(key) != 2 {
			continue
		}
		a, b := ternary.Symbol(key[0]).Index(), ternary.Symbol(key[1]).Index()
		if a < 0 || b < 0 {
			continue
		}
		s.weights[a][b] = float64(v)
	}
	s.total = floats.Sum(counts)
	return s, nil
}

// Score returns the sum over all ordered code pairs (p, q) of the count of
// the symbol pair they hold times the pair cost of (p, q).
func (s *Scorer) Score(a *ternary.Arrangement) float64 {
	var idx [ternary.NumCodes]int
	for c, sym := range a {
		idx[c] = sym.Index()
	}

	data := s.costs.data
	total := 0.0
	for p := 0; p < ternary.NumCodes; p++ {
		row := &s.weights[idx[p]]
		costs := data[p*ternary.NumCodes : (p+1)*ternary.NumCodes]
		for q, cost := range costs {
			total += row[idx[q]] * cost
		}
	}
	return total
}

// Total returns the sum of all frequency counts.
func (s *Scorer) Total() float64 {
	return s.total
}

// Normalize divides a raw score by the frequency total. It fails with
// ErrDegenerateFrequencies when the total is zero.
func (s *Scorer) Normalize(raw float64) (float64, error) {
	return Normalize(raw, s.total)
}

// Normalize divides raw by total, rejecting a zero total.
func Normalize(raw, total float64) (float64, error) {
	if total <= 0 {
		return 0, optimization.WrapError(optimization.ErrDegenerateFrequencies, "normalize score").
			WithComponent("scoring")
	}
	return raw / total, nil
}
