package scoring

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// windowLen is the number of trits in a concatenated pair of codes.
const windowLen = 2 * ternary.TritsPerCode

// PairCostTable holds the cost of every ordered pair of codes. It depends on
// code structure alone and is never mutated after construction.
type PairCostTable struct {
	data []float64
}

var (
	pairCostOnce  sync.Once
	pairCostTable *PairCostTable
)

// PairCost returns the process wide pair cost table, building it on first use.
func PairCost() *PairCostTable {
	pairCostOnce.Do(func() {
		pairCostTable = newPairCostTable()
	})
	return pairCostTable
}

func newPairCostTable() *PairCostTable {
	m := mat.NewDense(ternary.NumCodes, ternary.NumCodes, nil)
	for i := ternary.Code(0); i < ternary.NumCodes; i++ {
		for j := ternary.Code(0); j < ternary.NumCodes; j++ {
			w := window(i, j)
			m.Set(int(i), int(j), Balance(w)*Spread(w))
		}
	}
	return &PairCostTable{data: m.RawMatrix().Data}
}

// At returns the cost of code i followed by code j.
func (t *PairCostTable) At(i, j ternary.Code) float64 {
	return t.data[int(i)*ternary.NumCodes+int(j)]
}

func window(i, j ternary.Code) []uint8 {
	a, b := i.Trits(), j.Trits()
	w := make([]uint8, 0, windowLen)
	w = append(w, a[:]...)
	return append(w, b[:]...)
}

// Balance is the base-3 Shannon entropy of the trit value distribution in w.
// It is 1 when all three values are equally frequent and 0 when w is constant.
func Balance(w []uint8) float64 {
	if len(w) == 0 {
		return 0
	}
	var counts [3]float64
	for _, v := range w {
		counts[v]++
	}
	p := make([]float64, 0, 3)
	for _, c := range counts {
		p = append(p, c/float64(len(w)))
	}
	// stat.Entropy skips zero probabilities and uses the natural log.
	return stat.Entropy(p) / math.Log(3)
}

// Spread is the fraction of adjacent positions in w holding different values.
func Spread(w []uint8) float64 {
	if len(w) < 2 {
		return 0
	}
	changes := 0
	for k := 1; k < len(w); k++ {
		if w[k] != w[k-1] {
			changes++
		}
	}
	return float64(changes) / float64(len(w)-1)
}
