// Package mapping renders a finalized arrangement and its score as the
// compact exchange line or a verbose report.
package mapping

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// Artifact is an immutable record of a chosen arrangement.
type Artifact struct {
	Arrangement ternary.Arrangement
	// Score is the raw frequency weighted score
	Score float64
	// Total is the sum of all frequency counts
	Total float64
	// Algorithm names the optimizer that produced the arrangement, if any
	Algorithm string
	// Accepted is the number of accepted swaps for stochastic runs
	Accepted *int
}

// New validates arr and builds an Artifact.
func New(arr ternary.Arrangement, score, total float64) (*Artifact, error) {
	if err := arr.Validate(); err != nil {
		return nil, optimization.WrapError(err, "build artifact").WithComponent("mapping")
	}
	return &Artifact{Arrangement: arr, Score: score, Total: total}, nil
}

// FromResult builds an Artifact from an optimizer result.
func FromResult(result *optimization.OptimizationResult, total float64, algorithm string) (*Artifact, error) {
	if result == nil || result.BestSolution == nil {
		return nil, optimization.NewError("optimization produced no solution").WithComponent("mapping")
	}
	a, err := New(result.BestSolution.Arrangement, result.BestSolution.Score, total)
	if err != nil {
		return nil, err
	}
	a.Algorithm = algorithm
	if algorithm == "stochastic" {
		accepted := result.Accepted
		a.Accepted = &accepted
	}
	return a, nil
}

// Normalized returns Score / Total.
func (a *Artifact) Normalized() (float64, error) {
	return scoring.Normalize(a.Score, a.Total)
}

// Compact returns "<letters>:<normalized score>".
func (a *Artifact) Compact() (string, error) {
	n, err := a.Normalized()
	if err != nil {
		return "", err
	}
	return a.Arrangement.Letters() + ":" + formatScore(n), nil
}

// WriteVerbose writes a multi-line report listing every symbol with its code
// in code order.
func (a *Artifact) WriteVerbose(w io.Writer) error {
	n, err := a.Normalized()
	if err != nil {
		return err
	}

	var b strings.Builder
	if a.Algorithm != "" {
		fmt.Fprintf(&b, "Algorithm: %s\n", a.Algorithm)
	}
	fmt.Fprintf(&b, "Score: %s\n", formatScore(n))
	fmt.Fprintf(&b, "Raw score: %s\n", formatScore(a.Score))
	if a.Accepted != nil {
		fmt.Fprintf(&b, "Accepted swaps: %d\n", *a.Accepted)
	}
	b.WriteString("Mapping:\n\n")
	for c, s := range a.Arrangement {
		fmt.Fprintf(&b, "%s -> %s\n", s, ternary.Code(c))
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// formatScore writes the shortest decimal that reads back as v. Values with
// a decimal exponent in [-4, 16) use fixed notation with at least one
// fractional digit, so 1 is "1.0", 1e-4 is "0.0001" and 1e-5 is "1e-05".
func formatScore(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	fixed := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(fixed, ".") {
		fixed += ".0"
	}
	return fixed
}
