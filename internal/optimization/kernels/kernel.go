// Package kernels provides covariance functions for the Gaussian process
// surrogate used when tuning search parameters.
package kernels

import (
	"fmt"
	"math"
	"strings"
)

// Kernel represents a kernel function for Gaussian Processes
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2
	Eval(x1, x2 []float64) float64

	// Hyperparameters returns the length scale and signal variance
	Hyperparameters() []float64
}

// Kernel names accepted by New
const (
	RBF      = "rbf"
	Matern52 = "matern52"
)

// Names lists the kernels New accepts.
var Names = []string{RBF, Matern52}

// New creates the kernel called name. An empty name selects Matérn 5/2.
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RBF:
		return NewRBFKernel(lengthScale, signalVar)
	case Matern52, "":
		return NewMatern52Kernel(lengthScale, signalVar)
	default:
		return nil, fmt.Errorf("unknown kernel %q, expected one of %s", name, strings.Join(Names, ", "))
	}
}

// params holds the length scale and signal variance shared by the
// stationary kernels below.
type params struct {
	// Length scale parameter (larger = smoother function)
	lengthScale float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

func newParams(lengthScale, signalVar float64) (params, error) {
	if !(lengthScale > 0) || !(signalVar > 0) {
		return params{}, fmt.Errorf("kernel hyperparameters must be positive, got length scale %v and signal variance %v",
			lengthScale, signalVar)
	}
	return params{lengthScale: lengthScale, signalVar: signalVar}, nil
}

func (p *params) Hyperparameters() []float64 {
	return []float64{p.lengthScale, p.signalVar}
}

// scaledDistance returns |x1 - x2| / lengthScale.
func (p *params) scaledDistance(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq) / p.lengthScale
}

// RBFKernel implements the Radial Basis Function (squared exponential) kernel
type RBFKernel struct {
	params
}

// NewRBFKernel creates a new RBF kernel with the given parameters
func NewRBFKernel(lengthScale, signalVar float64) (*RBFKernel, error) {
	p, err := newParams(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	return &RBFKernel{params: p}, nil
}

// Eval computes signalVar * exp(-r²/2) with r the scaled distance
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r := k.scaledDistance(x1, x2)
	return k.signalVar * math.Exp(-0.5*r*r)
}

// Matern52Kernel implements the Matérn 5/2 kernel. It is the default for
// the tuner: search outcomes are rougher than an RBF prior assumes.
type Matern52Kernel struct {
	params
}

// NewMatern52Kernel creates a new Matérn 5/2 kernel with the given parameters
func NewMatern52Kernel(lengthScale, signalVar float64) (*Matern52Kernel, error) {
	p, err := newParams(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	return &Matern52Kernel{params: p}, nil
}

// Eval computes signalVar * (1 + √5r + 5r²/3) * exp(-√5r)
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := k.scaledDistance(x1, x2)
	s := math.Sqrt(5) * r
	return k.signalVar * (1 + s + s*s/3) * math.Exp(-s)
}
