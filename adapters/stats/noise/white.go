// Package noise provides white-noise covariance descriptors for the
// Fe-statistic engine.
package noise

import (
	"math"

	"gofestat/internal/errors"
	"gofestat/ports"

	"gonum.org/v1/gonum/mat"
)

// White is a diagonal covariance N = diag(variances)
type White struct {
	variances []float64
}

var _ ports.NoiseDescriptor = (*White)(nil)

// NewWhite builds a diagonal descriptor. Every variance must be positive and finite.
func NewWhite(variances []float64) (*White, error) {
	if len(variances) == 0 {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "ndiag", "no variances")
	}
	for i, v := range variances {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, errors.LinearAlgebra(errors.NoPulsar, "ndiag", "variance %d is %g", i, v)
		}
	}
	cp := make([]float64, len(variances))
	copy(cp, variances)
	return &White{variances: cp}, nil
}

// NewWhiteFromErrors builds N from TOA uncertainties with EFAC/EQUAD:
// σ² = (efac·err)² + equad².
func NewWhiteFromErrors(toaErrs []float64, efac, equad float64) (*White, error) {
	v := make([]float64, len(toaErrs))
	for i, e := range toaErrs {
		v[i] = efac*efac*e*e + equad*equad
	}
	return NewWhite(v)
}

// NTOA returns the dimension of N
func (w *White) NTOA() int {
	return len(w.variances)
}

// Variances returns a copy of the diagonal
func (w *White) Variances() []float64 {
	out := make([]float64, len(w.variances))
	copy(out, w.variances)
	return out
}

// Solve returns leftᵀ · N⁻¹ · rhs
func (w *White) Solve(rhs, left mat.Matrix) (*mat.Dense, error) {
	if err := checkSolveShapes(w.NTOA(), rhs, left); err != nil {
		return nil, err
	}
	r, c := rhs.Dims()
	scaled := mat.NewDense(r, c, nil)
	scaled.Apply(func(i, j int, v float64) float64 {
		return v / w.variances[i]
	}, rhs)

	var out mat.Dense
	out.Mul(left.T(), scaled)
	return &out, nil
}

func checkSolveShapes(ntoa int, rhs, left mat.Matrix) error {
	if r, _ := rhs.Dims(); r != ntoa {
		return errors.ShapeMismatch(errors.NoPulsar, "rhs", "%d rows for %d TOAs", r, ntoa)
	}
	if r, _ := left.Dims(); r != ntoa {
		return errors.ShapeMismatch(errors.NoPulsar, "left", "%d rows for %d TOAs", r, ntoa)
	}
	return nil
}
