package noise

import (
	"gofestat/internal/errors"
	"gofestat/ports"

	"gonum.org/v1/gonum/mat"
)

// Dense is a full white-noise covariance, e.g. with correlated jitter blocks
// folded in. It is factored once at construction.
type Dense struct {
	n    int
	chol mat.Cholesky
}

var _ ports.NoiseDescriptor = (*Dense)(nil)

// NewDense factors cov. It fails when cov is not positive definite.
func NewDense(cov mat.Symmetric) (*Dense, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "ndense", "empty covariance")
	}
	d := &Dense{n: n}
	if ok := d.chol.Factorize(cov); !ok {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "ndense", "covariance is not positive definite")
	}
	return d, nil
}

// NewBlockJitter builds N = diag(variances) + Σ_b ecorr_b² · 1_b 1_bᵀ where
// epochs[i] assigns TOA i to an observing epoch and ecorr is per epoch.
func NewBlockJitter(variances []float64, epochs []int, ecorr []float64) (*Dense, error) {
	n := len(variances)
	if len(epochs) != n {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "epochs", "%d epoch labels for %d TOAs", len(epochs), n)
	}
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, variances[i])
	}
	for i := 0; i < n; i++ {
		ei := epochs[i]
		if ei < 0 || ei >= len(ecorr) {
			return nil, errors.ShapeMismatch(errors.NoPulsar, "epochs", "TOA %d references epoch %d of %d", i, ei, len(ecorr))
		}
		for j := i; j < n; j++ {
			if epochs[j] == ei {
				cov.SetSym(i, j, cov.At(i, j)+ecorr[ei]*ecorr[ei])
			}
		}
	}
	return NewDense(cov)
}

// NTOA returns the dimension of N
func (d *Dense) NTOA() int {
	return d.n
}

// Solve returns leftᵀ · N⁻¹ · rhs
func (d *Dense) Solve(rhs, left mat.Matrix) (*mat.Dense, error) {
	if err := checkSolveShapes(d.n, rhs, left); err != nil {
		return nil, err
	}
	var ninv mat.Dense
	if err := d.chol.SolveTo(&ninv, rhs); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, errors.LinearAlgebra(errors.NoPulsar, "ndense", "solve failed: %v", err)
		}
	}
	var out mat.Dense
	out.Mul(left.T(), &ninv)
	return &out, nil
}
