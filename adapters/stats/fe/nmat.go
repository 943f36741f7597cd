package fe

import (
	"gofestat/internal/errors"
	"gofestat/ports"

	"gonum.org/v1/gonum/mat"
)

// BuildMarginalizedNoise returns the dense n_toa x n_toa matrix
//
//	N⁻¹ − (Tᵀ N⁻¹)ᵀ Σ⁻¹ (Tᵀ N⁻¹),  Σ = TNT + Φ⁻¹
//
// i.e. the inverse of N + T Φ Tᵀ by the Woodbury identity. The result is
// symmetric by construction; the two triangles are averaged to remove rounding
// asymmetry.
func BuildMarginalizedNoise(phiinv mat.Matrix, tnt mat.Symmetric, nvec ports.NoiseDescriptor, t mat.Matrix) (*mat.SymDense, error) {
	ntoa, nbasis := t.Dims()
	if tnt.SymmetricDim() != nbasis {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "tnt",
			"size %d for %d basis columns", tnt.SymmetricDim(), nbasis)
	}
	if nvec.NTOA() != ntoa {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "ndiag",
			"noise descriptor covers %d TOAs, basis has %d rows", nvec.NTOA(), ntoa)
	}

	sigma, err := SigmaMatrix(tnt, phiinv)
	if err != nil {
		return nil, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "sigma",
			"cholesky factorization failed: matrix is not positive definite")
	}

	eye := identity(ntoa)
	ttn, err := nvec.Solve(eye, t) // nbasis x ntoa
	if err != nil {
		return nil, errors.Wrap(err, "noise solve against basis failed")
	}
	ndiag, err := nvec.Solve(eye, eye) // ntoa x ntoa
	if err != nil {
		return nil, errors.Wrap(err, "noise solve against identity failed")
	}

	var expval mat.Dense
	if err := chol.SolveTo(&expval, ttn); err != nil && !isCondition(err) {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "sigma", "cholesky solve failed: %v", err)
	}
	var corr mat.Dense
	corr.Mul(ttn.T(), &expval)

	out := mat.NewSymDense(ntoa, nil)
	for i := 0; i < ntoa; i++ {
		for j := i; j < ntoa; j++ {
			a := ndiag.At(i, j) - corr.At(i, j)
			b := ndiag.At(j, i) - corr.At(j, i)
			out.SetSym(i, j, 0.5*(a+b))
		}
	}
	return out, nil
}

func identity(n int) *mat.DiagDense {
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return mat.NewDiagDense(n, d)
}
