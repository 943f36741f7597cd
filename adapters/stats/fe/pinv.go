package fe

import (
	"gofestat/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// PseudoInverse returns the Moore-Penrose inverse of a from its singular value
// decomposition. Singular values at or below rcond times the largest one are
// treated as zero, so rank-deficient inputs (including the zero matrix) are
// handled without error. The only failure is a decomposition that does not
// converge, which happens for non-finite input.
func PseudoInverse(a mat.Matrix, rcond float64) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "m_sum", "singular value decomposition did not converge")
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := 0.0
	if len(s) > 0 {
		cutoff = rcond * s[0]
	}
	inv := make([]float64, len(s))
	for i, sv := range s {
		if sv > cutoff {
			inv[i] = 1 / sv
		}
	}

	// V · diag(1/s) · Uᵀ
	var vs mat.Dense
	vs.Apply(func(_, j int, x float64) float64 { return x * inv[j] }, &v)
	var out mat.Dense
	out.Mul(&vs, u.T())
	return &out, nil
}
