package fe

import (
	"gofestat/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// RankReduced evaluates noise-weighted inner products
//
//	(x|y) = xᵀ N⁻¹ y − (Tᵀ N⁻¹ x)ᵀ Σ⁻¹ (Tᵀ N⁻¹ y)
//
// where N⁻¹ is applied through nmat and Σ is factored once.
type RankReduced struct {
	nmat   mat.Matrix
	t      mat.Matrix
	chol   mat.Cholesky
	brave  bool
	ntoa   int
	nbasis int
}

// Prepared caches the projections of one time series so that it can take
// part in many inner products without repeating the matrix-vector work.
type Prepared struct {
	v   mat.Vector
	nv  *mat.VecDense // nmat · v
	tnv *mat.VecDense // Tᵀ · nmat · v
	sol *mat.VecDense // Σ⁻¹ · Tᵀ · nmat · v
}

// NewRankReduced validates shapes and Cholesky-factors sigma. Unless brave is
// set, sigma must be finite; a sigma that is not positive definite always fails.
func NewRankReduced(nmat, t mat.Matrix, sigma mat.Symmetric, brave bool) (*RankReduced, error) {
	nr, nc := nmat.Dims()
	if nr != nc {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "nmat", "not square: %dx%d", nr, nc)
	}
	tr, tc := t.Dims()
	if tr != nr {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "basis", "%d rows for %d TOAs", tr, nr)
	}
	if sigma.SymmetricDim() != tc {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "sigma",
			"size %d for %d basis columns", sigma.SymmetricDim(), tc)
	}
	if !brave && !finiteMatrix(sigma) {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "sigma", "array must not contain infs or NaNs")
	}

	rr := &RankReduced{nmat: nmat, t: t, brave: brave, ntoa: nr, nbasis: tc}
	if ok := rr.chol.Factorize(sigma); !ok {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "sigma",
			"cholesky factorization failed: matrix is not positive definite")
	}
	return rr, nil
}

// Prepare projects v through the noise model
func (rr *RankReduced) Prepare(v mat.Vector) (*Prepared, error) {
	if v.Len() != rr.ntoa {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "vector", "length %d for %d TOAs", v.Len(), rr.ntoa)
	}

	p := &Prepared{
		v:   v,
		nv:  mat.NewVecDense(rr.ntoa, nil),
		tnv: mat.NewVecDense(rr.nbasis, nil),
		sol: mat.NewVecDense(rr.nbasis, nil),
	}
	p.nv.MulVec(rr.nmat, v)
	p.tnv.MulVec(rr.t.T(), p.nv)

	if !rr.brave && !finiteVector(p.tnv) {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "rhs", "array must not contain infs or NaNs")
	}
	if err := rr.chol.SolveVecTo(p.sol, p.tnv); err != nil && !isCondition(err) {
		return nil, errors.LinearAlgebra(errors.NoPulsar, "sigma", "cholesky solve failed: %v", err)
	}
	return p, nil
}

// Inner returns (x|y) for two prepared vectors
func (rr *RankReduced) Inner(x, y *Prepared) float64 {
	xNy := mat.Dot(x.v, y.nv)
	return xNy - mat.Dot(x.tnv, y.sol)
}

// InnerProduct computes the rank-reduced inner product of x and y in one call.
// nmat plays the role of N⁻¹, tmat is the basis T and sigma is
// Tᵀ N⁻¹ T + Φ⁻¹. With brave set, finite-value checks are skipped and NaN or
// Inf inputs propagate into the result.
func InnerProduct(x, y mat.Vector, nmat, tmat mat.Matrix, sigma mat.Symmetric, brave bool) (float64, error) {
	rr, err := NewRankReduced(nmat, tmat, sigma, brave)
	if err != nil {
		return 0, err
	}
	px, err := rr.Prepare(x)
	if err != nil {
		return 0, err
	}
	py, err := rr.Prepare(y)
	if err != nil {
		return 0, err
	}
	return rr.Inner(px, py), nil
}
