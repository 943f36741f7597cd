package fe

import (
	"math"

	"gofestat/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SigmaMatrix returns TNT + phiinv. phiinv is either an n x 1 column holding
// the diagonal of the prior precision or a full n x n matrix, of which only
// the upper triangle is read.
func SigmaMatrix(tnt mat.Symmetric, phiinv mat.Matrix) (*mat.SymDense, error) {
	n := tnt.SymmetricDim()
	pr, pc := phiinv.Dims()

	sigma := mat.NewSymDense(n, nil)
	sigma.CopySym(tnt)

	switch {
	case pr == n && pc == 1:
		for i := 0; i < n; i++ {
			sigma.SetSym(i, i, sigma.At(i, i)+phiinv.At(i, 0))
		}
	case pr == n && pc == n:
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sigma.SetSym(i, j, sigma.At(i, j)+phiinv.At(i, j))
			}
		}
	default:
		return nil, errors.ShapeMismatch(errors.NoPulsar, "phiinv",
			"shape %dx%d does not match TNT of size %d", pr, pc, n)
	}
	return sigma, nil
}

// PhiInvDiag wraps a 1-D prior precision as the n x 1 column SigmaMatrix expects
func PhiInvDiag(phiinv []float64) *mat.VecDense {
	return mat.NewVecDense(len(phiinv), phiinv)
}

// finite reports whether every value of s is neither NaN nor infinite
func finite(s []float64) bool {
	if len(s) == 0 {
		return true
	}
	if floats.HasNaN(s) {
		return false
	}
	return !math.IsInf(floats.Max(s), 1) && !math.IsInf(floats.Min(s), -1)
}

func finiteMatrix(m mat.Matrix) bool {
	return finite(mat.DenseCopyOf(m).RawMatrix().Data)
}

func finiteVector(v mat.Vector) bool {
	return finite(mat.VecDenseCopyOf(v).RawVector().Data)
}

// isCondition reports whether err is only gonum's ill-conditioning warning,
// which accompanies a usable result.
func isCondition(err error) bool {
	_, ok := err.(mat.Condition)
	return ok
}
