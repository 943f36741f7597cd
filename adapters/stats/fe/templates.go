package fe

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SignalBasis returns the 4 x n_toa quadrature templates at frequency f0:
// f0^(-1/3)·{sin, cos, sin, cos}(2π f0 t).
//
// Rows 0/2 and 1/3 are identical, so the plus and cross polarizations share
// one pair of templates. This reproduces the reference statistic exactly;
// four independent quadratures would change every output value.
func SignalBasis(toas []float64, f0 float64) *mat.Dense {
	n := len(toas)
	a := mat.NewDense(4, n, nil)
	amp := 1 / math.Pow(f0, 1.0/3.0)
	for i, t := range toas {
		s, c := math.Sincos(2 * math.Pi * f0 * t)
		a.Set(0, i, amp*s)
		a.Set(1, i, amp*c)
		a.Set(2, i, amp*s)
		a.Set(3, i, amp*c)
	}
	return a
}
