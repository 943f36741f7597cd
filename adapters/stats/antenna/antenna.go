// Package antenna computes the response of a pulsar-Earth baseline to a
// plane gravitational wave.
package antenna

import (
	"math"

	"gofestat/ports"
)

// Pattern returns the plus and cross antenna-pattern functions of a pulsar at
// unit vector pos for a GW propagating from (gwTheta, gwPhi), together with the
// cosine of the angle between the pulsar and the GW source.
//
// The polarization basis is m = (sin φ, −cos φ, 0), n = (−cos θ cos φ,
// −cos θ sin φ, sin θ) and the propagation direction Ω = −(source direction).
// When the pulsar lies exactly behind the source (1 + Ω·p = 0) the result is
// not finite.
func Pattern(pos [3]float64, gwTheta, gwPhi float64) (fplus, fcross, cosMu float64) {
	st, ct := math.Sincos(gwTheta)
	sp, cp := math.Sincos(gwPhi)

	m := [3]float64{sp, -cp, 0}
	n := [3]float64{-ct * cp, -ct * sp, st}
	omhat := [3]float64{-st * cp, -st * sp, -ct}

	mp := dot(m, pos)
	np := dot(n, pos)
	op := dot(omhat, pos)

	fplus = 0.5 * (mp*mp - np*np) / (1 + op)
	fcross = mp * np / (1 + op)
	cosMu = -op
	return fplus, fcross, cosMu
}

var _ ports.AntennaPatternFunc = Pattern

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
