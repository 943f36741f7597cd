package antenna

import (
	"math"
	"testing"

	"gofestat/domain/pta"

	"github.com/stretchr/testify/assert"
)

func TestPattern_KnownGeometry(t *testing.T) {
	// source at the north pole, pulsar on the equator along +x
	fp, fc, cosMu := Pattern([3]float64{1, 0, 0}, 0, 0)

	// m = (0,-1,0), n = (-1,0,0), Ω = (0,0,-1)
	assert.InDelta(t, -0.5, fp, 1e-15)
	assert.InDelta(t, 0.0, fc, 1e-15)
	assert.InDelta(t, 0.0, cosMu, 1e-15)
}

func TestPattern_CosMuMatchesSeparation(t *testing.T) {
	pos := pta.UnitVector(0.7, 1.3)
	src := pta.SkyPosition{Theta: 1.9, Phi: 4.1}

	_, _, cosMu := Pattern(pos, src.Theta, src.Phi)

	sep := pta.AngularDistance(pta.SkyPosition{Theta: 0.7, Phi: 1.3}, src)
	assert.InDelta(t, math.Cos(sep), cosMu, 1e-12)
}

func TestPattern_PolarizationRotation(t *testing.T) {
	// F+² + F×² depends only on the pulsar-source angle: (1 + cosMu)²/4
	pos := pta.UnitVector(1.2, 0.4)
	for _, src := range pta.UniformSkyGrid(5, 7) {
		fp, fc, cosMu := Pattern(pos, src.Theta, src.Phi)
		want := (1 + cosMu) * (1 + cosMu) / 4
		assert.InDelta(t, want, fp*fp+fc*fc, 1e-12)
	}
}

func TestPattern_PulsarBehindSource(t *testing.T) {
	// pulsar in the same direction as the source: 1 + Ω·p = 0
	fp, fc, cosMu := Pattern([3]float64{0, 0, 1}, 0, 0)
	assert.True(t, math.IsNaN(fp))
	assert.True(t, math.IsNaN(fc))
	assert.Equal(t, 1.0, cosMu)
}
