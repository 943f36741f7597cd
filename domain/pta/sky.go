package pta

import (
	"fmt"
	"math"

	"gofestat/internal/errors"
)

// SkyPosition is a GW source direction: Theta = pi/2 - DEC, Phi = RA
type SkyPosition struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// SkyGrid is an ordered list of candidate source positions
type SkyGrid []SkyPosition

// NewSkyGrid pairs theta and phi arrays element-wise
func NewSkyGrid(theta, phi []float64) (SkyGrid, error) {
	if len(theta) != len(phi) {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "sky grid",
			"%d theta values for %d phi values", len(theta), len(phi))
	}
	grid := make(SkyGrid, len(theta))
	for i := range theta {
		grid[i] = SkyPosition{Theta: theta[i], Phi: phi[i]}
	}
	return grid, nil
}

// CheckGridSize rejects an nTheta x nPhi grid with more than maxPoints
// positions before anything is allocated
func CheckGridSize(nTheta, nPhi, maxPoints int) error {
	if nTheta < 0 || nPhi < 0 {
		return errors.InvalidInput("grid dimensions cannot be negative")
	}
	if nTheta > 0 && nPhi > maxPoints/nTheta {
		return errors.InvalidInput(fmt.Sprintf("grid of %d x %d points exceeds the limit of %d", nTheta, nPhi, maxPoints))
	}
	return nil
}

// UniformSkyGrid places nTheta x nPhi points uniformly in cos(theta) and phi,
// at cell centres so the poles are never sampled.
func UniformSkyGrid(nTheta, nPhi int) SkyGrid {
	if nTheta <= 0 || nPhi <= 0 {
		return SkyGrid{}
	}
	grid := make(SkyGrid, 0, nTheta*nPhi)
	for i := 0; i < nTheta; i++ {
		cosTheta := 1 - (2*float64(i)+1)/float64(nTheta)
		theta := math.Acos(cosTheta)
		for j := 0; j < nPhi; j++ {
			phi := 2 * math.Pi * (float64(j) + 0.5) / float64(nPhi)
			grid = append(grid, SkyPosition{Theta: theta, Phi: phi})
		}
	}
	return grid
}

// Thetas returns the theta column of the grid
func (g SkyGrid) Thetas() []float64 {
	out := make([]float64, len(g))
	for i, p := range g {
		out[i] = p.Theta
	}
	return out
}

// Phis returns the phi column of the grid
func (g SkyGrid) Phis() []float64 {
	out := make([]float64, len(g))
	for i, p := range g {
		out[i] = p.Phi
	}
	return out
}

// UnitVector converts a (theta, phi) direction into Cartesian coordinates
func UnitVector(theta, phi float64) [3]float64 {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return [3]float64{st * cp, st * sp, ct}
}

// Declination returns pi/2 - theta
func (p SkyPosition) Declination() float64 {
	return math.Pi/2 - p.Theta
}

// AngularDistance returns the great-circle separation between two positions
func AngularDistance(a, b SkyPosition) float64 {
	ua, ub := UnitVector(a.Theta, a.Phi), UnitVector(b.Theta, b.Phi)
	dot := ua[0]*ub[0] + ua[1]*ub[1] + ua[2]*ub[2]
	return math.Acos(math.Max(-1, math.Min(1, dot)))
}
