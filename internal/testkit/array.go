// Package testkit builds synthetic pulsar timing arrays: regular TOAs,
// white measurement noise, a Fourier red-noise basis with a power-law prior,
// and injected continuous-wave signals. It backs the engine tests and the demo
// commands.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"gofestat/adapters/stats/antenna"
	"gofestat/domain/pta"
)

const (
	Day  = 86400.0
	Year = 365.25 * Day
	FYr  = 1 / Year
)

// ArrayConfig configures a synthetic array
type ArrayConfig struct {
	NTOA   int     `json:"ntoa"`
	Span   float64 `json:"span"`   // seconds
	Sigma  float64 `json:"sigma"`  // white-noise rms per TOA, seconds
	NModes int     `json:"nmodes"` // red-noise Fourier frequencies
	Log10A float64 `json:"log10_A"`
	Gamma  float64 `json:"gamma"`
	Seed   int64   `json:"seed"`
}

// DefaultArrayConfig returns a ten-year, 40-TOA array with 100 ns white noise
// and a weak red-noise process
func DefaultArrayConfig() ArrayConfig {
	return ArrayConfig{
		NTOA:   40,
		Span:   10 * Year,
		Sigma:  1e-7,
		NModes: 5,
		Log10A: -14,
		Gamma:  13.0 / 3.0,
		Seed:   42,
	}
}

// EightPulsarSky is a fixed set of pulsar directions spread over the sky
var EightPulsarSky = []pta.SkyPosition{
	{Theta: 0.4, Phi: 0.3},
	{Theta: 1.1, Phi: 1.9},
	{Theta: 2.0, Phi: 4.0},
	{Theta: 0.9, Phi: 5.2},
	{Theta: 2.6, Phi: 2.5},
	{Theta: 1.6, Phi: 0.8},
	{Theta: 1.3, Phi: 3.3},
	{Theta: 2.3, Phi: 5.9},
}

// NewArray creates one pulsar per position with evenly spaced TOAs and zero
// residuals. Pulsar p is offset by p days so no two share a TOA grid.
func NewArray(positions []pta.SkyPosition, cfg ArrayConfig) []*pta.Pulsar {
	psrs := make([]*pta.Pulsar, len(positions))
	step := 0.0
	if cfg.NTOA > 1 {
		step = cfg.Span / float64(cfg.NTOA-1)
	}
	for p, pos := range positions {
		toas := make([]float64, cfg.NTOA)
		for i := range toas {
			toas[i] = float64(i)*step + float64(p)*Day
		}
		psrs[p] = &pta.Pulsar{
			Name:      fmt.Sprintf("SYN%02d", p),
			TOAs:      toas,
			Residuals: make([]float64, cfg.NTOA),
			Pos:       pta.UnitVector(pos.Theta, pos.Phi),
		}
	}
	return psrs
}

// Params returns the per-pulsar noise parameters matching cfg
func Params(psrs []*pta.Pulsar, cfg ArrayConfig) pta.NoiseParams {
	params := make(pta.NoiseParams, 3*len(psrs))
	for _, p := range psrs {
		params[p.Name+"_efac"] = 1
		params[p.Name+"_red_noise_log10_A"] = cfg.Log10A
		params[p.Name+"_red_noise_gamma"] = cfg.Gamma
	}
	return params
}

// AddWhiteNoise adds a Gaussian realization with standard deviation sigma to
// every residual, reproducibly from seed
func AddWhiteNoise(psrs []*pta.Pulsar, sigma float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for _, p := range psrs {
		for i := range p.Residuals {
			p.Residuals[i] += sigma * rng.NormFloat64()
		}
	}
}

// Source is an earth-term continuous wave: A holds the four quadrature
// amplitudes (plus-sin, plus-cos, cross-sin, cross-cos)
type Source struct {
	F0  float64
	Pos pta.SkyPosition
	A   [4]float64
}

// Residuals returns the timing residuals the source induces in psr
func (s Source) Residuals(psr *pta.Pulsar) []float64 {
	fplus, fcross, _ := antenna.Pattern(psr.Pos, s.Pos.Theta, s.Pos.Phi)
	amp := 1 / math.Pow(s.F0, 1.0/3.0)
	sinAmp := fplus*s.A[0] + fcross*s.A[2]
	cosAmp := fplus*s.A[1] + fcross*s.A[3]

	out := make([]float64, len(psr.TOAs))
	for i, t := range psr.TOAs {
		sn, cs := math.Sincos(2 * math.Pi * s.F0 * t)
		out[i] = amp * (sinAmp*sn + cosAmp*cs)
	}
	return out
}

// Inject adds the source signal to every pulsar's residuals
func Inject(psrs []*pta.Pulsar, s Source) {
	for _, p := range psrs {
		for i, r := range s.Residuals(p) {
			p.Residuals[i] += r
		}
	}
}

// ScaleResiduals multiplies every residual by c in place
func ScaleResiduals(psrs []*pta.Pulsar, c float64) {
	for _, p := range psrs {
		for i := range p.Residuals {
			p.Residuals[i] *= c
		}
	}
}

// PowerLaw returns the prior variance of one Fourier coefficient at
// frequency f for a red-noise process with amplitude 10^log10A and spectral
// index gamma, over an observation of length tspan
func PowerLaw(f, log10A, gamma, tspan float64) float64 {
	amp := math.Pow(10, log10A)
	return amp * amp / (12 * math.Pi * math.Pi) * math.Pow(FYr, gamma-3) * math.Pow(f, -gamma) / tspan
}

// DefaultSource is the continuous wave injected by the demo commands
var DefaultSource = Source{
	F0:  2e-8,
	Pos: pta.SkyPosition{Theta: 1, Phi: 2},
	A:   [4]float64{1e-9, 0.5e-9, -0.4e-9, 0.8e-9},
}

// Synthetic builds the eight-pulsar array with white noise and s injected
func Synthetic(cfg ArrayConfig, s Source) ([]*pta.Pulsar, pta.NoiseParams) {
	psrs := NewArray(EightPulsarSky, cfg)
	AddWhiteNoise(psrs, cfg.Sigma, cfg.Seed)
	Inject(psrs, s)
	return psrs, Params(psrs, cfg)
}
