package pta

import (
	"fmt"
	"math"

	"gofestat/domain/core"
	"gofestat/internal/errors"
)

// Pulsar holds the timing data of one pulsar. It is owned by the caller and
// never mutated by the statistic engine.
type Pulsar struct {
	Name      string     `json:"name"`
	TOAs      []float64  `json:"toas"`      // seconds
	Residuals []float64  `json:"residuals"` // seconds, one per TOA
	Pos       [3]float64 `json:"pos"`       // unit vector toward the pulsar
}

// NTOA returns the number of times of arrival
func (p *Pulsar) NTOA() int {
	return len(p.TOAs)
}

// Tspan returns the observation span
func (p *Pulsar) Tspan() float64 {
	if len(p.TOAs) == 0 {
		return 0
	}
	lo, hi := p.TOAs[0], p.TOAs[0]
	for _, t := range p.TOAs[1:] {
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	return hi - lo
}

// Validate checks that the pulsar at index idx has matching toas/residuals
func (p *Pulsar) Validate(idx int) error {
	if p == nil {
		return errors.ShapeMismatch(idx, "pulsar", "pulsar is nil")
	}
	if len(p.TOAs) == 0 {
		return errors.ShapeMismatch(idx, "toas", "pulsar %q has no TOAs", p.Name)
	}
	if len(p.Residuals) != len(p.TOAs) {
		return errors.ShapeMismatch(idx, "residuals",
			"pulsar %q has %d residuals for %d TOAs", p.Name, len(p.Residuals), len(p.TOAs))
	}
	norm := math.Sqrt(p.Pos[0]*p.Pos[0] + p.Pos[1]*p.Pos[1] + p.Pos[2]*p.Pos[2])
	if norm == 0 || math.IsNaN(norm) {
		return errors.ShapeMismatch(idx, "pos", "pulsar %q has no sky position", p.Name)
	}
	return nil
}

// ValidateArray validates every pulsar and requires at least one
func ValidateArray(psrs []*Pulsar) error {
	if len(psrs) == 0 {
		return errors.InvalidInput("pulsar array is empty")
	}
	for i, p := range psrs {
		if err := p.Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// Label returns the pulsar name, or its index when unnamed
func Label(psrs []*Pulsar, idx int) string {
	if idx >= 0 && idx < len(psrs) && psrs[idx] != nil && psrs[idx].Name != "" {
		return psrs[idx].Name
	}
	return fmt.Sprintf("psr%d", idx)
}

// Fingerprint hashes pulsar data and noise parameters so identical inputs can be recognised
func Fingerprint(psrs []*Pulsar, params NoiseParams) core.Hash {
	fp := &core.Fingerprint{}
	for _, p := range psrs {
		fp.Label(p.Name).Floats(p.Pos[:]...).Floats(p.TOAs...).Floats(p.Residuals...)
	}
	return fp.Params(params).Sum()
}
