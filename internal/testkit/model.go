package testkit

import (
	"math"
	"sync/atomic"

	"gofestat/adapters/stats/noise"
	"gofestat/domain/pta"
	"gofestat/internal/errors"
	"gofestat/ports"

	"gonum.org/v1/gonum/mat"
)

// Builder builds white-noise plus power-law red-noise models. It counts its
// builds so tests can check that a model is constructed once.
type Builder struct {
	Config ArrayConfig
	builds atomic.Int64
}

var _ ports.ModelBuilder = (*Builder)(nil)

// NewBuilder creates a builder for arrays generated with cfg
func NewBuilder(cfg ArrayConfig) *Builder {
	return &Builder{Config: cfg}
}

// Builds returns how many models were built
func (b *Builder) Builds() int64 {
	return b.builds.Load()
}

// Build returns the model for psrs. Only the power-law red-noise
// configuration is supported.
func (b *Builder) Build(psrs []*pta.Pulsar, params pta.NoiseParams, cfg pta.ModelConfig) (ports.Model, error) {
	b.builds.Add(1)
	if cfg.RedNoisePSD != "powerlaw" {
		return nil, errors.InvalidInput("unsupported red noise PSD: " + cfg.RedNoisePSD)
	}
	if cfg.Eccentric || cfg.PulsarTerm || cfg.BayesEphem || cfg.Wideband {
		return nil, errors.InvalidInput("synthetic model supports circular earth-term narrowband signals only")
	}
	if b.Config.NModes <= 0 {
		return nil, errors.InvalidInput("at least one red-noise frequency is required")
	}
	if !(b.Config.Sigma > 0) {
		return nil, errors.InvalidInput("white noise sigma must be positive")
	}
	return &Model{psrs: psrs, cfg: b.Config}, nil
}

// Model evaluates the synthetic timing/noise model at given parameters
type Model struct {
	psrs       []*pta.Pulsar
	cfg        ArrayConfig
	noiseCalls atomic.Int64
}

var _ ports.Model = (*Model)(nil)

// NoiseCalls returns how many times NoiseDescriptors was called
func (m *Model) NoiseCalls() int64 {
	return m.noiseCalls.Load()
}

// NoiseDescriptors returns diag((efac·sigma)² + equad²) per pulsar
func (m *Model) NoiseDescriptors(params pta.NoiseParams) ([]ports.NoiseDescriptor, error) {
	m.noiseCalls.Add(1)
	whites, err := m.whites(params)
	if err != nil {
		return nil, err
	}
	out := make([]ports.NoiseDescriptor, len(whites))
	for p, w := range whites {
		out[p] = w
	}
	return out, nil
}

// Basis returns the Fourier design matrix with sin/cos columns at k/Tspan
func (m *Model) Basis(_ pta.NoiseParams) ([]mat.Matrix, error) {
	out := make([]mat.Matrix, len(m.psrs))
	for p, psr := range m.psrs {
		out[p] = m.fourier(psr)
	}
	return out, nil
}

// PhiInv returns the inverse power-law prior as an n_basis x 1 column
func (m *Model) PhiInv(params pta.NoiseParams) ([]mat.Matrix, error) {
	out := make([]mat.Matrix, len(m.psrs))
	for p, psr := range m.psrs {
		tspan := psr.Tspan()
		if tspan <= 0 {
			return nil, errors.ShapeMismatch(p, "toas", "pulsar %q spans no time", psr.Name)
		}
		log10A := params.Get(psr.Name+"_red_noise_log10_A", m.cfg.Log10A)
		gamma := params.Get(psr.Name+"_red_noise_gamma", m.cfg.Gamma)

		phiinv := mat.NewVecDense(2*m.cfg.NModes, nil)
		for k := 0; k < m.cfg.NModes; k++ {
			phi := PowerLaw(float64(k+1)/tspan, log10A, gamma, tspan)
			phiinv.SetVec(2*k, 1/phi)
			phiinv.SetVec(2*k+1, 1/phi)
		}
		out[p] = phiinv
	}
	return out, nil
}

// TNT returns Tᵀ N⁻¹ T per pulsar
func (m *Model) TNT(params pta.NoiseParams) ([]mat.Symmetric, error) {
	whites, err := m.whites(params)
	if err != nil {
		return nil, err
	}
	out := make([]mat.Symmetric, len(m.psrs))
	for p, psr := range m.psrs {
		t := m.fourier(psr)
		tnt, err := whites[p].Solve(t, t)
		if err != nil {
			return nil, errors.AtPulsar(p, err)
		}
		n, _ := tnt.Dims()
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sym.SetSym(i, j, 0.5*(tnt.At(i, j)+tnt.At(j, i)))
			}
		}
		out[p] = sym
	}
	return out, nil
}

func (m *Model) whites(params pta.NoiseParams) ([]*noise.White, error) {
	out := make([]*noise.White, len(m.psrs))
	for p, psr := range m.psrs {
		efac := params.Get(psr.Name+"_efac", 1)
		equad := params.Get(psr.Name+"_equad", 0)
		errs := make([]float64, psr.NTOA())
		for i := range errs {
			errs[i] = m.cfg.Sigma
		}
		w, err := noise.NewWhiteFromErrors(errs, efac, equad)
		if err != nil {
			return nil, errors.AtPulsar(p, err)
		}
		out[p] = w
	}
	return out, nil
}

func (m *Model) fourier(psr *pta.Pulsar) *mat.Dense {
	tspan := psr.Tspan()
	t := mat.NewDense(psr.NTOA(), 2*m.cfg.NModes, nil)
	for k := 0; k < m.cfg.NModes; k++ {
		f := float64(k+1) / tspan
		for i, toa := range psr.TOAs {
			s, c := math.Sincos(2 * math.Pi * f * toa)
			t.Set(i, 2*k, s)
			t.Set(i, 2*k+1, c)
		}
	}
	return t
}
