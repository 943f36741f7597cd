package testkit

import (
	"math"
	"testing"

	"gofestat/domain/pta"
	"gofestat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArray(t *testing.T) {
	cfg := DefaultArrayConfig()
	psrs := NewArray(EightPulsarSky[:2], cfg)
	require.Len(t, psrs, 2)

	assert.Equal(t, "SYN00", psrs[0].Name)
	assert.Len(t, psrs[1].TOAs, cfg.NTOA)
	assert.Equal(t, Day, psrs[1].TOAs[0])
	assert.InEpsilon(t, cfg.Span, psrs[0].Tspan(), 1e-12)
	assert.NoError(t, pta.ValidateArray(psrs))

	params := Params(psrs, cfg)
	assert.Equal(t, -14.0, params["SYN01_red_noise_log10_A"])
}

func TestInject(t *testing.T) {
	cfg := DefaultArrayConfig()
	psrs := NewArray(EightPulsarSky[:1], cfg)
	src := Source{F0: 1e-8, Pos: pta.SkyPosition{Theta: 1, Phi: 2}, A: [4]float64{1e-9, 0, 0, 0}}

	Inject(psrs, src)
	nonzero := 0
	for _, r := range psrs[0].Residuals {
		if r != 0 {
			nonzero++
		}
	}
	assert.Greater(t, nonzero, cfg.NTOA/2)

	before := append([]float64(nil), psrs[0].Residuals...)
	ScaleResiduals(psrs, -1)
	for i, r := range psrs[0].Residuals {
		assert.Equal(t, -before[i], r)
	}
}

func TestAddWhiteNoise_Reproducible(t *testing.T) {
	cfg := DefaultArrayConfig()
	a := NewArray(EightPulsarSky[:1], cfg)
	b := NewArray(EightPulsarSky[:1], cfg)
	AddWhiteNoise(a, 1e-7, 7)
	AddWhiteNoise(b, 1e-7, 7)
	assert.Equal(t, a[0].Residuals, b[0].Residuals)
}

func TestModel(t *testing.T) {
	cfg := DefaultArrayConfig()
	psrs := NewArray(EightPulsarSky[:2], cfg)
	params := Params(psrs, cfg)

	builder := NewBuilder(cfg)
	model, err := builder.Build(psrs, params, pta.ContinuousWaveModel())
	require.NoError(t, err)
	assert.Equal(t, int64(1), builder.Builds())

	basis, err := model.Basis(params)
	require.NoError(t, err)
	r, c := basis[0].Dims()
	assert.Equal(t, cfg.NTOA, r)
	assert.Equal(t, 2*cfg.NModes, c)

	phiinv, err := model.PhiInv(params)
	require.NoError(t, err)
	pr, pc := phiinv[0].Dims()
	assert.Equal(t, 2*cfg.NModes, pr)
	assert.Equal(t, 1, pc)
	// steeper spectrum at low frequency means a smaller prior precision
	assert.Less(t, phiinv[0].At(0, 0), phiinv[0].At(2*cfg.NModes-1, 0))

	tnt, err := model.TNT(params)
	require.NoError(t, err)
	assert.Equal(t, 2*cfg.NModes, tnt[1].SymmetricDim())

	nd, err := model.NoiseDescriptors(params)
	require.NoError(t, err)
	assert.Equal(t, cfg.NTOA, nd[0].NTOA())

	louder := Params(psrs, cfg)
	louder["SYN00_efac"] = 2
	tntLoud, err := model.TNT(louder)
	require.NoError(t, err)
	assert.InEpsilon(t, tnt[0].At(0, 0)/4, tntLoud[0].At(0, 0), 1e-12)
}

func TestBuilder_RejectsUnsupportedModels(t *testing.T) {
	cfg := DefaultArrayConfig()
	psrs := NewArray(EightPulsarSky[:1], cfg)

	ecc := pta.ContinuousWaveModel()
	ecc.Eccentric = true
	_, err := NewBuilder(cfg).Build(psrs, nil, ecc)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = NewBuilder(ArrayConfig{NModes: 0, Sigma: 1}).Build(psrs, nil, pta.ContinuousWaveModel())
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestPowerLaw(t *testing.T) {
	tspan := 10 * Year
	lo := PowerLaw(1/tspan, -14, 13.0/3.0, tspan)
	hi := PowerLaw(2/tspan, -14, 13.0/3.0, tspan)
	assert.InEpsilon(t, math.Pow(2, 13.0/3.0), lo/hi, 1e-12)

	louder := PowerLaw(1/tspan, -13, 13.0/3.0, tspan)
	assert.InEpsilon(t, 100.0, louder/lo, 1e-12)
}

func TestSynthetic(t *testing.T) {
	cfg := DefaultArrayConfig()
	psrs, params := Synthetic(cfg, DefaultSource)
	require.Len(t, psrs, len(EightPulsarSky))
	assert.Len(t, params, 3*len(psrs))

	again, _ := Synthetic(cfg, DefaultSource)
	assert.Equal(t, psrs[3].Residuals, again[3].Residuals)

	clean := NewArray(EightPulsarSky, cfg)
	Inject(clean, DefaultSource)
	assert.NotEqual(t, clean[0].Residuals, psrs[0].Residuals)
}
