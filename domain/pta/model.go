package pta

// NoiseParams maps noise parameter names (e.g. "J1909-3744_efac") to fixed values
type NoiseParams map[string]float64

// Get returns the named parameter or def when it is absent
func (p NoiseParams) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// ModelConfig describes which signals the upstream timing/noise model includes
type ModelConfig struct {
	RedNoisePSD string `json:"rn_psd"`
	Eccentric   bool   `json:"ecc"`
	PulsarTerm  bool   `json:"psr_term"`
	BayesEphem  bool   `json:"bayesephem"`
	Wideband    bool   `json:"wideband"`
}

// ContinuousWaveModel is the fixed configuration used by the Fe-statistic:
// power-law red noise, earth term only, circular binaries, no ephemeris
// marginalization, narrowband TOAs.
func ContinuousWaveModel() ModelConfig {
	return ModelConfig{
		RedNoisePSD: "powerlaw",
		Eccentric:   false,
		PulsarTerm:  false,
		BayesEphem:  false,
		Wideband:    false,
	}
}
