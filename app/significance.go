package app

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// feChiSquared is the noise-only distribution of 2Fe: four quadrature
// amplitudes are fit, so four degrees of freedom
var feChiSquared = distuv.ChiSquared{K: 4}

// FalseAlarmProbability returns the probability that Gaussian noise alone
// yields a statistic of at least fe at one fixed sky position and frequency.
// It is not corrected for the number of grid points searched.
func FalseAlarmProbability(fe float64) float64 {
	if math.IsNaN(fe) {
		return math.NaN()
	}
	if fe <= 0 {
		return 1
	}
	return feChiSquared.Survival(2 * fe)
}

// DetectionThreshold returns the Fe value whose single-point false alarm
// probability is fap
func DetectionThreshold(fap float64) float64 {
	if !(fap > 0 && fap < 1) {
		return math.NaN()
	}
	return feChiSquared.Quantile(1-fap) / 2
}
