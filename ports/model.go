package ports

import (
	"gofestat/domain/pta"

	"gonum.org/v1/gonum/mat"
)

// NoiseDescriptor is the per-pulsar white-noise covariance N in whatever
// structured form the upstream model keeps it.
type NoiseDescriptor interface {
	// Solve returns leftᵀ · N⁻¹ · rhs. rhs must have NTOA rows and left must
	// have NTOA rows; the result is (left cols) x (rhs cols).
	Solve(rhs, left mat.Matrix) (*mat.Dense, error)

	// NTOA returns the dimension of N
	NTOA() int
}

// Model exposes the per-pulsar matrices of a timing/noise model evaluated at
// fixed noise parameters. Every method returns one entry per pulsar, in the
// order the model was built with.
type Model interface {
	// TNT returns Tᵀ N⁻¹ T (n_basis x n_basis)
	TNT(params pta.NoiseParams) ([]mat.Symmetric, error)

	// PhiInv returns the prior precision of the basis coefficients, either an
	// n_basis x 1 column (diagonal) or an n_basis x n_basis matrix
	PhiInv(params pta.NoiseParams) ([]mat.Matrix, error)

	// NoiseDescriptors returns the white-noise covariance descriptors
	NoiseDescriptors(params pta.NoiseParams) ([]NoiseDescriptor, error)

	// Basis returns the basis matrix T (n_toa x n_basis)
	Basis(params pta.NoiseParams) ([]mat.Matrix, error)
}

// ModelBuilder constructs a Model for a pulsar array
type ModelBuilder interface {
	Build(psrs []*pta.Pulsar, params pta.NoiseParams, cfg pta.ModelConfig) (Model, error)
}

// ModelBuilderFunc adapts a function to ModelBuilder
type ModelBuilderFunc func(psrs []*pta.Pulsar, params pta.NoiseParams, cfg pta.ModelConfig) (Model, error)

// Build calls f
func (f ModelBuilderFunc) Build(psrs []*pta.Pulsar, params pta.NoiseParams, cfg pta.ModelConfig) (Model, error) {
	return f(psrs, params, cfg)
}

// AntennaPatternFunc returns the plus/cross beam-pattern coefficients of a
// pulsar at pos for a GW source at (theta, phi), plus the cosine of the
// pulsar-source angle.
type AntennaPatternFunc func(pos [3]float64, theta, phi float64) (fplus, fcross, cosMu float64)
