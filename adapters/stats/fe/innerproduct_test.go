package fe

import (
	"math"
	"testing"

	"gofestat/adapters/stats/noise"
	"gofestat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// smallModel is a 6-TOA, 2-column model with well conditioned matrices
type smallModel struct {
	nvar   []float64
	t      *mat.Dense
	phi    []float64
	nmat   *mat.DiagDense // N⁻¹
	tnt    *mat.SymDense
	phiinv *mat.VecDense
}

func newSmallModel(t *testing.T) *smallModel {
	t.Helper()
	m := &smallModel{
		nvar: []float64{1.0, 2.0, 0.5, 1.5, 1.0, 3.0},
		t: mat.NewDense(6, 2, []float64{
			1.0, 0.2,
			0.5, -1.0,
			-0.3, 0.8,
			0.9, 0.1,
			-1.2, 0.4,
			0.3, -0.6,
		}),
		phi: []float64{2.0, 0.5},
	}
	inv := make([]float64, len(m.nvar))
	for i, v := range m.nvar {
		inv[i] = 1 / v
	}
	m.nmat = mat.NewDiagDense(len(inv), inv)

	var tn mat.Dense
	tn.Mul(m.t.T(), m.nmat)
	var tnt mat.Dense
	tnt.Mul(&tn, m.t)
	m.tnt = mat.NewSymDense(2, []float64{tnt.At(0, 0), tnt.At(0, 1), tnt.At(1, 0), tnt.At(1, 1)})
	m.phiinv = PhiInvDiag([]float64{1 / m.phi[0], 1 / m.phi[1]})
	return m
}

// covariance returns N + T Φ Tᵀ
func (m *smallModel) covariance() *mat.Dense {
	var tp mat.Dense
	tp.Mul(m.t, mat.NewDiagDense(2, m.phi))
	var c mat.Dense
	c.Mul(&tp, m.t.T())
	for i, v := range m.nvar {
		c.Set(i, i, c.At(i, i)+v)
	}
	return &c
}

func (m *smallModel) sigma(t *testing.T) *mat.SymDense {
	t.Helper()
	s, err := SigmaMatrix(m.tnt, m.phiinv)
	require.NoError(t, err)
	return s
}

var (
	vecX = mat.NewVecDense(6, []float64{0.3, -1.1, 0.7, 0.2, -0.4, 1.5})
	vecY = mat.NewVecDense(6, []float64{1.0, 0.5, -0.2, 0.8, 0.1, -0.9})
)

func TestInnerProduct_MatchesWoodbury(t *testing.T) {
	m := newSmallModel(t)

	got, err := InnerProduct(vecX, vecY, m.nmat, m.t, m.sigma(t), false)
	require.NoError(t, err)

	var cinv mat.Dense
	require.NoError(t, cinv.Inverse(m.covariance()))
	want := mat.Inner(vecX, &cinv, vecY)

	assert.InEpsilon(t, want, got, 1e-10)
}

func TestInnerProduct_Symmetric(t *testing.T) {
	m := newSmallModel(t)
	sigma := m.sigma(t)

	xy, err := InnerProduct(vecX, vecY, m.nmat, m.t, sigma, false)
	require.NoError(t, err)
	yx, err := InnerProduct(vecY, vecX, m.nmat, m.t, sigma, false)
	require.NoError(t, err)
	assert.InEpsilon(t, xy, yx, 1e-12)

	xx, err := InnerProduct(vecX, vecX, m.nmat, m.t, sigma, false)
	require.NoError(t, err)
	assert.Greater(t, xx, 0.0)
}

func TestInnerProduct_ZeroVector(t *testing.T) {
	m := newSmallModel(t)
	zero := mat.NewVecDense(6, nil)

	got, err := InnerProduct(zero, vecY, m.nmat, m.t, m.sigma(t), false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestInnerProduct_NotPositiveDefinite(t *testing.T) {
	m := newSmallModel(t)
	bad := mat.NewSymDense(2, []float64{1, 2, 2, 1})

	_, err := InnerProduct(vecX, vecY, m.nmat, m.t, bad, false)
	require.Error(t, err)
	assert.True(t, errors.IsLinearAlgebra(err))

	// brave mode does not rescue a failed factorization
	_, err = InnerProduct(vecX, vecY, m.nmat, m.t, bad, true)
	assert.True(t, errors.IsLinearAlgebra(err))
}

func TestInnerProduct_NonFinite(t *testing.T) {
	m := newSmallModel(t)
	sigma := m.sigma(t)

	nanSigma := mat.NewSymDense(2, nil)
	nanSigma.CopySym(sigma)
	nanSigma.SetSym(0, 1, math.NaN())
	_, err := InnerProduct(vecX, vecY, m.nmat, m.t, nanSigma, false)
	assert.True(t, errors.IsLinearAlgebra(err))

	nanX := mat.VecDenseCopyOf(vecX)
	nanX.SetVec(2, math.NaN())
	_, err = InnerProduct(nanX, vecY, m.nmat, m.t, sigma, false)
	assert.True(t, errors.IsLinearAlgebra(err))

	got, err := InnerProduct(nanX, vecY, m.nmat, m.t, sigma, true)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestFiniteChecks(t *testing.T) {
	assert.True(t, finite(nil))
	assert.True(t, finite([]float64{-1e300, 0, 1e300}))
	assert.False(t, finite([]float64{1, math.NaN()}))
	assert.False(t, finite([]float64{1, math.Inf(1)}))
	assert.False(t, finite([]float64{math.Inf(-1), 1}))

	m := mat.NewSymDense(2, []float64{1, 2, 2, 3})
	assert.True(t, finiteMatrix(m))
	m.SetSym(0, 1, math.Inf(-1))
	assert.False(t, finiteMatrix(m))

	assert.True(t, finiteVector(mat.NewVecDense(2, []float64{1, 2})))
	assert.False(t, finiteVector(mat.NewVecDense(2, []float64{math.NaN(), 2})))
}

func TestInnerProduct_ShapeMismatch(t *testing.T) {
	m := newSmallModel(t)
	sigma := m.sigma(t)

	short := mat.NewVecDense(5, nil)
	_, err := InnerProduct(short, vecY, m.nmat, m.t, sigma, false)
	assert.True(t, errors.IsShapeMismatch(err))

	_, err = InnerProduct(vecX, vecY, m.nmat, m.t, mat.NewSymDense(3, nil), false)
	assert.True(t, errors.IsShapeMismatch(err))

	_, err = InnerProduct(vecX, vecY, m.nmat, mat.NewDense(5, 2, nil), sigma, false)
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestSigmaMatrix(t *testing.T) {
	tnt := mat.NewSymDense(2, []float64{4, 1, 1, 3})

	diag, err := SigmaMatrix(tnt, PhiInvDiag([]float64{0.5, 2}))
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewSymDense(2, []float64{4.5, 1, 1, 5}), diag))

	full, err := SigmaMatrix(tnt, mat.NewDense(2, 2, []float64{1, 0.5, 0.5, 1}))
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewSymDense(2, []float64{5, 1.5, 1.5, 4}), full))

	_, err = SigmaMatrix(tnt, mat.NewDense(3, 1, nil))
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestBuildMarginalizedNoise_InvertsCovariance(t *testing.T) {
	m := newSmallModel(t)
	white, err := noise.NewWhite(m.nvar)
	require.NoError(t, err)

	nmat, err := BuildMarginalizedNoise(m.phiinv, m.tnt, white, m.t)
	require.NoError(t, err)
	require.Equal(t, 6, nmat.SymmetricDim())

	var cinv mat.Dense
	require.NoError(t, cinv.Inverse(m.covariance()))
	assert.True(t, mat.EqualApprox(&cinv, nmat, 1e-10))

	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.Equal(t, nmat.At(i, j), nmat.At(j, i))
		}
	}
}

func TestBuildMarginalizedNoise_DenseNoise(t *testing.T) {
	m := newSmallModel(t)
	white, err := noise.NewWhite(m.nvar)
	require.NoError(t, err)
	dense, err := noise.NewBlockJitter(m.nvar, []int{0, 1, 2, 3, 4, 5}, []float64{0, 0, 0, 0, 0, 0})
	require.NoError(t, err)

	fromWhite, err := BuildMarginalizedNoise(m.phiinv, m.tnt, white, m.t)
	require.NoError(t, err)
	fromDense, err := BuildMarginalizedNoise(m.phiinv, m.tnt, dense, m.t)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(fromWhite, fromDense, 1e-10))
}

type mockNoise struct {
	mock.Mock
}

func (m *mockNoise) Solve(rhs, left mat.Matrix) (*mat.Dense, error) {
	args := m.Called(rhs, left)
	d, _ := args.Get(0).(*mat.Dense)
	return d, args.Error(1)
}

func (m *mockNoise) NTOA() int {
	return m.Called().Int(0)
}

func TestBuildMarginalizedNoise_ShapeCheckedBeforeSolving(t *testing.T) {
	m := newSmallModel(t)

	nd := new(mockNoise)
	nd.On("NTOA").Return(5)

	_, err := BuildMarginalizedNoise(m.phiinv, m.tnt, nd, m.t)
	require.Error(t, err)
	assert.True(t, errors.IsShapeMismatch(err))
	nd.AssertNotCalled(t, "Solve", mock.Anything, mock.Anything)

	_, err = BuildMarginalizedNoise(m.phiinv, mat.NewSymDense(3, nil), nd, m.t)
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestBuildMarginalizedNoise_SolveFailure(t *testing.T) {
	m := newSmallModel(t)

	nd := new(mockNoise)
	nd.On("NTOA").Return(6)
	nd.On("Solve", mock.Anything, mock.Anything).Return(nil, errors.LinearAlgebra(errors.NoPulsar, "ndiag", "boom"))

	_, err := BuildMarginalizedNoise(m.phiinv, m.tnt, nd, m.t)
	assert.True(t, errors.IsLinearAlgebra(err))
	nd.AssertNumberOfCalls(t, "Solve", 1)
}
