// Package fe computes the Fe-statistic, the frequentist detection statistic
// for a continuous gravitational wave from a single supermassive black hole
// binary, over a grid of sky positions at a fixed GW frequency.
//
// The statistic at a sky position is 0.5 · Nᵀ M⁺ N, where N holds the
// noise-weighted projections of the timing residuals onto the signal
// quadratures and M their Gram matrix, both weighted by the antenna pattern of
// every pulsar and summed over the array.
package fe

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"gofestat/adapters/stats/antenna"
	"gofestat/domain/pta"
	"gofestat/internal"
	"gofestat/internal/config"
	"gofestat/internal/errors"
	"gofestat/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Projection holds the sky-independent inner products of one pulsar at one
// frequency: N[i] = (A_i | residuals) and M[i][j] = (A_i | A_j).
type Projection struct {
	N [4]float64
	M [4][4]float64
}

type projectionKey struct {
	f0    float64
	brave bool
}

// FeStat evaluates the Fe-statistic for a fixed pulsar array and noise model.
// It is safe for concurrent use.
type FeStat struct {
	psrs    []*pta.Pulsar
	params  pta.NoiseParams
	model   ports.Model
	antenna ports.AntennaPatternFunc
	workers int
	rcond   float64
	logger  *internal.Logger

	mu        sync.Mutex
	nmats     []*mat.SymDense
	cache     map[projectionKey][]Projection
	cacheSize int
}

// Option configures a FeStat
type Option func(*FeStat)

// WithAntennaPattern replaces the default antenna-pattern function
func WithAntennaPattern(f ports.AntennaPatternFunc) Option {
	return func(fe *FeStat) { fe.antenna = f }
}

// WithWorkers bounds the number of pulsars or sky points evaluated concurrently
func WithWorkers(n int) Option {
	return func(fe *FeStat) {
		if n > 0 {
			fe.workers = n
		}
	}
}

// WithPinvRcond sets the relative singular-value cutoff of the pseudo-inverse
func WithPinvRcond(rcond float64) Option {
	return func(fe *FeStat) { fe.rcond = rcond }
}

// WithProjectionCache sets how many (frequency, brave) projection sets are
// kept. Zero disables the cache.
func WithProjectionCache(size int) Option {
	return func(fe *FeStat) { fe.cacheSize = size }
}

// WithLogger sets the logger
func WithLogger(l *internal.Logger) Option {
	return func(fe *FeStat) { fe.logger = l.WithPrefix("FeStat") }
}

// WithEngineConfig applies worker, cutoff and cache settings from configuration
func WithEngineConfig(cfg config.EngineConfig) Option {
	return func(fe *FeStat) {
		WithWorkers(cfg.Workers)(fe)
		fe.rcond = cfg.PinvRcond
		fe.cacheSize = cfg.ProjectionCache
	}
}

// New validates the pulsar array and builds its timing/noise model with the
// continuous-wave configuration. The model is built exactly once.
func New(psrs []*pta.Pulsar, params pta.NoiseParams, builder ports.ModelBuilder, opts ...Option) (*FeStat, error) {
	if err := pta.ValidateArray(psrs); err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, errors.InvalidInput("model builder is required")
	}

	def := config.Default()
	fe := &FeStat{
		psrs:      psrs,
		params:    params,
		antenna:   antenna.Pattern,
		workers:   def.Engine.Workers,
		rcond:     def.Engine.PinvRcond,
		logger:    internal.DefaultLogger.WithPrefix("FeStat"),
		cache:     make(map[projectionKey][]Projection),
		cacheSize: def.Engine.ProjectionCache,
	}
	for _, opt := range opts {
		opt(fe)
	}

	fe.logger.Info("Initializing the model for %d pulsars...", len(psrs))
	model, err := builder.Build(psrs, params, pta.ContinuousWaveModel())
	if err != nil {
		return nil, errors.Wrap(err, "failed to build timing/noise model")
	}
	if model == nil {
		return nil, errors.InternalError("model builder returned no model")
	}
	fe.model = model
	return fe, nil
}

// Pulsars returns the pulsar array the statistic was built for
func (fe *FeStat) Pulsars() []*pta.Pulsar {
	return fe.psrs
}

// Invalidate drops the cached noise matrices and projections, e.g. after the
// caller changed residuals in place.
func (fe *FeStat) Invalidate() {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.nmats = nil
	fe.cache = make(map[projectionKey][]Projection)
}

// ComputeFe returns the Fe-statistic at every point of grid for GW frequency
// f0, in grid order. Sky points are independent of each other.
func (fe *FeStat) ComputeFe(ctx context.Context, f0 float64, grid pta.SkyGrid, brave bool) ([]float64, error) {
	start := time.Now()
	proj, err := fe.projections(ctx, f0, brave)
	if err != nil {
		return nil, err
	}

	fstat, err := fe.skyMap(ctx, proj, grid)
	if err != nil {
		return nil, err
	}
	fe.logger.Debug("f0=%g: %d sky points in %v", f0, len(grid), time.Since(start))
	return fstat, nil
}

// Projections returns the per-pulsar inner products at f0. They do not depend
// on sky position, so a sky scan computes them once. The result is a copy of
// the cached set.
func (fe *FeStat) Projections(ctx context.Context, f0 float64, brave bool) ([]Projection, error) {
	proj, err := fe.projections(ctx, f0, brave)
	if err != nil {
		return nil, err
	}
	return slices.Clone(proj), nil
}

func (fe *FeStat) projections(ctx context.Context, f0 float64, brave bool) ([]Projection, error) {
	if !(f0 > 0) || math.IsInf(f0, 0) {
		return nil, errors.InvalidInput("GW frequency must be positive and finite")
	}
	// residual lengths are checked on every call, cached or not, since the
	// caller owns the pulsars
	if err := pta.ValidateArray(fe.psrs); err != nil {
		return nil, err
	}

	key := projectionKey{f0: f0, brave: brave}
	fe.mu.Lock()
	cached, ok := fe.cache[key]
	fe.mu.Unlock()
	if ok {
		return cached, nil
	}

	in, err := fe.fetchInputs()
	if err != nil {
		return nil, err
	}
	nmats, err := fe.marginalizedNoise(ctx, in)
	if err != nil {
		return nil, err
	}

	proj := make([]Projection, len(fe.psrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fe.workers)
	for p := range fe.psrs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pr, err := projectPulsar(fe.psrs[p], nmats[p], in.basis[p], in.sigma[p], f0, brave)
			if err != nil {
				return errors.AtPulsar(p, err)
			}
			proj[p] = pr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fe.mu.Lock()
	if fe.cacheSize > 0 {
		if len(fe.cache) >= fe.cacheSize {
			fe.cache = make(map[projectionKey][]Projection)
		}
		fe.cache[key] = proj
	}
	fe.mu.Unlock()
	return proj, nil
}

// Nmats returns the cached marginalized noise matrices, building them on first use
func (fe *FeStat) Nmats(ctx context.Context) ([]*mat.SymDense, error) {
	in, err := fe.fetchInputs()
	if err != nil {
		return nil, err
	}
	return fe.marginalizedNoise(ctx, in)
}

type modelInputs struct {
	tnt    []mat.Symmetric
	phiinv []mat.Matrix
	basis  []mat.Matrix
	sigma  []*mat.SymDense
}

// fetchInputs pulls TNT, phiinv and T from the model and checks every shape
// before anything is factored.
func (fe *FeStat) fetchInputs() (*modelInputs, error) {
	tnts, err := fe.model.TNT(fe.params)
	if err != nil {
		return nil, errors.Wrap(err, "model TNT")
	}
	phiinvs, err := fe.model.PhiInv(fe.params)
	if err != nil {
		return nil, errors.Wrap(err, "model phiinv")
	}
	bases, err := fe.model.Basis(fe.params)
	if err != nil {
		return nil, errors.Wrap(err, "model basis")
	}

	n := len(fe.psrs)
	counts := []struct {
		name string
		got  int
	}{
		{"tnt", len(tnts)},
		{"phiinv", len(phiinvs)},
		{"basis", len(bases)},
	}
	for _, c := range counts {
		if c.got != n {
			return nil, errors.ShapeMismatch(errors.NoPulsar, c.name, "model returned %d entries for %d pulsars", c.got, n)
		}
	}

	in := &modelInputs{tnt: tnts, phiinv: phiinvs, basis: bases, sigma: make([]*mat.SymDense, n)}
	for p, psr := range fe.psrs {
		tr, tc := bases[p].Dims()
		if tr != psr.NTOA() {
			return nil, errors.ShapeMismatch(p, "basis", "%d rows for %d TOAs", tr, psr.NTOA())
		}
		if tnts[p].SymmetricDim() != tc {
			return nil, errors.ShapeMismatch(p, "tnt", "size %d for %d basis columns", tnts[p].SymmetricDim(), tc)
		}
		sigma, err := SigmaMatrix(tnts[p], phiinvs[p])
		if err != nil {
			return nil, errors.AtPulsar(p, err)
		}
		in.sigma[p] = sigma
	}
	return in, nil
}

// marginalizedNoise returns the Nmat cache, populating it once. The build runs
// under the lock so that concurrent callers never build twice.
func (fe *FeStat) marginalizedNoise(ctx context.Context, in *modelInputs) ([]*mat.SymDense, error) {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.nmats != nil {
		for p, nm := range fe.nmats {
			if nm.SymmetricDim() != fe.psrs[p].NTOA() {
				return nil, errors.ShapeMismatch(p, "nmat",
					"cached size %d for %d TOAs; call Invalidate after changing pulsars", nm.SymmetricDim(), fe.psrs[p].NTOA())
			}
		}
		return fe.nmats, nil
	}

	start := time.Now()
	nvecs, err := fe.model.NoiseDescriptors(fe.params)
	if err != nil {
		return nil, errors.Wrap(err, "model noise descriptors")
	}
	if len(nvecs) != len(fe.psrs) {
		return nil, errors.ShapeMismatch(errors.NoPulsar, "ndiag",
			"model returned %d entries for %d pulsars", len(nvecs), len(fe.psrs))
	}

	nmats := make([]*mat.SymDense, len(fe.psrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fe.workers)
	for p := range fe.psrs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			nm, err := BuildMarginalizedNoise(in.phiinv[p], in.tnt[p], nvecs[p], in.basis[p])
			if err != nil {
				return errors.AtPulsar(p, err)
			}
			nmats[p] = nm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fe.nmats = nmats
	fe.logger.Debug("built %d marginalized noise matrices in %v", len(nmats), time.Since(start))
	return nmats, nil
}

// projectPulsar computes N and M for one pulsar
func projectPulsar(psr *pta.Pulsar, nmat mat.Matrix, t mat.Matrix, sigma mat.Symmetric, f0 float64, brave bool) (Projection, error) {
	var pr Projection

	rr, err := NewRankReduced(nmat, t, sigma, brave)
	if err != nil {
		return pr, err
	}

	a := SignalBasis(psr.TOAs, f0)
	var rows [4]*Prepared
	for i := range rows {
		rows[i], err = rr.Prepare(a.RowView(i))
		if err != nil {
			return pr, err
		}
	}
	res, err := rr.Prepare(mat.NewVecDense(psr.NTOA(), psr.Residuals))
	if err != nil {
		return pr, err
	}

	for i := 0; i < 4; i++ {
		pr.N[i] = rr.Inner(rows[i], res)
		for j := 0; j < 4; j++ {
			pr.M[i][j] = rr.Inner(rows[i], rows[j])
		}
	}
	return pr, nil
}

// skyMap fans the grid out in contiguous chunks
func (fe *FeStat) skyMap(ctx context.Context, proj []Projection, grid pta.SkyGrid) ([]float64, error) {
	fstat := make([]float64, len(grid))
	if len(grid) == 0 {
		return fstat, nil
	}

	chunk := (len(grid) + 4*fe.workers - 1) / (4 * fe.workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fe.workers)
	for lo := 0; lo < len(grid); lo += chunk {
		hi := min(lo+chunk, len(grid))
		g.Go(func() error {
			fplus := make([]float64, len(fe.psrs))
			fcross := make([]float64, len(fe.psrs))
			for k := lo; k < hi; k++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for p, psr := range fe.psrs {
					fplus[p], fcross[p], _ = fe.antenna(psr.Pos, grid[k].Theta, grid[k].Phi)
				}
				fstat[k] = Statistic(proj, fplus, fcross, fe.rcond)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fstat, nil
}

// Statistic combines per-pulsar projections with their antenna-pattern
// weights (F+, F+, F×, F×) and returns 0.5 · N_sumᵀ · pinv(M_sum) · N_sum.
// A non-finite sum yields NaN rather than an error.
func Statistic(proj []Projection, fplus, fcross []float64, rcond float64) float64 {
	var nsum [4]float64
	msum := make([]float64, 16)
	for p, pr := range proj {
		w := [4]float64{fplus[p], fplus[p], fcross[p], fcross[p]}
		for i := 0; i < 4; i++ {
			nsum[i] += w[i] * pr.N[i]
			for j := 0; j < 4; j++ {
				msum[4*i+j] += w[i] * w[j] * pr.M[i][j]
			}
		}
	}

	for _, v := range append(msum, nsum[:]...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.NaN()
		}
	}

	minv, err := PseudoInverse(mat.NewDense(4, 4, msum), rcond)
	if err != nil {
		return math.NaN()
	}
	nv := mat.NewVecDense(4, nsum[:])
	var mn mat.VecDense
	mn.MulVec(minv, nv)
	return 0.5 * mat.Dot(nv, &mn)
}
