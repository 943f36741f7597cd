package app

import (
	"context"
	"fmt"
	"time"

	"gofestat/domain/core"
	"gofestat/domain/pta"
	"gofestat/domain/stats"
	"gofestat/internal"
	"gofestat/internal/errors"
	"gofestat/ports"
)

// SearchService turns Fe-statistic sky maps into summarized, persisted runs
type SearchService struct {
	evaluator ports.FeEvaluator
	params    pta.NoiseParams
	repo      ports.RunRepository
	logger    *internal.Logger
}

// NewSearchService creates a search service. repo may be nil, in which case
// runs are returned but not stored.
func NewSearchService(evaluator ports.FeEvaluator, params pta.NoiseParams, repo ports.RunRepository) *SearchService {
	return &SearchService{
		evaluator: evaluator,
		params:    params,
		repo:      repo,
		logger:    internal.DefaultLogger.WithPrefix("SearchService"),
	}
}

// Scan evaluates the statistic over grid at f0 and records the run
func (s *SearchService) Scan(ctx context.Context, f0 float64, grid pta.SkyGrid, brave bool) (*stats.FeRun, error) {
	startTime := time.Now()

	values, err := s.evaluator.ComputeFe(ctx, f0, grid, brave)
	if err != nil {
		return nil, fmt.Errorf("sky scan at f0=%g failed: %w", f0, err)
	}

	psrs := s.evaluator.Pulsars()
	names := make([]string, len(psrs))
	for i := range psrs {
		names[i] = pta.Label(psrs, i)
	}

	run := &stats.FeRun{
		ID:          core.NewRunID(),
		Frequency:   f0,
		Brave:       brave,
		PulsarNames: names,
		InputHash:   pta.Fingerprint(psrs, s.params),
		Grid:        grid,
		Values:      values,
		Summary:     Summarize(grid, values),
		CreatedAt:   core.Now(),
		DurationMS:  time.Since(startTime).Milliseconds(),
	}

	if run.Summary.NonFinite > 0 {
		s.logger.Warn("run %s: %d of %d sky points are not finite", run.ID, run.Summary.NonFinite, len(grid))
	}
	s.logger.Info("run %s: f0=%g, %d points, max Fe %.3f at (theta=%.3f, phi=%.3f) in %dms",
		run.ID, f0, len(grid), run.Summary.Max, run.Summary.MaxPos.Theta, run.Summary.MaxPos.Phi, run.DurationMS)

	if s.repo != nil {
		if err := s.repo.Save(ctx, run); err != nil {
			return nil, errors.Wrap(err, "failed to save run")
		}
	}
	return run, nil
}

// ScanFrequencies runs Scan once per frequency, in order. It stops at the
// first failure and returns the runs completed so far.
func (s *SearchService) ScanFrequencies(ctx context.Context, freqs []float64, grid pta.SkyGrid, brave bool) ([]*stats.FeRun, error) {
	if len(freqs) == 0 {
		return nil, errors.InvalidInput("no frequencies to scan")
	}

	runs := make([]*stats.FeRun, 0, len(freqs))
	for _, f0 := range freqs {
		run, err := s.Scan(ctx, f0, grid, brave)
		if err != nil {
			return runs, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Loudest returns the run with the largest maximum, or nil when every run is
// empty or non-finite
func Loudest(runs []*stats.FeRun) *stats.FeRun {
	var best *stats.FeRun
	for _, r := range runs {
		if r == nil || r.Summary.ArgMax < 0 {
			continue
		}
		if best == nil || r.Summary.Max > best.Summary.Max {
			best = r
		}
	}
	return best
}
