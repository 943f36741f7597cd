package ports

import (
	"context"

	"gofestat/domain/pta"
)

// FeEvaluator computes Fe-statistic sky maps for one pulsar array
type FeEvaluator interface {
	// ComputeFe returns one value per grid point, in grid order
	ComputeFe(ctx context.Context, f0 float64, grid pta.SkyGrid, brave bool) ([]float64, error)

	// Pulsars returns the array the evaluator was built for
	Pulsars() []*pta.Pulsar
}
