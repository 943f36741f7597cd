package ports

import (
	"context"

	"gofestat/domain/core"
	"gofestat/domain/stats"
)

// RunRepository defines the interface for persisted Fe-statistic sky maps
type RunRepository interface {
	// Save inserts or replaces a run
	Save(ctx context.Context, run *stats.FeRun) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id core.RunID) (*stats.FeRun, error)

	// List returns the most recent runs, newest first
	List(ctx context.Context, limit int) ([]*stats.FeRun, error)
}
