package app

import (
	"math"
	"sort"

	"gofestat/domain/pta"
	"gofestat/domain/stats"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Summarize reduces a sky map to its extremes and distribution. Non-finite
// points are counted and otherwise ignored.
func Summarize(grid pta.SkyGrid, values []float64) stats.SkyMapSummary {
	summary := stats.SkyMapSummary{Points: len(values), ArgMax: -1, MaxFAP: 1}

	finite := make([]float64, 0, len(values))
	index := make([]int, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			summary.NonFinite++
			continue
		}
		finite = append(finite, v)
		index = append(index, i)
	}
	if len(finite) == 0 {
		return summary
	}

	best := floats.MaxIdx(finite)
	summary.Max = finite[best]
	summary.ArgMax = index[best]
	if summary.ArgMax < len(grid) {
		summary.MaxPos = grid[summary.ArgMax]
	}
	summary.Min = floats.Min(finite)
	summary.MaxFAP = FalseAlarmProbability(summary.Max)

	// montanaflynn/stats only fails on empty input, which is excluded above
	summary.Mean, _ = mstats.Mean(finite)
	summary.Median, _ = mstats.Median(finite)
	summary.P95, _ = mstats.Percentile(finite, 95)
	summary.StdDev, _ = mstats.StandardDeviation(finite)
	return summary
}

// SkyPoint is one grid point of a run with its statistic
type SkyPoint struct {
	Index int             `json:"index"`
	Pos   pta.SkyPosition `json:"pos"`
	Fe    float64         `json:"fe"`
}

// TopPoints returns the n loudest finite points, loudest first
func TopPoints(run *stats.FeRun, n int) []SkyPoint {
	points := make([]SkyPoint, 0, len(run.Values))
	for i, v := range run.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || i >= len(run.Grid) {
			continue
		}
		points = append(points, SkyPoint{Index: i, Pos: run.Grid[i], Fe: v})
	}
	sort.SliceStable(points, func(a, b int) bool { return points[a].Fe > points[b].Fe })
	if n >= 0 && len(points) > n {
		points = points[:n]
	}
	return points
}
