package stats

import (
	"encoding/json"
	"math"

	"gofestat/domain/core"
	"gofestat/domain/pta"
)

// Values is a sky map in grid order. NaN and ±Inf encode as JSON null.
type Values []float64

func (v Values) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) && !math.IsInf(v[i], 0) {
			out[i] = &v[i]
		}
	}
	return json.Marshal(out)
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var in []*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Values, len(in))
	for i, p := range in {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*v = out
	return nil
}

// SkyMapSummary condenses a sky map into the numbers reported per run
type SkyMapSummary struct {
	Points    int             `json:"points"`
	Max       float64         `json:"max"`
	ArgMax    int             `json:"arg_max"`    // -1 when no point is finite
	MaxPos    pta.SkyPosition `json:"max_pos"`
	Min       float64         `json:"min"`
	Mean      float64         `json:"mean"`
	Median    float64         `json:"median"`
	P95       float64         `json:"p95"`
	StdDev    float64         `json:"std_dev"`
	MaxFAP    float64         `json:"max_fap"`    // single-point false alarm probability of Max
	NonFinite int             `json:"non_finite"` // NaN/Inf points excluded from the statistics
}

// FeRun is one Fe-statistic sky map at a fixed GW frequency
type FeRun struct {
	ID          core.RunID     `json:"id" db:"id"`
	Frequency   float64        `json:"frequency" db:"frequency"`
	Brave       bool           `json:"brave" db:"brave"`
	PulsarNames []string       `json:"pulsars"`
	InputHash   core.Hash      `json:"input_hash" db:"input_hash"`
	Grid        pta.SkyGrid    `json:"grid"`
	Values      Values         `json:"values"`
	Summary     SkyMapSummary  `json:"summary"`
	CreatedAt   core.Timestamp `json:"created_at"`
	DurationMS  int64          `json:"duration_ms" db:"duration_ms"`
}
