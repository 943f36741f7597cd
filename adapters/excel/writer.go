package excel

import (
	"log"
	"math"
	"strings"

	"gofestat/domain/pta"
	"gofestat/domain/stats"
	"gofestat/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Writer saves pulsar tables and sky maps as workbooks
type Writer struct {
	config ExcelConfig
}

// NewWriter creates a workbook writer
func NewWriter(config ExcelConfig) *Writer {
	return &Writer{config: config}
}

// WritePulsars writes the long-format pulsar table read by ReadPulsars
func (w *Writer) WritePulsars(path string, psrs []*pta.Pulsar) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.config.PulsarSheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "failed to name pulsar sheet")
	}
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{ColPulsar, ColTheta, ColPhi, ColTOA, ColResidual}); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	row := 2
	for _, p := range psrs {
		theta, phi := direction(p.Pos)
		for i := range p.TOAs {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheet, cell, &[]interface{}{p.Name, theta, phi, p.TOAs[i], p.Residuals[i]}); err != nil {
				return errors.Wrapf(err, "failed to write row %d", row)
			}
			row++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", path)
	}
	log.Printf("[ExcelWriter] Wrote %d TOA rows for %d pulsars to %s", row-2, len(psrs), path)
	return nil
}

// WriteSkyMap writes a run summary sheet and a per-point sky map sheet.
// Non-finite statistic values are left blank.
func (w *Writer) WriteSkyMap(path string, run *stats.FeRun) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := w.config.SummarySheet
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return errors.Wrap(err, "failed to name summary sheet")
	}
	s := run.Summary
	rows := [][]interface{}{
		{"run_id", run.ID.String()},
		{"frequency_hz", run.Frequency},
		{"brave", run.Brave},
		{"pulsars", strings.Join(run.PulsarNames, ",")},
		{"input_hash", run.InputHash.String()},
		{"created_at", run.CreatedAt.Time().Format("2006-01-02T15:04:05Z07:00")},
		{"duration_ms", run.DurationMS},
		{"points", s.Points},
		{"non_finite", s.NonFinite},
		{"max", s.Max},
		{"arg_max", s.ArgMax},
		{"max_theta", s.MaxPos.Theta},
		{"max_phi", s.MaxPos.Phi},
		{"max_fap", s.MaxFAP},
		{"mean", s.Mean},
		{"median", s.Median},
		{"p95", s.P95},
		{"std_dev", s.StdDev},
		{"min", s.Min},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &r); err != nil {
			return errors.Wrapf(err, "failed to write summary row %d", i+1)
		}
	}

	sky := w.config.SkyMapSheet
	if _, err := f.NewSheet(sky); err != nil {
		return errors.Wrap(err, "failed to create sky map sheet")
	}
	if err := f.SetSheetRow(sky, "A1", &[]interface{}{"index", ColTheta, ColPhi, "fe"}); err != nil {
		return errors.Wrap(err, "failed to write sky map header")
	}
	for i, pos := range run.Grid {
		var fe interface{} = ""
		if i < len(run.Values) && !math.IsNaN(run.Values[i]) && !math.IsInf(run.Values[i], 0) {
			fe = run.Values[i]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sky, cell, &[]interface{}{i, pos.Theta, pos.Phi, fe}); err != nil {
			return errors.Wrapf(err, "failed to write sky point %d", i)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", path)
	}
	log.Printf("[ExcelWriter] Wrote sky map %s (%d points) to %s", run.ID, len(run.Grid), path)
	return nil
}

// WriteSkyMap writes a run with the default sheet names
func WriteSkyMap(path string, run *stats.FeRun) error {
	return NewWriter(DefaultExcelConfig()).WriteSkyMap(path, run)
}

// direction converts a unit vector back to (theta, phi) with phi in [0, 2π)
func direction(pos [3]float64) (theta, phi float64) {
	norm := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
	theta = math.Acos(pos[2] / norm)
	phi = math.Atan2(pos[1], pos[0])
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return theta, phi
}
