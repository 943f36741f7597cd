package excel

// Column names of the pulsar table, in either a workbook sheet or a CSV file
const (
	ColPulsar   = "pulsar"
	ColTheta    = "theta"
	ColPhi      = "phi"
	ColTOA      = "toa"
	ColResidual = "residual"
)

// ExcelConfig names the sheets read and written by this package
type ExcelConfig struct {
	PulsarSheet  string `json:"pulsar_sheet"`
	SummarySheet string `json:"summary_sheet"`
	SkyMapSheet  string `json:"sky_map_sheet"`
}

// DefaultExcelConfig returns the sheet names used by the commands
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		PulsarSheet:  "TOAs",
		SummarySheet: "Summary",
		SkyMapSheet:  "SkyMap",
	}
}
