package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gofestat/domain/pta"
	"gofestat/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading pulsar tables from Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ExcelConfig
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, config ExcelConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, config: config}
}

// ReadData reads the pulsar table into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, errors.InvalidInput("unsupported file type: " + r.fileType)
	}
}

func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.config.PulsarSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", r.config.PulsarSheet)
	}
	log.Printf("[DataReader] Sheet %s read in %.2fms (%d rows)",
		r.config.PulsarSheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput("pulsar table must have a header row and at least one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		empty := true
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
				empty = empty && rowData[headers[j]] == ""
			}
		}
		if !empty {
			dataRows = append(dataRows, rowData)
		}
	}

	return &ExcelData{Headers: headers, Rows: dataRows}, nil
}

// ReadPulsars reads the table and groups rows into pulsars in order of first
// appearance. Every row of a pulsar must carry the same theta and phi.
func (r *DataReader) ReadPulsars() ([]*pta.Pulsar, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColPulsar, ColTheta, ColPhi, ColTOA, ColResidual} {
		if !hasHeader(data.Headers, col) {
			return nil, errors.InvalidInput("pulsar table is missing column " + col)
		}
	}

	var psrs []*pta.Pulsar
	byName := make(map[string]*pta.Pulsar)
	positions := make(map[string]pta.SkyPosition)

	for i, row := range data.Rows {
		line := i + 2
		name := row[ColPulsar]
		if name == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("row %d: pulsar name is empty", line))
		}
		vals, err := parseFloats(row, line, ColTheta, ColPhi, ColTOA, ColResidual)
		if err != nil {
			return nil, err
		}
		pos := pta.SkyPosition{Theta: vals[0], Phi: vals[1]}

		psr, ok := byName[name]
		if !ok {
			psr = &pta.Pulsar{Name: name, Pos: pta.UnitVector(pos.Theta, pos.Phi)}
			byName[name] = psr
			positions[name] = pos
			psrs = append(psrs, psr)
		} else if positions[name] != pos {
			return nil, errors.InvalidInput(fmt.Sprintf("row %d: pulsar %s changes position", line, name))
		}
		psr.TOAs = append(psr.TOAs, vals[2])
		psr.Residuals = append(psr.Residuals, vals[3])
	}

	if err := pta.ValidateArray(psrs); err != nil {
		return nil, err
	}
	log.Printf("[DataReader] Loaded %d pulsars from %s", len(psrs), r.filePath)
	return psrs, nil
}

// ReadPulsars loads pulsars from an xlsx or csv file using the default sheet names
func ReadPulsars(path string) ([]*pta.Pulsar, error) {
	return NewDataReader(path, DefaultExcelConfig()).ReadPulsars()
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func parseFloats(row RawRowData, line int, cols ...string) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, col := range cols {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("row %d: column %s: %q is not a number", line, col, row[col]))
		}
		out[i] = v
	}
	return out, nil
}
