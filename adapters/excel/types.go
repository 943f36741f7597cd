package excel

// RawRowData represents one table row as column name to cell text
type RawRowData map[string]string

// ExcelData represents a table read from a sheet or CSV file
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
