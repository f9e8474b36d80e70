// Package source reads appropriations tables from xlsx or csv files and
// turns them into cleaned records.
package source

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn means a required column is absent from the header row.
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupportedFormat means the file extension is neither .xlsx nor .csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyTable means the sheet has no header row.
	ErrEmptyTable = errors.New("table has no header row")
)

// DataSourceError is returned when the dataset cannot be used at all.
// It is fatal to the session: nothing should be rendered from a partial load.
type DataSourceError struct {
	Path string
	Op   string
	Err  error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Columns names the three required header cells.
type Columns struct {
	Category string `toml:"category_column"`
	Fund     string `toml:"fund_column"`
	Amount   string `toml:"amount_column"`
}

// DefaultColumns matches the FY25 appropriations workbook.
var DefaultColumns = Columns{
	Category: "Fund Category Name",
	Fund:     "Fund Name",
	Amount:   "FY25 Act Approp",
}

// Table is a raw sheet: the header row plus data rows.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// DropReason classifies a row excluded during parsing.
type DropReason string

const (
	DropMissingField DropReason = "missing field"
	DropNonNumeric   DropReason = "non-numeric amount"
)

// DroppedRow records one excluded row for diagnostics.
type DroppedRow struct {
	Row    int
	Reason DropReason
	Value  string
}

// DropReport counts rows excluded as data-quality warnings. These are not errors.
type DropReport struct {
	TotalRows  int
	Kept       int
	Missing    int
	NonNumeric int
	Rows       []DroppedRow
}

// Dropped returns the total number of excluded rows.
func (r DropReport) Dropped() int {
	return r.Missing + r.NonNumeric
}
