package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadTable reads the first row of path as a header and the rest as data.
// For workbooks, sheet selects the worksheet; "" means the first one.
func ReadTable(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path, sheet)
	case ".csv":
		return readCSV(path)
	default:
		return nil, &DataSourceError{Path: path, Op: "open", Err: ErrUnsupportedFormat}
	}
}

func readWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DataSourceError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &DataSourceError{Path: path, Op: "read", Err: ErrEmptyTable}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &DataSourceError{Path: path, Op: "read sheet " + sheet, Err: err}
	}
	if len(rows) == 0 {
		return nil, &DataSourceError{Path: path, Op: "read sheet " + sheet, Err: ErrEmptyTable}
	}

	return &Table{Sheet: sheet, Header: rows[0], Rows: rows[1:]}, nil
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the local user
	if err != nil {
		return nil, &DataSourceError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, &DataSourceError{Path: path, Op: "read", Err: ErrEmptyTable}
	}
	if err != nil {
		return nil, &DataSourceError{Path: path, Op: "read", Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Header: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataSourceError{Path: path, Op: fmt.Sprintf("read row %d", len(t.Rows)+2), Err: err}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
