package source

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var header = []string{"Fund Category Name", "Fund Name", "FY25 Act Approp"}

// writeCSV creates a temp csv file from rows (header included).
func writeCSV(t *testing.T, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

// writeWorkbook creates a temp xlsx file with one sheet.
func writeWorkbook(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &r))
	}
	path := filepath.Join(t.TempDir(), "budget.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseRecords_DropsIncompleteRows(t *testing.T) {
	tbl := &Table{
		Header: header,
		Rows: [][]string{
			{"General Funds", "GRF", "1500000"},
			{"", "Orphan", "100"},
			{"General Funds", "", "100"},
			{"General Funds", "Blank", ""},
			{"General Funds", "Text", "n/a"},
			{"Highway Funds", "Road Fund", "$2,000,000.50"},
			{"Highway Funds", "Short Row"},
		},
	}

	records, report, err := ParseRecords(tbl, DefaultColumns)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "GRF", records[0].Fund)
	assert.InDelta(t, 1.5, records[0].AmountMillions, 1e-12)
	assert.Equal(t, 2, records[0].Row)
	assert.InDelta(t, 2_000_000.50, records[1].Amount, 1e-9)

	assert.Equal(t, 7, report.TotalRows)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 4, report.Missing)
	assert.Equal(t, 1, report.NonNumeric)
	assert.Equal(t, 5, report.Dropped())
	assert.Equal(t, DroppedRow{Row: 6, Reason: DropNonNumeric, Value: "n/a"}, report.Rows[3])
}

func TestParseRecords_DropsOverflowingAmounts(t *testing.T) {
	tbl := &Table{
		Header: header,
		Rows: [][]string{
			{"General Funds", "F1", "1e400"},
			{"General Funds", "F2", "100000000"},
			{"General Funds", "F3", "-1e400"},
		},
	}

	records, report, err := ParseRecords(tbl, DefaultColumns)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "F2", records[0].Fund)
	assert.InDelta(t, 100.0, records[0].AmountMillions, 1e-9)

	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 2, report.NonNumeric)
	assert.Equal(t, 0, report.Missing)
	assert.Equal(t, DroppedRow{Row: 2, Reason: DropNonNumeric, Value: "1e400"}, report.Rows[0])
	assert.Equal(t, DroppedRow{Row: 4, Reason: DropNonNumeric, Value: "-1e400"}, report.Rows[1])
}

func TestParseRecords_MissingColumn(t *testing.T) {
	tbl := &Table{Header: []string{"Fund Category Name", "Fund Name"}}

	_, _, err := ParseRecords(tbl, DefaultColumns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestParseRecords_CaseInsensitiveHeader(t *testing.T) {
	tbl := &Table{
		Header: []string{" fund category name ", "FUND NAME", "fy25 act approp"},
		Rows:   [][]string{{"General Funds", "GRF", "10"}},
	}

	records, _, err := ParseRecords(tbl, DefaultColumns)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234", "1234"},
		{"$1,234.56", "1234.56"},
		{"(500)", "-500"},
		{"-42.5", "-42.5"},
		{"1.5E+06", "1500000"},
		{" 7 ", "7"},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.String(), tc.in)
	}

	for _, bad := range []string{"abc", "$", "Inf", "12..3", "1e400", "-1e400", "(1e400)"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadTable_CSV(t *testing.T) {
	path := writeCSV(t,
		header,
		[]string{"General Funds", "GRF", "100"},
		[]string{"Highway Funds", "Road Fund", "200"},
	)

	tbl, err := ReadTable(path, "")
	require.NoError(t, err)
	assert.Equal(t, header, tbl.Header)
	assert.Len(t, tbl.Rows, 2)
}

func TestReadTable_Workbook(t *testing.T) {
	path := writeWorkbook(t,
		[]any{"Fund Category Name", "Fund Name", "FY25 Act Approp"},
		[]any{"General Funds", "GRF", 100000000},
		[]any{"Federal Trust Funds", "Medicaid", 2.5e6},
	)

	tbl, err := ReadTable(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", tbl.Sheet)

	records, report, err := ParseRecords(tbl, DefaultColumns)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, report.Dropped())
	assert.InDelta(t, 100.0, records[0].AmountMillions, 1e-9)
	assert.InDelta(t, 2.5, records[1].AmountMillions, 1e-9)
}

func TestReadTable_Errors(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "missing.csv"), "")
	var dsErr *DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, "open", dsErr.Op)

	_, err = ReadTable("budget.json", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = ReadTable(empty, "")
	assert.ErrorIs(t, err, ErrEmptyTable)
}
