package source

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ilbudget/internal/model"
)

// ParseRecords maps table rows to appropriation records.
//
// Rows missing a category, fund or amount are dropped, as are rows whose amount
// does not parse as a finite number. Dropped rows are counted in the report; only a
// missing required column is an error.
func ParseRecords(t *Table, cols Columns) ([]model.AppropriationRecord, DropReport, error) {
	var report DropReport

	catIdx, err := columnIndex(t.Header, cols.Category)
	if err != nil {
		return nil, report, err
	}
	fundIdx, err := columnIndex(t.Header, cols.Fund)
	if err != nil {
		return nil, report, err
	}
	amtIdx, err := columnIndex(t.Header, cols.Amount)
	if err != nil {
		return nil, report, err
	}

	records := make([]model.AppropriationRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		rowNum := i + 2 // header is row 1
		report.TotalRows++

		category := strings.TrimSpace(cell(row, catIdx))
		fund := strings.TrimSpace(cell(row, fundIdx))
		rawAmount := strings.TrimSpace(cell(row, amtIdx))

		if category == "" || fund == "" || isBlankAmount(rawAmount) {
			report.Missing++
			report.Rows = append(report.Rows, DroppedRow{Row: rowNum, Reason: DropMissingField, Value: rawAmount})
			continue
		}

		amount, err := ParseAmount(rawAmount)
		if err != nil {
			report.NonNumeric++
			report.Rows = append(report.Rows, DroppedRow{Row: rowNum, Reason: DropNonNumeric, Value: rawAmount})
			continue
		}

		dollars, _ := amount.Float64()
		millions, _ := amount.Shift(-6).Float64()
		if !finite(dollars) || !finite(millions) {
			report.NonNumeric++
			report.Rows = append(report.Rows, DroppedRow{Row: rowNum, Reason: DropNonNumeric, Value: rawAmount})
			continue
		}
		records = append(records, model.AppropriationRecord{
			Row:            rowNum,
			Category:       category,
			Fund:           fund,
			Amount:         dollars,
			AmountMillions: millions,
		})
	}

	report.Kept = len(records)
	return records, report, nil
}

// ParseAmount parses a currency cell such as "1234.5", "$1,234", "(500)" or "1.2E+06".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	if f, _ := d.Float64(); !finite(f) {
		return decimal.Zero, fmt.Errorf("amount %q out of range", raw)
	}
	return d, nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// isBlankAmount treats empty cells and the accounting placeholder "-" as missing.
func isBlankAmount(s string) bool {
	return s == "" || s == "-" || strings.EqualFold(s, "nan")
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// columnIndex finds name in header, exact match first, then case-insensitive.
func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}
