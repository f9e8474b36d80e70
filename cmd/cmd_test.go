package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ilbudget/internal/adjust"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/source"
)

func TestParseAssignment(t *testing.T) {
	name, pct, err := parseAssignment("Highway Funds=10")
	require.NoError(t, err)
	assert.Equal(t, "Highway Funds", name)
	assert.Equal(t, 10.0, pct)

	name, pct, err = parseAssignment(" Road=Bridge Fund = -2.5% ")
	require.NoError(t, err)
	assert.Equal(t, "Road=Bridge Fund", name)
	assert.Equal(t, -2.5, pct)

	for _, bad := range []string{"Highway Funds", "=5", "A=", "A=five"} {
		_, _, err := parseAssignment(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyAdjustments(t *testing.T) {
	reg := model.NewRegistry([]model.CategoryInfo{
		{Name: "A", Revenue: true},
		{Name: "B"},
	})
	cats := []string{"A", "B"}

	set := adjust.New()
	set.Register(cats, reg)
	err := applyAdjustments(set, adjustmentArgs{
		SpendAll:    -10,
		SpendAllSet: true,
		Categories:  []string{"A=5"},
		Funds:       []string{"F1=20"},
	}, cats, reg)
	require.NoError(t, err)

	assert.Equal(t, 5.0, set.Category("A"))
	assert.Equal(t, -10.0, set.Category("B"))
	assert.Equal(t, 20.0, set.Effective("F1", "A"))
	assert.Equal(t, 5.0, set.Effective("F2", "A"))
}

func TestApplyAdjustments_RevenueScope(t *testing.T) {
	reg := model.NewRegistry([]model.CategoryInfo{
		{Name: "A", Revenue: true},
		{Name: "B"},
	})
	cats := []string{"A", "B"}

	set := adjust.New()
	require.NoError(t, applyAdjustments(set, adjustmentArgs{RevAll: 3, RevAllSet: true}, cats, reg))
	assert.Equal(t, 3.0, set.Category("A"))
	assert.Equal(t, 0.0, set.Category("B"))
}

func TestApplyAdjustments_OutOfRange(t *testing.T) {
	set := adjust.New()
	err := applyAdjustments(set, adjustmentArgs{Categories: []string{"A=150"}}, nil, model.DefaultRegistry())
	assert.ErrorIs(t, err, adjust.ErrOutOfRange)

	err = applyAdjustments(set, adjustmentArgs{SpendAll: -101, SpendAllSet: true}, nil, model.DefaultRegistry())
	assert.ErrorIs(t, err, adjust.ErrOutOfRange)
	assert.True(t, set.IsZero())
}

func TestSortFunds(t *testing.T) {
	funds := []model.FundAggregate{
		{Category: "B", Fund: "Zeta", Millions: 5},
		{Category: "A", Fund: "Alpha", Millions: 1},
		{Category: "B", Fund: "Beta", Millions: 9},
	}

	require.NoError(t, sortFunds(funds, "amount"))
	assert.Equal(t, "Beta", funds[0].Fund)
	assert.Equal(t, "Alpha", funds[2].Fund)

	require.NoError(t, sortFunds(funds, "name"))
	assert.Equal(t, []string{"Alpha", "Beta", "Zeta"}, fundNames(funds))

	require.NoError(t, sortFunds(funds, "category"))
	assert.Equal(t, []string{"Alpha", "Beta", "Zeta"}, fundNames(funds))

	assert.Error(t, sortFunds(funds, "size"))
}

func fundNames(funds []model.FundAggregate) []string {
	out := make([]string, len(funds))
	for i, f := range funds {
		out[i] = f.Fund
	}
	return out
}

func TestWriteStructured(t *testing.T) {
	report := summaryReport{
		Dataset: "fy25.xlsx",
		Funds:   2,
		Totals:  model.Totals{OriginalRevenue: 100, AdjustedRevenue: 110},
	}

	var js bytes.Buffer
	require.NoError(t, writeStructured(&js, "json", report))
	assert.Contains(t, js.String(), `"dataset": "fy25.xlsx"`)
	assert.Contains(t, js.String(), `"adjusted_revenue": 110`)

	var ym bytes.Buffer
	require.NoError(t, writeStructured(&ym, "yaml", report))
	assert.Contains(t, ym.String(), "dataset: fy25.xlsx")
	assert.Contains(t, ym.String(), "  adjusted_revenue: 110")

	assert.Error(t, writeStructured(&ym, "xml", report))
}

func TestDropWarning(t *testing.T) {
	assert.Empty(t, dropWarning(source.DropReport{TotalRows: 10, Kept: 10}))
	assert.Equal(t,
		"3 of 1,200 rows dropped (1 missing a field, 2 non-numeric amount)",
		dropWarning(source.DropReport{TotalRows: 1200, Kept: 1197, Missing: 1, NonNumeric: 2}))
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"summary", "funds", "categories", "tui", "serve", "config", "setup", "cache"}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}
