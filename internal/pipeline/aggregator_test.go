package pipeline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ilbudget/internal/model"
)

func rec(category, fund string, millions float64) model.AppropriationRecord {
	return model.AppropriationRecord{
		Category:       category,
		Fund:           fund,
		Amount:         millions * 1_000_000,
		AmountMillions: millions,
	}
}

func TestAggregate_GroupsAndShares(t *testing.T) {
	agg := Aggregate([]model.AppropriationRecord{
		rec("B", "F3", 50),
		rec("A", "F2", 150),
		rec("A", "F1", 100),
		rec("A", "F2", 50),
	})

	want := []model.FundAggregate{
		{Category: "A", Fund: "F1", Millions: 100, CategoryTotal: 300, FundShare: 100.0 / 3, CategoryShare: 300.0 / 350 * 100},
		{Category: "A", Fund: "F2", Millions: 200, CategoryTotal: 300, FundShare: 200.0 / 3, CategoryShare: 300.0 / 350 * 100},
		{Category: "B", Fund: "F3", Millions: 50, CategoryTotal: 50, FundShare: 100, CategoryShare: 50.0 / 350 * 100},
	}
	if diff := cmp.Diff(want, agg.Funds, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 350.0, agg.GrandTotal, 1e-9)
	assert.Equal(t, []string{"A", "B"}, agg.CategoryNames())
	assert.InDelta(t, 300.0, agg.CategoryTotal("A"), 1e-9)
	assert.Zero(t, agg.CategoryTotal("missing"))
	assert.Len(t, agg.FundsIn("A"), 2)
}

func TestAggregate_SharesSumToHundred(t *testing.T) {
	agg := Aggregate([]model.AppropriationRecord{
		rec("General Funds", "GRF", 12.3),
		rec("General Funds", "Education Assistance", 45.6),
		rec("Highway Funds", "Road Fund", 7.8),
		rec("Highway Funds", "Bridge Fund", 0.9),
		rec("Revolving Funds", "Print Shop", 1.1),
	})

	var catSum float64
	for _, c := range agg.CategoryNames() {
		var fundSum, millions float64
		for _, f := range agg.FundsIn(c) {
			fundSum += f.FundShare
			millions += f.Millions
		}
		assert.InDelta(t, 100.0, fundSum, 1e-9, c)
		assert.InDelta(t, agg.CategoryTotal(c), millions, 1e-9, c)
		catSum += agg.FundsIn(c)[0].CategoryShare
	}
	assert.InDelta(t, 100.0, catSum, 1e-9)
}

func TestAggregate_ZeroTotals(t *testing.T) {
	agg := Aggregate([]model.AppropriationRecord{
		rec("Offset", "Plus", 5),
		rec("Offset", "Minus", -5),
	})

	require.Len(t, agg.Funds, 2)
	for _, f := range agg.Funds {
		assert.Zero(t, f.FundShare)
		assert.Zero(t, f.CategoryShare)
		assert.False(t, math.IsNaN(f.FundShare))
	}
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)
	assert.Empty(t, agg.Funds)
	assert.Zero(t, agg.GrandTotal)
	assert.Empty(t, agg.Categories(model.DefaultRegistry()))
}

func TestAggregation_Categories(t *testing.T) {
	agg := Aggregate([]model.AppropriationRecord{
		rec("General Funds", "GRF", 75),
		rec("General Funds", "Common School", 25),
		rec("Mystery Funds", "Unknown", 100),
	})

	stats := agg.Categories(model.DefaultRegistry())
	require.Len(t, stats, 2)
	assert.Equal(t, "General Funds", stats[0].Category)
	assert.True(t, stats[0].Revenue)
	assert.Equal(t, 2, stats[0].Funds)
	assert.InDelta(t, 50.0, stats[0].Share, 1e-9)
	assert.NotEmpty(t, stats[0].Description)

	assert.False(t, stats[1].Revenue)
	assert.Empty(t, stats[1].Description)
}

func TestFilterByCategory(t *testing.T) {
	agg := Aggregate([]model.AppropriationRecord{
		rec("General Funds", "GRF", 1),
		rec("Highway Funds", "Road Fund", 1),
	})

	got := FilterByCategory(agg.Funds, "highway")
	require.Len(t, got, 1)
	assert.Equal(t, "Road Fund", got[0].Fund)
	assert.Len(t, FilterByCategory(agg.Funds, ""), 2)
}
