package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistryRevenue(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"General Funds", "Highway Funds", "Special State Funds", "Federal Trust Funds"},
		r.RevenueCategories())
	assert.True(t, r.IsRevenue("Highway Funds"))
	assert.False(t, r.IsRevenue("Debt Service Funds"))
	assert.False(t, r.IsRevenue("Not A Category"))
	assert.Equal(t, "", r.Description("Not A Category"))
}

func TestNewRegistryOverrideKeepsPosition(t *testing.T) {
	r := NewRegistry(append(DefaultCategories, CategoryInfo{Name: "Highway Funds", Description: "roads"}))

	all := r.All()
	assert.Len(t, all, len(DefaultCategories))
	assert.Equal(t, "Highway Funds", all[1].Name)
	assert.Equal(t, "roads", all[1].Description)
	assert.False(t, r.IsRevenue("Highway Funds"))
}

func TestTotalsComparisons(t *testing.T) {
	tot := Totals{
		OriginalRevenue: 300, OriginalSpending: 350, OriginalDeficit: -50,
		AdjustedRevenue: 330, AdjustedSpending: 380, AdjustedDeficit: -50,
	}
	rows := tot.Comparisons()
	assert.Len(t, rows, 3)
	assert.Equal(t, "Deficit", rows[2].Label)
	assert.InDelta(t, 30.0, rows[0].Delta(), 1e-9)
	assert.InDelta(t, 0.0, rows[2].Delta(), 1e-9)
}
