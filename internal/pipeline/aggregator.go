// Package pipeline orchestrates dataset loading, caching, aggregation and budget recomputation.
package pipeline

import (
	"sort"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/model"
)

// Aggregation is the grouped view of a dataset: one row per (category, fund),
// ordered by category then fund.
type Aggregation struct {
	Funds      []model.FundAggregate `json:"funds" yaml:"funds"`
	GrandTotal float64               `json:"grand_total" yaml:"grand_total"`

	categories []string
	totals     map[string]float64
	funds      map[string][]model.FundAggregate
}

type pairKey struct {
	category string
	fund     string
}

// Aggregate groups records by (category, fund) and computes fund and category shares.
// A zero category total yields 0% fund shares; a zero grand total yields 0% category shares.
func Aggregate(records []model.AppropriationRecord) Aggregation {
	sums := make(map[pairKey]float64)
	for _, r := range records {
		sums[pairKey{r.Category, r.Fund}] += r.AmountMillions
	}

	funds := make([]model.FundAggregate, 0, len(sums))
	for k, v := range sums {
		funds = append(funds, model.FundAggregate{
			Category: k.category,
			Fund:     k.fund,
			Millions: v,
		})
	}
	sort.Slice(funds, func(i, j int) bool {
		if funds[i].Category != funds[j].Category {
			return funds[i].Category < funds[j].Category
		}
		return funds[i].Fund < funds[j].Fund
	})

	agg := Aggregation{
		totals: make(map[string]float64),
		funds:  make(map[string][]model.FundAggregate),
	}

	// Totals are accumulated in sorted order so repeated runs are bit-identical.
	for _, f := range funds {
		if _, seen := agg.totals[f.Category]; !seen {
			agg.categories = append(agg.categories, f.Category)
		}
		agg.totals[f.Category] += f.Millions
	}
	for _, c := range agg.categories {
		agg.GrandTotal += agg.totals[c]
	}

	for i := range funds {
		f := &funds[i]
		f.CategoryTotal = agg.totals[f.Category]
		f.FundShare = share(f.Millions, f.CategoryTotal)
		f.CategoryShare = share(f.CategoryTotal, agg.GrandTotal)
	}
	agg.Funds = funds

	for _, f := range funds {
		agg.funds[f.Category] = append(agg.funds[f.Category], f)
	}
	return agg
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// CategoryNames returns the categories present in the data, ascending.
func (a Aggregation) CategoryNames() []string {
	out := make([]string, len(a.categories))
	copy(out, a.categories)
	return out
}

// CategoryTotal returns the summed millions for a category, 0 if absent.
func (a Aggregation) CategoryTotal(category string) float64 {
	return a.totals[category]
}

// FundsIn returns the fund rows of one category in fund order.
func (a Aggregation) FundsIn(category string) []model.FundAggregate {
	return a.funds[category]
}

// Categories returns one rollup per category present in the data. Registry
// metadata fills in description and revenue flag; unknown categories are non-revenue.
func (a Aggregation) Categories(reg *model.Registry) []model.CategoryStats {
	out := make([]model.CategoryStats, 0, len(a.categories))
	for _, c := range a.categories {
		st := model.CategoryStats{
			Category: c,
			Funds:    len(a.funds[c]),
			Millions: a.totals[c],
			Share:    share(a.totals[c], a.GrandTotal),
		}
		if reg != nil {
			st.Description = reg.Description(c)
			st.Revenue = reg.IsRevenue(c)
		}
		out = append(out, st)
	}
	return out
}

// FilterByCategory returns fund rows whose category contains filter, case-insensitive.
func FilterByCategory(funds []model.FundAggregate, filter string) []model.FundAggregate {
	if filter == "" {
		return funds
	}
	var out []model.FundAggregate
	for _, f := range funds {
		if containsIgnoreCase(f.Category, filter) {
			out = append(out, f)
		}
	}
	return out
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
