package pipeline

import "github.com/theirongolddev/ilbudget/internal/model"

// Resolver supplies the effective adjustment percentage for a fund.
type Resolver interface {
	Effective(fund, category string) float64
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(fund, category string) float64

// Effective calls f.
func (f ResolverFunc) Effective(fund, category string) float64 { return f(fund, category) }

// Recompute derives original and adjusted revenue, spending and deficit from
// fund aggregates. Spending covers every fund; revenue covers funds whose
// category the registry marks as revenue-generating. A nil resolver means no
// adjustments, which reproduces the original figures exactly.
func Recompute(funds []model.FundAggregate, reg *model.Registry, r Resolver) model.Totals {
	var t model.Totals
	for _, f := range funds {
		pct := 0.0
		if r != nil {
			pct = r.Effective(f.Fund, f.Category)
		}
		adjusted := f.Millions
		if pct != 0 {
			adjusted = f.Millions * (1 + pct/100)
		}

		t.OriginalSpending += f.Millions
		t.AdjustedSpending += adjusted
		if reg != nil && reg.IsRevenue(f.Category) {
			t.OriginalRevenue += f.Millions
			t.AdjustedRevenue += adjusted
		}
	}
	t.OriginalDeficit = t.OriginalRevenue - t.OriginalSpending
	t.AdjustedDeficit = t.AdjustedRevenue - t.AdjustedSpending
	return t
}
