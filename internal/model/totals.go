package model

// Totals holds the before/after budget figures in millions.
// Deficit is revenue minus spending: negative is a shortfall, positive a surplus.
type Totals struct {
	OriginalRevenue  float64 `json:"original_revenue" yaml:"original_revenue"`
	OriginalSpending float64 `json:"original_spending" yaml:"original_spending"`
	OriginalDeficit  float64 `json:"original_deficit" yaml:"original_deficit"`
	AdjustedRevenue  float64 `json:"adjusted_revenue" yaml:"adjusted_revenue"`
	AdjustedSpending float64 `json:"adjusted_spending" yaml:"adjusted_spending"`
	AdjustedDeficit  float64 `json:"adjusted_deficit" yaml:"adjusted_deficit"`
}

// Comparison is one before/after metric row.
type Comparison struct {
	Label  string
	Before float64
	After  float64
}

// Delta returns After - Before.
func (c Comparison) Delta() float64 {
	return c.After - c.Before
}

// Comparisons returns revenue, spending and deficit rows in display order.
func (t Totals) Comparisons() []Comparison {
	return []Comparison{
		{Label: "Revenue", Before: t.OriginalRevenue, After: t.AdjustedRevenue},
		{Label: "Spending", Before: t.OriginalSpending, After: t.AdjustedSpending},
		{Label: "Deficit", Before: t.OriginalDeficit, After: t.AdjustedDeficit},
	}
}
