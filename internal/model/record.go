// Package model defines domain types for appropriations, fund aggregates and budget totals.
package model

// AppropriationRecord is one cleaned row of the source dataset.
type AppropriationRecord struct {
	Row            int // 1-based row in the source sheet, header included
	Category       string
	Fund           string
	Amount         float64 // dollars
	AmountMillions float64
}

// FundAggregate is the rollup for one (category, fund) pair.
type FundAggregate struct {
	Category      string  `json:"category" yaml:"category"`
	Fund          string  `json:"fund" yaml:"fund"`
	Millions      float64 `json:"millions" yaml:"millions"`
	CategoryTotal float64 `json:"category_total" yaml:"category_total"`
	FundShare     float64 `json:"fund_share_pct" yaml:"fund_share_pct"`         // % of category total
	CategoryShare float64 `json:"category_share_pct" yaml:"category_share_pct"` // % of grand total
}

// CategoryStats holds the per-category rollup used by listings and the adjustment tabs.
type CategoryStats struct {
	Category    string  `json:"category" yaml:"category"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Revenue     bool    `json:"revenue" yaml:"revenue"`
	Funds       int     `json:"funds" yaml:"funds"`
	Millions    float64 `json:"millions" yaml:"millions"`
	Share       float64 `json:"share_pct" yaml:"share_pct"`
}
