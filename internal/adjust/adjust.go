// Package adjust holds the per-session percentage adjustments applied to
// category and fund aggregates.
package adjust

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/theirongolddev/ilbudget/internal/model"
)

// Percent bounds accepted by every setter.
const (
	MinPercent = -100.0
	MaxPercent = 100.0
)

// ErrOutOfRange is returned for a percentage outside [MinPercent, MaxPercent] or NaN.
var ErrOutOfRange = errors.New("adjustment out of range")

// Scope selects which categories a global adjustment reaches.
type Scope string

const (
	// ScopeSpending covers every category.
	ScopeSpending Scope = "spending"
	// ScopeRevenue covers the revenue-generating categories only.
	ScopeRevenue Scope = "revenue"
)

// ParseScope converts a user-supplied name to a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeSpending, ScopeRevenue:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (want spending or revenue)", s)
}

// Set is one session's adjustments. The zero value is not usable; call New.
// A Set is not safe for concurrent use.
type Set struct {
	category map[string]float64
	fund     map[string]float64
	edited   map[string]bool // categories set individually since the last global change
	global   map[Scope]float64
}

// New returns an empty adjustment set.
func New() *Set {
	s := &Set{}
	s.Reset()
	return s
}

func validate(pct float64) error {
	if math.IsNaN(pct) || pct < MinPercent || pct > MaxPercent {
		return fmt.Errorf("%w: %v (want %v..%v)", ErrOutOfRange, pct, MinPercent, MaxPercent)
	}
	return nil
}

// SetCategory sets the adjustment for every fund in category.
func (s *Set) SetCategory(category string, pct float64) error {
	if err := validate(pct); err != nil {
		return err
	}
	s.category[category] = pct
	s.edited[category] = true
	return nil
}

// SetFund sets an override for a single fund. Zero removes the override so
// the fund falls back to its category value.
func (s *Set) SetFund(fund string, pct float64) error {
	if err := validate(pct); err != nil {
		return err
	}
	if pct == 0 {
		delete(s.fund, fund)
		return nil
	}
	s.fund[fund] = pct
	return nil
}

// Category returns the stored category percentage, 0 when unset.
func (s *Set) Category(category string) float64 {
	return s.category[category]
}

// Fund returns the fund override and whether one is set.
func (s *Set) Fund(fund string) (float64, bool) {
	v, ok := s.fund[fund]
	return v, ok
}

// Global returns the last global value for scope.
func (s *Set) Global(scope Scope) float64 {
	return s.global[scope]
}

// Effective returns the percentage applied to fund within category: a nonzero
// fund override wins, otherwise the category value, otherwise 0.
func (s *Set) Effective(fund, category string) float64 {
	if v, ok := s.fund[fund]; ok && v != 0 {
		return v
	}
	return s.category[category]
}

// Register makes sure every listed category has an entry. New entries start
// at the global value for their scope.
func (s *Set) Register(categories []string, reg *model.Registry) {
	for _, c := range categories {
		if _, ok := s.category[c]; ok {
			continue
		}
		s.category[c] = s.defaultFor(c, reg)
	}
}

func (s *Set) defaultFor(category string, reg *model.Registry) float64 {
	if reg != nil && reg.IsRevenue(category) {
		if v, ok := s.global[ScopeRevenue]; ok {
			return v
		}
	}
	return s.global[ScopeSpending]
}

// SetGlobal applies pct to every category in scope that has not been edited
// individually. Spending covers all categories; Revenue covers the categories
// reg marks as revenue. The value also seeds categories registered later.
func (s *Set) SetGlobal(scope Scope, pct float64, categories []string, reg *model.Registry) error {
	if err := validate(pct); err != nil {
		return err
	}
	if scope != ScopeSpending && scope != ScopeRevenue {
		return fmt.Errorf("unknown scope %q", scope)
	}
	s.global[scope] = pct
	for _, c := range categories {
		if scope == ScopeRevenue && (reg == nil || !reg.IsRevenue(c)) {
			continue
		}
		if s.edited[c] {
			continue
		}
		s.category[c] = pct
	}
	return nil
}

// Reset clears every adjustment.
func (s *Set) Reset() {
	s.category = make(map[string]float64)
	s.fund = make(map[string]float64)
	s.edited = make(map[string]bool)
	s.global = make(map[Scope]float64)
}

// IsZero reports whether no adjustment would change any figure.
func (s *Set) IsZero() bool {
	if len(s.fund) > 0 {
		return false
	}
	for _, v := range s.category {
		if v != 0 {
			return false
		}
	}
	return true
}

// Entry is one line of the adjustment log.
type Entry struct {
	Kind    string  `json:"kind" yaml:"kind"` // "category" or "fund"
	Name    string  `json:"name" yaml:"name"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// String renders the entry as "Name: +5.0%".
func (e Entry) String() string {
	return fmt.Sprintf("%s: %+.1f%%", e.Name, e.Percent)
}

// Log lists nonzero category adjustments in the given display order, followed
// by categories not in order (sorted), then fund overrides sorted by name.
func (s *Set) Log(order []string) []Entry {
	var out []Entry
	seen := make(map[string]bool, len(order))
	for _, c := range order {
		seen[c] = true
		if v := s.category[c]; v != 0 {
			out = append(out, Entry{Kind: "category", Name: c, Percent: v})
		}
	}
	var rest []string
	for c, v := range s.category {
		if !seen[c] && v != 0 {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	for _, c := range rest {
		out = append(out, Entry{Kind: "category", Name: c, Percent: s.category[c]})
	}

	funds := make([]string, 0, len(s.fund))
	for f := range s.fund {
		funds = append(funds, f)
	}
	sort.Strings(funds)
	for _, f := range funds {
		out = append(out, Entry{Kind: "fund", Name: f, Percent: s.fund[f]})
	}
	return out
}

// Resolve returns the effective percentage for each fund in funds, keyed by
// fund name. Funds without an adjustment map to 0.
func (s *Set) Resolve(funds []model.FundAggregate) map[string]float64 {
	out := make(map[string]float64, len(funds))
	for _, f := range funds {
		out[f.Fund] = s.Effective(f.Fund, f.Category)
	}
	return out
}

// Snapshot is a serializable copy of a Set.
type Snapshot struct {
	Categories       map[string]float64 `json:"categories" yaml:"categories"`
	Funds            map[string]float64 `json:"funds" yaml:"funds"`
	GlobalSpending   float64            `json:"global_spending" yaml:"global_spending"`
	GlobalRevenue    float64            `json:"global_revenue" yaml:"global_revenue"`
	EditedCategories []string           `json:"edited_categories,omitempty" yaml:"edited_categories,omitempty"`
}

// Snapshot copies the current state.
func (s *Set) Snapshot() Snapshot {
	snap := Snapshot{
		Categories:     make(map[string]float64, len(s.category)),
		Funds:          make(map[string]float64, len(s.fund)),
		GlobalSpending: s.global[ScopeSpending],
		GlobalRevenue:  s.global[ScopeRevenue],
	}
	for k, v := range s.category {
		snap.Categories[k] = v
	}
	for k, v := range s.fund {
		snap.Funds[k] = v
	}
	for k := range s.edited {
		snap.EditedCategories = append(snap.EditedCategories, k)
	}
	sort.Strings(snap.EditedCategories)
	return snap
}
