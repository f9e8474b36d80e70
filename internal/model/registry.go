package model

// CategoryInfo describes one known fund category.
type CategoryInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Revenue     bool   `json:"revenue" yaml:"revenue"`
}

// Registry is the static fund category configuration, in display order.
type Registry struct {
	entries []CategoryInfo
	index   map[string]int
}

// DefaultCategories is the built-in category list.
var DefaultCategories = []CategoryInfo{
	{Name: "General Funds", Description: "This is the General Funds category.", Revenue: true},
	{Name: "Highway Funds", Description: "This is the Highway Funds category.", Revenue: true},
	{Name: "Special State Funds", Description: "This is the Special State Funds category.", Revenue: true},
	{Name: "Federal Trust Funds", Description: "This is the Federal Trust Funds category.", Revenue: true},
	{Name: "Debt Service Funds", Description: "This is the Debt Service Funds category."},
	{Name: "State Trust Funds", Description: "This is the State Trust Funds category."},
	{Name: "Revolving Funds", Description: "This is the Revolving Funds category."},
	{Name: "Bond Financed Funds", Description: "This is the Bond Financed Funds category."},
}

// NewRegistry builds a registry. Later entries with a duplicate name replace earlier ones in place.
func NewRegistry(categories []CategoryInfo) *Registry {
	r := &Registry{index: make(map[string]int, len(categories))}
	for _, c := range categories {
		if i, ok := r.index[c.Name]; ok {
			r.entries[i] = c
			continue
		}
		r.index[c.Name] = len(r.entries)
		r.entries = append(r.entries, c)
	}
	return r
}

// DefaultRegistry returns a registry over DefaultCategories.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultCategories)
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (CategoryInfo, bool) {
	i, ok := r.index[name]
	if !ok {
		return CategoryInfo{}, false
	}
	return r.entries[i], true
}

// IsRevenue reports whether name is a revenue-generating category.
// Unknown categories are not.
func (r *Registry) IsRevenue(name string) bool {
	info, ok := r.Lookup(name)
	return ok && info.Revenue
}

// Description returns the category description, or "" if unknown.
func (r *Registry) Description(name string) string {
	info, _ := r.Lookup(name)
	return info.Description
}

// All returns a copy of the entries in display order.
func (r *Registry) All() []CategoryInfo {
	out := make([]CategoryInfo, len(r.entries))
	copy(out, r.entries)
	return out
}

// RevenueCategories returns the names of revenue-generating categories in registry order.
func (r *Registry) RevenueCategories() []string {
	var out []string
	for _, c := range r.entries {
		if c.Revenue {
			out = append(out, c.Name)
		}
	}
	return out
}
