package config

import "github.com/theirongolddev/ilbudget/internal/model"

// CategoryOverride changes or adds one registry entry. Nil fields keep the
// built-in value.
type CategoryOverride struct {
	Name        string  `toml:"name"`
	Description *string `toml:"description,omitempty"`
	Revenue     *bool   `toml:"revenue,omitempty"`
}

// Registry returns the built-in categories with the config overrides applied.
// Overrides for unknown names are appended in config order.
func (c Config) Registry() *model.Registry {
	base := model.DefaultRegistry()
	entries := base.All()
	for _, o := range c.Categories {
		if o.Name == "" {
			continue
		}
		info, _ := base.Lookup(o.Name)
		info.Name = o.Name
		if o.Description != nil {
			info.Description = *o.Description
		}
		if o.Revenue != nil {
			info.Revenue = *o.Revenue
		}
		entries = append(entries, info)
	}
	return model.NewRegistry(entries)
}
