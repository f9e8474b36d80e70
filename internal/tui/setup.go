package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/config"
	"github.com/theirongolddev/ilbudget/internal/source"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues are the answers collected by the first-run form.
type SetupValues struct {
	DataPath string
	Theme    string
}

// NewSetupForm builds the first-run form. Answers are written into v.
func NewSetupForm(v *SetupValues) *huh.Form {
	if v.Theme == "" {
		v.Theme = theme.Active.Name
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to ilbudget").
				Description("Point ilbudget at an appropriations workbook (.xlsx) or CSV export.\nYou can change these later with `ilbudget setup` or the Settings tab."),
			huh.NewInput().
				Title("Dataset path").
				Placeholder("~/Downloads/fy25_appropriations.xlsx").
				Value(&v.DataPath).
				Validate(ValidateDatasetPath),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		),
	).WithShowHelp(true)
}

// ValidateDatasetPath checks that p names a readable .xlsx or .csv file.
func ValidateDatasetPath(p string) error {
	p = expandHome(strings.TrimSpace(p))
	if p == "" {
		return errors.New("dataset path is required")
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".xlsx", ".csv":
	default:
		return fmt.Errorf("%w: want .xlsx or .csv", source.ErrUnsupportedFormat)
	}
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("cannot open dataset: %w", err)
	}
	if info.IsDir() {
		return errors.New("dataset path is a directory")
	}
	return nil
}

// Apply writes the answers into cfg and activates the chosen theme.
func (v SetupValues) Apply(cfg *config.Config) {
	if p := expandHome(strings.TrimSpace(v.DataPath)); p != "" {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		cfg.General.DataPath = p
	}
	if theme.Exists(v.Theme) {
		cfg.Appearance.Theme = v.Theme
		theme.SetActive(v.Theme)
	}
}

func (a *App) saveSetupConfig() error {
	cfg := loadConfigOrDefault()
	a.setupVals.Apply(&cfg)
	a.opts.Load.Path = cfg.General.DataPath
	return config.Save(cfg)
}

// loadConfigOrDefault loads config, returning defaults on error.
// This ensures the TUI can always start even if config is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
