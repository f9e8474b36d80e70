package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/config"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/tui/components"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldDataPath = iota
	settingsFieldSheet
	settingsFieldTheme
	settingsFieldCategoryColumn
	settingsFieldFundColumn
	settingsFieldAmountColumn
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 50
	return ti
}

// settingValue returns the live value of a field.
func (a *App) settingValue(field int) string {
	cols := a.opts.Load.Columns
	switch field {
	case settingsFieldDataPath:
		return a.opts.Load.Path
	case settingsFieldSheet:
		return a.opts.Load.Sheet
	case settingsFieldTheme:
		return theme.Active.Name
	case settingsFieldCategoryColumn:
		return cols.Category
	case settingsFieldFundColumn:
		return cols.Fund
	case settingsFieldAmountColumn:
		return cols.Amount
	}
	return ""
}

func (a *App) updateSettingsKeys(key string) (bool, tea.Cmd) {
	switch key {
	case "j", "down":
		a.settings.cursor = min(a.settings.cursor+1, settingsFieldCount-1)
	case "k", "up":
		a.settings.cursor = max(a.settings.cursor-1, 0)
	case "enter":
		return true, a.settingsStartEdit()
	default:
		return false, nil
	}
	return true, nil
}

func (a *App) settingsStartEdit() tea.Cmd {
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldSheet:
		ti.Placeholder = "first sheet"
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
	}
	ti.SetValue(a.settingValue(a.settings.cursor))
	ti.CursorEnd()
	ti.Focus()
	a.settings.input = ti
	return textinput.Blink
}

func (a *App) updateSettingsInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		reload := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		if reload && a.settings.saveErr == nil {
			return a.startReload()
		}
		return nil
	case "esc":
		a.settings.editing = false
		return nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return cmd
}

// settingsSave persists the edited field. It reports whether the dataset
// must be reloaded.
func (a *App) settingsSave() bool {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())
	a.settings.saveErr = nil

	load := a.opts.Load
	switch a.settings.cursor {
	case settingsFieldDataPath:
		if err := ValidateDatasetPath(val); err != nil {
			a.settings.saveErr = err
			return false
		}
		SetupValues{DataPath: val}.Apply(&cfg)
		load.Path = cfg.General.DataPath
	case settingsFieldSheet:
		cfg.General.Sheet = val
		load.Sheet = val
	case settingsFieldTheme:
		if !theme.Exists(val) {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return false
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldCategoryColumn, settingsFieldFundColumn, settingsFieldAmountColumn:
		if val == "" {
			a.settings.saveErr = fmt.Errorf("column name cannot be empty")
			return false
		}
		switch a.settings.cursor {
		case settingsFieldCategoryColumn:
			cfg.General.CategoryColumn = val
			load.Columns.Category = val
		case settingsFieldFundColumn:
			cfg.General.FundColumn = val
			load.Columns.Fund = val
		default:
			cfg.General.AmountColumn = val
			load.Columns.Amount = val
		}
	}

	a.settings.saveErr = config.Save(cfg)
	changed := load != a.opts.Load
	a.opts.Load = load
	return changed
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	labels := [settingsFieldCount]string{
		"Dataset",
		"Sheet",
		"Theme",
		"Category column",
		"Fund column",
		"Amount column",
	}

	var formBody strings.Builder
	for i, label := range labels {
		value := a.settingValue(i)
		if value == "" {
			value = "(default)"
		}

		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			lbl := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", label+":"))
			val := selectedStyle.Render(value)
			formBody.WriteString(marker + lbl + val)
			usedWidth := lipgloss.Width(marker) + lipgloss.Width(lbl) + lipgloss.Width(val)
			if padLen := components.CardInnerWidth(cw) - usedWidth; padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", label+":")))
			formBody.WriteString(valueStyle.Render(value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Config file:  ") + valueStyle.Render(config.Path()) + "\n")
	infoBody.WriteString(labelStyle.Render("Cache file:   ") + valueStyle.Render(pipeline.CachePath()) + "\n")
	cached := "no"
	if a.result != nil && a.result.FromCache {
		cached = "yes"
	}
	infoBody.WriteString(labelStyle.Render("Loaded from cache: ") + valueStyle.Render(cached))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Files", infoBody.String(), cw))
	return b.String()
}
