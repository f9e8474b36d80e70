package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/adjust"
	"github.com/theirongolddev/ilbudget/internal/cli"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/tui/components"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type rowKind int

const (
	rowGlobal rowKind = iota
	rowCategory
	rowFund
)

// adjustRow is one selectable line in the Spending or Revenue tab.
type adjustRow struct {
	kind     rowKind
	category string
	fund     model.FundAggregate
}

// adjustState tracks one adjustment tab. Spending and Revenue share the
// App's adjust.Set; only the scope and cursor differ.
type adjustState struct {
	scope    adjust.Scope
	cursor   int
	expanded map[string]bool
	editing  bool
	input    textinput.Model
	target   adjustRow
	err      error
}

const gaugeWidth = 16

func newAdjustState(scope adjust.Scope) adjustState {
	return adjustState{scope: scope, expanded: make(map[string]bool)}
}

func (s *adjustState) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *adjustState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

// scopeCategories lists the categories a tab adjusts: all of them for
// Spending, the revenue-generating ones for Revenue.
func (a *App) scopeCategories(scope adjust.Scope) []string {
	names := a.agg.CategoryNames()
	if scope == adjust.ScopeSpending {
		return names
	}
	var out []string
	for _, c := range names {
		if a.opts.Registry.IsRevenue(c) {
			out = append(out, c)
		}
	}
	return out
}

func (a *App) adjustRows(s *adjustState) []adjustRow {
	rows := []adjustRow{{kind: rowGlobal}}
	for _, c := range a.scopeCategories(s.scope) {
		rows = append(rows, adjustRow{kind: rowCategory, category: c})
		if s.expanded[c] {
			for _, f := range a.agg.FundsIn(c) {
				rows = append(rows, adjustRow{kind: rowFund, category: c, fund: f})
			}
		}
	}
	return rows
}

// rowPercent returns the percentage shown for a row. inherited is true for
// funds without an override, whose value comes from their category.
func (a *App) rowPercent(scope adjust.Scope, r adjustRow) (pct float64, inherited bool) {
	switch r.kind {
	case rowGlobal:
		return a.adj.Global(scope), false
	case rowCategory:
		return a.adj.Category(r.category), false
	}
	if v, ok := a.adj.Fund(r.fund.Fund); ok {
		return v, false
	}
	return a.adj.Effective(r.fund.Fund, r.category), true
}

func (a *App) applyPercent(scope adjust.Scope, r adjustRow, pct float64) error {
	var err error
	switch r.kind {
	case rowGlobal:
		err = a.adj.SetGlobal(scope, pct, a.agg.CategoryNames(), a.opts.Registry)
	case rowCategory:
		err = a.adj.SetCategory(r.category, pct)
	case rowFund:
		err = a.adj.SetFund(r.fund.Fund, pct)
	}
	if err != nil {
		return err
	}
	a.recompute()
	return nil
}

// categoryTotals returns a category's total before and after adjustments.
func (a *App) categoryTotals(category string) (before, after float64) {
	for _, f := range a.agg.FundsIn(category) {
		before += f.Millions
		after += f.Millions * (1 + a.adj.Effective(f.Fund, f.Category)/100)
	}
	return before, after
}

func (a *App) updateAdjustKeys(s *adjustState, key string) (bool, tea.Cmd) {
	rows := a.adjustRows(s)
	s.clamp(len(rows))
	row := rows[s.cursor]

	switch key {
	case "j", "down":
		s.move(1, len(rows))
	case "k", "up":
		s.move(-1, len(rows))
	case "g", "home":
		s.cursor = 0
	case "G", "end":
		s.cursor = len(rows) - 1
	case "enter":
		return true, a.startAdjustEdit(s, row)
	case "a":
		s.cursor = 0
		return true, a.startAdjustEdit(s, rows[0])
	case " ":
		a.toggleExpand(s, row)
	case "+", "=":
		a.nudge(s, row, 1)
	case "-", "_":
		a.nudge(s, row, -1)
	case "0":
		s.err = a.applyPercent(s.scope, row, 0)
	default:
		return false, nil
	}
	return true, nil
}

func (a *App) toggleExpand(s *adjustState, row adjustRow) {
	switch row.kind {
	case rowCategory:
		s.expanded[row.category] = !s.expanded[row.category]
	case rowFund:
		// Collapse the parent and land on it
		s.expanded[row.category] = false
		for i, r := range a.adjustRows(s) {
			if r.kind == rowCategory && r.category == row.category {
				s.cursor = i
				break
			}
		}
	}
	s.clamp(len(a.adjustRows(s)))
}

func (a *App) nudge(s *adjustState, row adjustRow, delta float64) {
	pct, _ := a.rowPercent(s.scope, row)
	pct = max(adjust.MinPercent, min(pct+delta, adjust.MaxPercent))
	s.err = a.applyPercent(s.scope, row, pct)
}

func (a *App) startAdjustEdit(s *adjustState, row adjustRow) tea.Cmd {
	ti := textinput.New()
	ti.Placeholder = "-100..100"
	ti.CharLimit = 8
	ti.Width = 10
	pct, _ := a.rowPercent(s.scope, row)
	ti.SetValue(strconv.FormatFloat(pct, 'f', -1, 64))
	ti.CursorEnd()
	ti.Focus()

	s.input = ti
	s.editing = true
	s.target = row
	s.err = nil
	return textinput.Blink
}

func (a *App) updateAdjustInput(s *adjustState, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		pct, err := parsePercent(s.input.Value())
		if err == nil {
			err = a.applyPercent(s.scope, s.target, pct)
		}
		if err != nil {
			// Stay in edit mode so the value can be corrected
			s.err = err
			return nil
		}
		s.editing = false
		s.err = nil
		return nil
	case "esc":
		s.editing = false
		s.err = nil
		return nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

// parsePercent accepts "5", "-12.5" or "+5%".
func parsePercent(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func (a App) renderAdjustTab(s *adjustState, cw, h int) string {
	t := theme.Active
	rows := a.adjustRows(s)

	listW, sideW := cw, cw
	split := cw >= 120
	if split {
		listW = cw * 3 / 5
		sideW = cw - listW
	}
	innerW := components.CardInnerWidth(listW)

	// Window the rows around the cursor
	visible := max(3, h-5)
	if !split {
		visible = max(3, h-16)
	}
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	end := min(len(rows), start+visible)

	amountW := 26
	nameW := max(10, innerW-2-gaugeWidth-8-amountW-2)

	baseStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	globalStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	var body strings.Builder
	for i := start; i < end; i++ {
		r := rows[i]
		pct, inherited := a.rowPercent(s.scope, r)

		marker := space.Render("  ")
		if i == s.cursor {
			marker = markerStyle.Render("▸ ")
		}

		var name string
		var before, after float64
		nameStyle := baseStyle
		switch r.kind {
		case rowGlobal:
			name = "Adjust All"
			nameStyle = globalStyle
			if s.scope == adjust.ScopeRevenue {
				before, after = a.totals.OriginalRevenue, a.totals.AdjustedRevenue
			} else {
				before, after = a.totals.OriginalSpending, a.totals.AdjustedSpending
			}
		case rowCategory:
			icon := "▸ "
			if s.expanded[r.category] {
				icon = "▾ "
			}
			name = icon + r.category
			before, after = a.categoryTotals(r.category)
		case rowFund:
			name = "    " + r.fund.Fund
			before = r.fund.Millions
			after = r.fund.Millions * (1 + a.adj.Effective(r.fund.Fund, r.category)/100)
			if inherited {
				nameStyle = mutedStyle
			}
		}

		body.WriteString(marker)
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(name, nameW))))
		body.WriteString(space.Render("  "))

		if s.editing && i == s.cursor {
			body.WriteString(s.input.View())
		} else {
			body.WriteString(components.AdjustmentGauge(pct, gaugeWidth))
			amount := cli.FormatMillions(before) + " → " + cli.FormatMillions(after)
			body.WriteString(space.Render("  "))
			body.WriteString(dimStyle.Render(fmt.Sprintf("%*s", amountW, cli.Truncate(amount, amountW))))
		}
		if i < end-1 {
			body.WriteString("\n")
		}
	}
	if end < len(rows) {
		body.WriteString("\n")
		body.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(rows)-end)))
	}

	title := "Spending Adjustments · all categories"
	if s.scope == adjust.ScopeRevenue {
		title = "Revenue Adjustments · revenue categories"
	}
	list := components.ContentCard(title, body.String(), listW)
	side := components.ContentCard("Effect", a.renderAdjustSide(s, rows, components.CardInnerWidth(sideW)), sideW)

	if split {
		return components.CardRow([]string{list, side})
	}
	return list + "\n" + side
}

// renderAdjustSide shows totals plus details for the selected row.
func (a App) renderAdjustSide(s *adjustState, rows []adjustRow, w int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	var b strings.Builder
	for _, c := range a.totals.Comparisons() {
		delta := lipgloss.NewStyle().Foreground(deltaColor(c.Label, c.Delta())).Background(t.Surface)
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", c.Label)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%10s → %-10s", cli.FormatBillions(c.Before), cli.FormatBillions(c.After))))
		b.WriteString(delta.Render(" " + cli.FormatDelta(c.Before, c.After)))
		b.WriteString("\n")
	}

	if s.err != nil {
		b.WriteString("\n")
		msg := s.err.Error()
		if errors.Is(s.err, adjust.ErrOutOfRange) {
			msg = "Percent must be between -100 and 100"
		}
		b.WriteString(errStyle.Render(cli.Truncate(msg, w)))
		b.WriteString("\n")
	}

	if s.cursor < 0 || s.cursor >= len(rows) {
		return strings.TrimRight(b.String(), "\n")
	}
	r := rows[s.cursor]
	b.WriteString("\n")
	switch r.kind {
	case rowGlobal:
		b.WriteString(headStyle.Render("Adjust All"))
		b.WriteString("\n")
		scope := "every category"
		if s.scope == adjust.ScopeRevenue {
			scope = "every revenue category"
		}
		b.WriteString(dimStyle.Render(cli.Truncate("Applies to "+scope+" not edited individually.", w)))
	case rowCategory:
		b.WriteString(headStyle.Render(cli.Truncate(r.category, w)))
		b.WriteString("\n")
		if desc := a.opts.Registry.Description(r.category); desc != "" {
			b.WriteString(dimStyle.Render(cli.Truncate(desc, w)))
			b.WriteString("\n")
		}
		total := a.agg.CategoryTotal(r.category)
		share := 0.0
		if a.agg.GrandTotal != 0 {
			share = total / a.agg.GrandTotal * 100
		}
		b.WriteString(labelStyle.Render("Funds:     ") + valueStyle.Render(strconv.Itoa(len(a.agg.FundsIn(r.category)))) + "\n")
		b.WriteString(labelStyle.Render("Total:     ") + valueStyle.Render(cli.FormatMillions(total)) + "\n")
		b.WriteString(labelStyle.Render("Of budget: ") + valueStyle.Render(cli.FormatPercent(share)))
	case rowFund:
		pct, inherited := a.rowPercent(s.scope, r)
		b.WriteString(headStyle.Render(cli.Truncate(r.fund.Fund, w)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Category:  ") + valueStyle.Render(cli.Truncate(r.category, w-11)) + "\n")
		b.WriteString(labelStyle.Render("Amount:    ") + valueStyle.Render(cli.FormatMillions(r.fund.Millions)) + "\n")
		b.WriteString(labelStyle.Render("Of cat.:   ") + valueStyle.Render(cli.FormatPercent(r.fund.FundShare)) + "\n")
		src := "override"
		if inherited {
			src = "from category"
		}
		b.WriteString(labelStyle.Render("Applied:   ") + valueStyle.Render(cli.FormatAdjustment(pct)) + dimStyle.Render(" ("+src+")"))
	}
	return b.String()
}

// deltaColor colors a change by whether it helps the budget.
func deltaColor(label string, delta float64) lipgloss.Color {
	t := theme.Active
	if delta == 0 {
		return t.TextDim
	}
	good := delta > 0
	if label == "Spending" {
		good = !good
	}
	if good {
		return t.Green
	}
	return t.Red
}
