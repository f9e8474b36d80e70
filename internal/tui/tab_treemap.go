package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/cli"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/tui/components"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// treemapState tracks the selected fund. cursor indexes treemapFunds.
type treemapState struct {
	cursor int
}

func (s *treemapState) clamp(n int) {
	s.cursor = max(0, min(s.cursor, n-1))
}

func (s *treemapState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

// treemapGroups returns the categories and funds drawn by the treemap.
// Area needs a positive amount, so zero and negative funds are left out.
func (a *App) treemapGroups() ([]components.TreemapNode, [][]model.FundAggregate) {
	var (
		nodes []components.TreemapNode
		funds [][]model.FundAggregate
	)
	for _, c := range a.agg.CategoryNames() {
		var node components.TreemapNode
		var kept []model.FundAggregate
		for _, f := range a.agg.FundsIn(c) {
			if f.Millions <= 0 {
				continue
			}
			node.Children = append(node.Children, components.TreemapNode{Label: f.Fund, Value: f.Millions})
			node.Value += f.Millions
			kept = append(kept, f)
		}
		if len(kept) == 0 {
			continue
		}
		node.Label = c
		nodes = append(nodes, node)
		funds = append(funds, kept)
	}
	return nodes, funds
}

// treemapFunds flattens treemapGroups in selection order.
func (a *App) treemapFunds() []model.FundAggregate {
	_, groups := a.treemapGroups()
	var out []model.FundAggregate
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func (a *App) updateTreemapKeys(key string) bool {
	n := len(a.treemapFunds())
	switch key {
	case "j", "down", "l":
		a.tree.move(1, n)
	case "k", "up", "h":
		a.tree.move(-1, n)
	case "g", "home":
		a.tree.cursor = 0
	case "G", "end":
		a.tree.cursor = max(0, n-1)
	case "J", "pgdown":
		a.tree.cursor = a.nextCategoryStart(1)
	case "K", "pgup":
		a.tree.cursor = a.nextCategoryStart(-1)
	default:
		return false
	}
	return true
}

// nextCategoryStart returns the index of the first fund in the next (dir=1)
// or previous (dir=-1) category.
func (a *App) nextCategoryStart(dir int) int {
	_, groups := a.treemapGroups()
	idx, cur := 0, 0
	starts := make([]int, len(groups))
	for gi, g := range groups {
		starts[gi] = idx
		if a.tree.cursor >= idx && a.tree.cursor < idx+len(g) {
			cur = gi
		}
		idx += len(g)
	}
	if len(starts) == 0 {
		return 0
	}
	next := max(0, min(cur+dir, len(starts)-1))
	return starts[next]
}

func (a App) renderTreemapTab(cw, h int) string {
	t := theme.Active
	nodes, groups := a.treemapGroups()
	if len(nodes) == 0 {
		return components.ContentCard("Treemap", lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
			Render("No funds with a positive amount to draw."), cw)
	}

	// Locate the selected fund's group and item
	selGroup, selItem, idx := 0, 0, 0
	for gi, g := range groups {
		if a.tree.cursor < idx+len(g) {
			selGroup, selItem = gi, a.tree.cursor-idx
			break
		}
		idx += len(g)
	}
	sel := groups[selGroup][selItem]

	const tooltipH = 9
	mapW := components.CardInnerWidth(cw)
	mapH := max(4, h-tooltipH-4)
	cells := components.LayoutTreemap(nodes, mapW, mapH)
	selected := -1
	for i, c := range cells {
		if c.Group == selGroup && c.Item == selItem {
			selected = i
			break
		}
	}

	tree := components.RenderTreemap(cells, mapW, mapH, selected, func(c components.TreemapCell) []string {
		f := groups[c.Group][c.Item]
		return []string{f.Fund, cli.FormatMillions(f.Millions)}
	})
	body := tree + "\n" + a.renderTreemapLegend(nodes, mapW)

	var b strings.Builder
	b.WriteString(components.ContentCard("Appropriations by Category and Fund", body, cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Selected Fund", a.renderFundTooltip(sel, components.CardInnerWidth(cw)), cw))
	return b.String()
}

func (a App) renderTreemapLegend(nodes []components.TreemapNode, w int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	used := 0
	for i, n := range nodes {
		share := 0.0
		if a.agg.GrandTotal != 0 {
			share = a.agg.CategoryTotal(n.Label) / a.agg.GrandTotal * 100
		}
		item := fmt.Sprintf("%s %s", n.Label, cli.FormatPercent(share))
		itemW := lipgloss.Width(item) + 4
		if used+itemW > w {
			break
		}
		b.WriteString(lipgloss.NewStyle().Foreground(t.CategoryColor(i)).Background(t.Surface).Render("■ "))
		b.WriteString(labelStyle.Render(item))
		b.WriteString(space.Render("  "))
		used += itemW
	}
	return b.String()
}

// renderFundTooltip describes the selected fund and its category.
func (a App) renderFundTooltip(f model.FundAggregate, w int) string {
	t := theme.Active
	headStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	pct := a.adj.Effective(f.Fund, f.Category)
	after := f.Millions * (1 + pct/100)
	kind := "non-revenue"
	if a.opts.Registry.IsRevenue(f.Category) {
		kind = "revenue"
	}

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(cli.Truncate(value, max(4, w-18))) + "\n"
	}

	var b strings.Builder
	b.WriteString(headStyle.Render(cli.Truncate(f.Fund, w)))
	b.WriteString("\n")
	b.WriteString(row("Category", f.Category+" ("+kind+")"))
	b.WriteString(row("Appropriation", cli.FormatMillions(f.Millions)))
	b.WriteString(row("Share of category", cli.FormatPercent(f.FundShare)+" of "+cli.FormatMillions(f.CategoryTotal)))
	b.WriteString(row("Category share", cli.FormatPercent(f.CategoryShare)+" of "+cli.FormatMillions(a.agg.GrandTotal)))
	b.WriteString(row("Adjustment", cli.FormatAdjustment(pct)+" → "+cli.FormatMillions(after)))
	if desc := a.opts.Registry.Description(f.Category); desc != "" {
		b.WriteString(dimStyle.Render(cli.Truncate(desc, w)))
	}
	return strings.TrimRight(b.String(), "\n")
}
