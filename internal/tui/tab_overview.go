package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/cli"
	"github.com/theirongolddev/ilbudget/internal/tui/components"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw, h int) string {
	t := theme.Active

	// Row 1: metric cards, adjusted figure with the change from the original
	cmp := a.totals.Comparisons()
	metrics := make([]components.Metric, 0, len(cmp))
	for _, c := range cmp {
		metrics = append(metrics, components.Metric{
			Label:      c.Label,
			Value:      cli.FormatBillions(c.After),
			Delta:      cli.FormatDelta(c.Before, c.After) + " from " + cli.FormatBillions(c.Before),
			DeltaColor: deltaColor(c.Label, c.Delta()),
		})
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	// Row 2: before/after bars
	groups := make([]components.BarGroup, 0, len(cmp))
	for _, c := range cmp {
		groups = append(groups, components.BarGroup{Label: c.Label, Values: []float64{c.Before, c.After}})
	}
	series := []components.BarSeries{
		{Name: "Original", Color: t.TextMuted},
		{Name: "Adjusted", Color: t.Accent},
	}
	chartH := max(4, min(14, h-18))
	chart := components.GroupedBarChart(groups, series, components.CardInnerWidth(cw), chartH)
	b.WriteString(components.ContentCard("Revenue vs Spending · billions", chart, cw))
	b.WriteString("\n")

	// Row 3: adjustment log + data quality
	widths := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Adjustment Log", a.renderAdjustmentLog(components.CardInnerWidth(widths[0])), widths[0]),
		components.ContentCard("Dataset", a.renderDatasetInfo(components.CardInnerWidth(widths[1])), widths[1]),
	}))

	return b.String()
}

func (a App) renderAdjustmentLog(w int) string {
	t := theme.Active
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	kindStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	entries := a.adj.Log(a.agg.CategoryNames())
	if len(entries) == 0 {
		return dimStyle.Render("No adjustments. Use the Spending or Revenue tab.")
	}

	const maxLines = 8
	pctW := 8
	nameW := max(8, w-pctW-7)
	var b strings.Builder
	for i, e := range entries {
		if i == maxLines {
			b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(entries)-maxLines)))
			break
		}
		pctStyle := lipgloss.NewStyle().Foreground(t.SignColor(e.Percent)).Background(t.Surface).Bold(true)
		kind := "cat"
		if e.Kind == "fund" {
			kind = "fund"
		}
		b.WriteString(kindStyle.Render(fmt.Sprintf("%-5s ", kind)))
		b.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(e.Name, nameW))))
		b.WriteString(pctStyle.Render(fmt.Sprintf("%*s", pctW, cli.FormatAdjustment(e.Percent))))
		if i < len(entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a App) renderDatasetInfo(w int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	r := a.result
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(cli.Truncate(value, max(4, w-12))) + "\n"
	}

	var b strings.Builder
	b.WriteString(row("File", r.Path))
	if r.Sheet != "" {
		b.WriteString(row("Sheet", r.Sheet))
	}
	b.WriteString(row("Rows kept", cli.FormatCount(r.Report.Kept)+" of "+cli.FormatCount(r.Report.TotalRows)))
	b.WriteString(row("Categories", cli.FormatCount(len(a.agg.CategoryNames()))))
	b.WriteString(row("Funds", cli.FormatCount(len(a.agg.Funds))))
	b.WriteString(row("Grand total", cli.FormatMillions(a.agg.GrandTotal)))

	if n := r.Report.Dropped(); n > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%s dropped: %d missing, %d non-numeric",
			cli.FormatCount(n), r.Report.Missing, r.Report.NonNumeric)))
	} else {
		b.WriteString(labelStyle.Render("No rows dropped"))
	}
	return b.String()
}
