package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// BarSeries names and colors one bar within each group.
type BarSeries struct {
	Name  string
	Color lipgloss.Color
}

// BarGroup is one labelled cluster of bars, one value per series (millions).
type BarGroup struct {
	Label  string
	Values []float64
}

// GroupedBarChart renders clustered vertical bars with a y-axis. Bar height
// is the absolute value; negative values are drawn in the theme's red.
func GroupedBarChart(groups []BarGroup, series []BarSeries, width, height int) string {
	if len(groups) == 0 || len(series) == 0 {
		return ""
	}
	if height < 3 {
		height = 3
	}

	t := theme.Active
	surface := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	maxVal := 0.0
	for _, g := range groups {
		for _, v := range g.Values {
			maxVal = math.Max(maxVal, math.Abs(v))
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Y-axis: compute tick step and ceiling
	tickStep := chartTickStep(maxVal)
	maxIntervals := max(2, height/2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(1, int(math.Round(ceiling/tickStep)))
	rowsPerTick := max(2, height/numIntervals)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(4, len(formatChartLabel(ceiling))+1)
	tickLabels := make(map[int]string)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	// Bar sizing: groups separated by groupGap, bars within a group touch.
	const groupGap = 3
	chartW := max(5, width-yLabelW-1)
	nBars := len(groups) * len(series)
	barW := (chartW - groupGap*(len(groups)-1)) / nBars
	barW = max(1, min(barW, 8))
	groupW := barW * len(series)
	axisLen := groupW*len(groups) + groupGap*(len(groups)-1)

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for gi, g := range groups {
			if gi > 0 {
				b.WriteString(surface.Render(strings.Repeat(" ", groupGap)))
			}
			for si, s := range series {
				v := 0.0
				if si < len(g.Values) {
					v = g.Values[si]
				}
				color := s.Color
				if v < 0 {
					color = t.Red
				}
				barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
				a := math.Abs(v)
				switch {
				case a >= rowTop:
					b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
				case a > rowBottom:
					idx := int((a - rowBottom) / (rowTop - rowBottom) * 8)
					idx = max(1, min(idx, 8))
					b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
				default:
					b.WriteString(surface.Render(strings.Repeat(" ", barW)))
				}
			}
		}
		b.WriteString("\n")
	}

	// X-axis line with 0 label
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))
	b.WriteString("\n")

	// Group labels, centered under each cluster
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	b.WriteString(surface.Render(strings.Repeat(" ", yLabelW+1)))
	for gi, g := range groups {
		if gi > 0 {
			b.WriteString(surface.Render(strings.Repeat(" ", groupGap)))
		}
		lbl := []rune(g.Label)
		if len(lbl) > groupW {
			lbl = lbl[:groupW]
		}
		b.WriteString(labelStyle.Render(lipgloss.PlaceHorizontal(groupW, lipgloss.Center, string(lbl))))
	}
	b.WriteString("\n")

	// Legend
	b.WriteString(surface.Render(strings.Repeat(" ", yLabelW+1)))
	for i, s := range series {
		if i > 0 {
			b.WriteString(surface.Render("  "))
		}
		b.WriteString(lipgloss.NewStyle().Foreground(s.Color).Background(t.Surface).Render("■ "))
		b.WriteString(labelStyle.Render(s.Name))
	}

	return b.String()
}

// HBar renders a single horizontal bar scaled against maxValue.
func HBar(value, maxValue float64, width int, color lipgloss.Color) string {
	t := theme.Active
	if width <= 0 {
		return ""
	}
	n := 0
	if maxValue > 0 {
		n = int(math.Round(math.Abs(value) / maxValue * float64(width)))
	}
	n = max(0, min(n, width))
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(strings.Repeat("█", n)) +
		lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", width-n))
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel formats an axis value given in millions.
func formatChartLabel(m float64) string {
	switch {
	case m >= 1000:
		if m == math.Trunc(m/1000)*1000 {
			return fmt.Sprintf("%.0fB", m/1000)
		}
		return fmt.Sprintf("%.1fB", m/1000)
	case m >= 1:
		return fmt.Sprintf("%.0fM", m)
	default:
		return fmt.Sprintf("%.2fM", m)
	}
}
