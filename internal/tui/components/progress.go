package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ShareBar renders a 0-100 share as a filled bar with its percentage.
func ShareBar(pct float64, width int) string {
	t := theme.Active
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(filled, width))

	filledStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%5.1f%%", pct))
}

// ColorForAdjustment returns the gauge color for a -100..100 adjustment.
func ColorForAdjustment(pct float64) string {
	t := theme.Active
	switch {
	case pct <= -50:
		return string(t.Red)
	case pct < 0:
		return string(t.Orange)
	case pct == 0:
		return string(t.TextMuted)
	case pct < 50:
		return string(t.Green)
	default:
		return string(t.GreenBright)
	}
}

// AdjustmentGauge renders a slider-style gauge for a -100..100 adjustment:
// the bar fills from the left in proportion to (pct+100)/200, so 0% sits at the midpoint.
func AdjustmentGauge(pct float64, barWidth int) string {
	t := theme.Active

	pct = max(-100, min(pct, 100))
	bar := progress.New(
		progress.WithSolidFill(ColorForAdjustment(pct)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorForAdjustment(pct))).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	label := fmt.Sprintf("%6.1f%%", 0.0)
	if pct != 0 {
		label = fmt.Sprintf("%+6.1f%%", pct)
	}
	return bar.ViewAs((pct+100)/200) + spaceStyle.Render(" ") + pctStyle.Render(label)
}
