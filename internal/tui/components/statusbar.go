package components

import (
	"strconv"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is the right-hand side of the status bar.
type StatusInfo struct {
	Dataset   string // file name
	LoadTime  string
	Dropped   int
	FromCache bool
	Reloading bool
	Message   string // transient notice, e.g. "reloaded"
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, hints string, info StatusInfo) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := muted.Render(" " + hints)

	var right []string
	if info.Message != "" {
		right = append(right, accent.Render(info.Message))
	}
	if info.Reloading {
		right = append(right, accent.Render("reloading…"))
	}
	if info.Dropped > 0 {
		right = append(right, warn.Render(pluralRows(info.Dropped)+" dropped"))
	}
	if info.Dataset != "" {
		src := info.Dataset
		if info.FromCache {
			src += " (cached)"
		}
		right = append(right, muted.Render(src))
	}
	if info.LoadTime != "" {
		right = append(right, muted.Render(info.LoadTime))
	}
	rightStr := strings.Join(right, muted.Render(" · ")) + muted.Render(" ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	if padding < 0 {
		padding = 0
	}

	return barStyle.Width(width).Render(left + barStyle.Render(strings.Repeat(" ", padding)) + rightStr)
}

func pluralRows(n int) string {
	if n == 1 {
		return "1 row"
	}
	return strconv.Itoa(n) + " rows"
}
