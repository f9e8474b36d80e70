package components

import (
	"math"
	"strings"
	"testing"

	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Errorf("joined height = %d, want %d", len(lines), tallLines)
	}
	for i, line := range lines {
		if !strings.Contains(line, "\x1b[") {
			t.Errorf("line %d has no ANSI codes", i)
		}
	}
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, tc := range []struct{ total, n int }{{100, 3}, {80, 4}, {7, 3}, {1, 1}} {
		sum := 0
		for _, w := range LayoutRow(tc.total, tc.n) {
			sum += w
		}
		if sum != tc.total {
			t.Errorf("LayoutRow(%d, %d) sums to %d", tc.total, tc.n, sum)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	row := MetricCardRow([]Metric{
		{Label: "Revenue", Value: "$52.10B", Delta: "+$1.20B"},
		{Label: "Spending", Value: "$55.00B"},
		{Label: "Deficit", Value: "-$2.90B", DeltaColor: theme.Active.Red},
	}, 90)
	if w := lipgloss.Width(row); w != 90 {
		t.Errorf("row width = %d, want 90", w)
	}
	if !strings.Contains(row, "Deficit") {
		t.Error("row missing Deficit label")
	}
}

func TestTabVisualWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	tests := []struct {
		tab    int
		active bool
		want   int
	}{
		{TabOverview, false, len("Overview") + 2},
		{TabOverview, true, len("Overview") + 2},
		{TabRevenue, false, len("Revenue") + 2},
		{TabSettings, false, len("Settings") + 5},
	}
	for _, tc := range tests {
		if got := TabVisualWidth(Tabs[tc.tab], tc.active); got != tc.want {
			t.Errorf("TabVisualWidth(%s, %v) = %d, want %d", Tabs[tc.tab].Name, tc.active, got, tc.want)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('v'); got != TabRevenue {
		t.Errorf("TabIdxByKey('v') = %d, want %d", got, TabRevenue)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestStatusBarWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	bar := RenderStatusBar(100, "[q]uit", StatusInfo{Dataset: "approp.xlsx", Dropped: 2, FromCache: true})
	if w := lipgloss.Width(bar); w != 100 {
		t.Errorf("status bar width = %d, want 100", w)
	}
	if !strings.Contains(bar, "2 rows dropped") {
		t.Error("status bar missing dropped-row notice")
	}
}

func TestGroupedBarChart(t *testing.T) {
	theme.SetActive("flexoki-dark")
	out := GroupedBarChart([]BarGroup{
		{Label: "Revenue", Values: []float64{300, 330}},
		{Label: "Spending", Values: []float64{350, 380}},
		{Label: "Deficit", Values: []float64{-50, -50}},
	}, []BarSeries{
		{Name: "Before", Color: theme.Active.TextMuted},
		{Name: "After", Color: theme.Active.Accent},
	}, 60, 10)

	for _, want := range []string{"Before", "After", "Revenue", "Deficit"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q", want)
		}
	}
	if GroupedBarChart(nil, nil, 60, 10) != "" {
		t.Error("empty chart should render nothing")
	}
}

func TestFormatChartLabel(t *testing.T) {
	tests := map[float64]string{
		2000: "2B",
		1500: "1.5B",
		200:  "200M",
		0.5:  "0.50M",
	}
	for in, want := range tests {
		if got := formatChartLabel(in); got != want {
			t.Errorf("formatChartLabel(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSquarifyAreasAndBounds(t *testing.T) {
	values := []float64{6, 6, 4, 3, 2, 2, 1}
	r := Rect{W: 6, H: 4}
	rects := Squarify(values, r)

	for i, rc := range rects {
		if got := rc.W * rc.H; math.Abs(got-values[i]) > 1e-9 {
			t.Errorf("rect %d area = %v, want %v", i, got, values[i])
		}
		if rc.X < -1e-9 || rc.Y < -1e-9 || rc.X+rc.W > r.W+1e-9 || rc.Y+rc.H > r.H+1e-9 {
			t.Errorf("rect %d out of bounds: %+v", i, rc)
		}
	}
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if overlap(rects[i], rects[j]) > 1e-9 {
				t.Errorf("rects %d and %d overlap", i, j)
			}
		}
	}
}

func TestSquarifySkipsNonPositive(t *testing.T) {
	rects := Squarify([]float64{5, 0, -3, 5}, Rect{W: 10, H: 10})
	if rects[1] != (Rect{}) || rects[2] != (Rect{}) {
		t.Errorf("non-positive values should get zero rects, got %+v %+v", rects[1], rects[2])
	}
	if got := rects[0].W*rects[0].H + rects[3].W*rects[3].H; math.Abs(got-100) > 1e-9 {
		t.Errorf("positive rects cover %v, want 100", got)
	}
	if got := Squarify([]float64{0, 0}, Rect{W: 10, H: 10}); got[0] != (Rect{}) {
		t.Error("all-zero input should give zero rects")
	}
}

func TestTreemapGridHasNoHoles(t *testing.T) {
	groups := []TreemapNode{
		{Label: "A", Value: 300, Children: []TreemapNode{{Label: "F1", Value: 100}, {Label: "F2", Value: 200}}},
		{Label: "B", Value: 350, Children: []TreemapNode{{Label: "F3", Value: 350}}},
		{Label: "C", Value: 37, Children: []TreemapNode{{Label: "F4", Value: 30}, {Label: "F5", Value: 7}}},
	}
	cells := LayoutTreemap(groups, 80, 20)
	if len(cells) != 5 {
		t.Fatalf("got %d cells, want 5", len(cells))
	}
	grid := treemapGrid(cells, 80, 20)
	for y, row := range grid {
		for x, ci := range row {
			if ci < 0 || ci >= len(cells) {
				t.Fatalf("grid[%d][%d] = %d", y, x, ci)
			}
		}
	}

	theme.SetActive("flexoki-dark")
	out := RenderTreemap(cells, 80, 20, 0, func(c TreemapCell) []string {
		return []string{groups[c.Group].Children[c.Item].Label}
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 20 {
		t.Fatalf("rendered %d lines, want 20", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 80 {
			t.Errorf("line %d width = %d, want 80", i, w)
		}
	}
	if !strings.Contains(out, "F3") {
		t.Error("largest fund label missing")
	}
}

func TestBlend(t *testing.T) {
	if got := Blend("#000000", "#FFFFFF", 0.5); got != "#808080" {
		t.Errorf("Blend = %s, want #808080", got)
	}
	if got := Blend("3", "#FFFFFF", 0.5); got != "3" {
		t.Errorf("ANSI color should pass through, got %s", got)
	}
}

func TestAdjustmentGaugeLabel(t *testing.T) {
	theme.SetActive("flexoki-dark")
	if !strings.Contains(AdjustmentGauge(12.5, 20), "+12.5%") {
		t.Error("gauge missing signed label")
	}
	if !strings.Contains(AdjustmentGauge(0, 20), "0.0%") {
		t.Error("gauge missing zero label")
	}
}

func overlap(a, b Rect) float64 {
	w := math.Min(a.X+a.W, b.X+b.W) - math.Max(a.X, b.X)
	h := math.Min(a.Y+a.H, b.Y+b.H) - math.Max(a.Y, b.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}
