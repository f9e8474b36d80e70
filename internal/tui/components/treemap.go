package components

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Rect is an axis-aligned rectangle in layout units.
type Rect struct {
	X, Y, W, H float64
}

// Squarify lays out values inside r using the squarified treemap algorithm,
// keeping cell aspect ratios close to 1. The result is index-aligned with
// values; non-positive values get a zero Rect.
func Squarify(values []float64, r Rect) []Rect {
	out := make([]Rect, len(values))

	var idx []int
	total := 0.0
	for i, v := range values {
		if v > 0 {
			idx = append(idx, i)
			total += v
		}
	}
	if total == 0 || r.W <= 0 || r.H <= 0 {
		return out
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })

	scale := r.W * r.H / total
	areas := make([]float64, len(idx))
	for i, k := range idx {
		areas[i] = values[k] * scale
	}

	remaining := r
	var row []int // positions into idx/areas
	for i := 0; i < len(areas); i++ {
		side := math.Min(remaining.W, remaining.H)
		if len(row) == 0 || worst(areas, append(row, i), side) <= worst(areas, row, side) {
			row = append(row, i)
			continue
		}
		remaining = layoutRow(areas, row, remaining, idx, out)
		row = []int{i}
	}
	if len(row) > 0 {
		layoutRow(areas, row, remaining, idx, out)
	}
	return out
}

// worst returns the largest aspect ratio in row when laid along a side of length w.
func worst(areas []float64, row []int, w float64) float64 {
	if len(row) == 0 || w == 0 {
		return math.Inf(1)
	}
	s, lo, hi := 0.0, math.Inf(1), 0.0
	for _, i := range row {
		a := areas[i]
		s += a
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	w2, s2 := w*w, s*s
	return math.Max(w2*hi/s2, s2/(w2*lo))
}

// layoutRow places row along the shorter side of r and returns what is left.
func layoutRow(areas []float64, row []int, r Rect, idx []int, out []Rect) Rect {
	s := 0.0
	for _, i := range row {
		s += areas[i]
	}

	if r.W >= r.H {
		colW := s / r.H
		y := r.Y
		for _, i := range row {
			h := areas[i] / colW
			out[idx[i]] = Rect{X: r.X, Y: y, W: colW, H: h}
			y += h
		}
		return Rect{X: r.X + colW, Y: r.Y, W: r.W - colW, H: r.H}
	}

	rowH := s / r.W
	x := r.X
	for _, i := range row {
		w := areas[i] / rowH
		out[idx[i]] = Rect{X: x, Y: r.Y, W: w, H: rowH}
		x += w
	}
	return Rect{X: r.X, Y: r.Y + rowH, W: r.W, H: r.H - rowH}
}

// TreemapNode is one category with its funds.
type TreemapNode struct {
	Label    string
	Value    float64
	Children []TreemapNode
}

// TreemapCell is one leaf of a laid-out treemap, in terminal cells.
type TreemapCell struct {
	Group, Item    int
	X0, Y0, X1, Y1 int // half-open
}

// cellAspect is the height of a terminal cell relative to its width.
const cellAspect = 2.0

// LayoutTreemap lays out a two-level treemap in a width x height grid.
// Groups and items with non-positive values are left out.
func LayoutTreemap(groups []TreemapNode, width, height int) []TreemapCell {
	if width <= 0 || height <= 0 {
		return nil
	}
	gv := make([]float64, len(groups))
	for i, g := range groups {
		gv[i] = g.Value
	}
	outer := Squarify(gv, Rect{W: float64(width), H: float64(height) * cellAspect})

	var cells []TreemapCell
	for gi, g := range groups {
		gr := outer[gi]
		if gr.W == 0 || gr.H == 0 {
			continue
		}
		cv := make([]float64, len(g.Children))
		for i, c := range g.Children {
			cv[i] = c.Value
		}
		for ci, cr := range Squarify(cv, gr) {
			if cr.W == 0 || cr.H == 0 {
				continue
			}
			cells = append(cells, TreemapCell{
				Group: gi,
				Item:  ci,
				X0:    int(math.Round(cr.X)),
				X1:    int(math.Round(cr.X + cr.W)),
				Y0:    int(math.Round(cr.Y / cellAspect)),
				Y1:    int(math.Round((cr.Y + cr.H) / cellAspect)),
			})
		}
	}
	return cells
}

// treemapGrid maps every terminal cell to an index into cells. Pixels lost to
// rounding take their left (or upper) neighbour so the grid has no holes.
func treemapGrid(cells []TreemapCell, width, height int) [][]int {
	grid := make([][]int, height)
	for y := range grid {
		grid[y] = make([]int, width)
		for x := range grid[y] {
			grid[y][x] = -1
		}
	}
	for i, c := range cells {
		for y := max(0, c.Y0); y < min(height, c.Y1); y++ {
			for x := max(0, c.X0); x < min(width, c.X1); x++ {
				grid[y][x] = i
			}
		}
	}
	if len(cells) == 0 {
		return grid
	}
	for y := range grid {
		for x := range grid[y] {
			if grid[y][x] >= 0 {
				continue
			}
			switch {
			case x > 0:
				grid[y][x] = grid[y][x-1]
			case y > 0:
				grid[y][x] = grid[y-1][x]
			default:
				grid[y][x] = 0
			}
		}
	}
	return grid
}

// RenderTreemap draws a laid-out treemap. Each group gets a palette color,
// items alternate shades, and the selected cell index is highlighted.
// label returns up to two text lines for a cell.
func RenderTreemap(cells []TreemapCell, width, height, selected int, label func(TreemapCell) []string) string {
	t := theme.Active
	if len(cells) == 0 || width <= 0 || height <= 0 {
		return ""
	}
	grid := treemapGrid(cells, width, height)

	styles := make([]lipgloss.Style, len(cells))
	lines := make([][]string, len(cells))
	for i, c := range cells {
		bg := t.CategoryColor(c.Group)
		if c.Item%2 == 1 {
			bg = Blend(bg, t.Background, 0.3)
		}
		fg := t.Background
		if i == selected {
			bg, fg = t.TextPrimary, t.Background
		}
		styles[i] = lipgloss.NewStyle().Background(bg).Foreground(fg)
		if label != nil {
			lines[i] = label(c)
		}
	}

	var b strings.Builder
	for y := 0; y < height; y++ {
		x := 0
		for x < width {
			ci := grid[y][x]
			start := x
			for x < width && grid[y][x] == ci {
				x++
			}
			segW := x - start
			c := cells[ci]
			text := ""
			if line := y - c.Y0; line >= 0 && line < len(lines[ci]) && start == max(0, c.X0) {
				text = lines[ci][line]
			}
			text = fitWidth(text, segW)
			b.WriteString(styles[ci].Render(text))
		}
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// fitWidth pads or truncates s to exactly w runes, with a leading space when it fits.
func fitWidth(s string, w int) string {
	if s != "" && w >= 4 {
		s = " " + s
	} else if w < 4 {
		s = ""
	}
	r := []rune(s)
	if len(r) > w {
		r = r[:w]
	}
	return string(r) + strings.Repeat(" ", w-len(r))
}

// Blend mixes two #RRGGBB colors; amount 0 returns a, 1 returns b.
// Non-hex colors (ANSI indexes) return a unchanged.
func Blend(a, b lipgloss.Color, amount float64) lipgloss.Color {
	ar, ag, ab, ok1 := parseHex(string(a))
	br, bg, bb, ok2 := parseHex(string(b))
	if !ok1 || !ok2 {
		return a
	}
	mix := func(x, y int64) int64 {
		return int64(math.Round(float64(x) + (float64(y)-float64(x))*amount))
	}
	return lipgloss.Color("#" + hex2(mix(ar, br)) + hex2(mix(ag, bg)) + hex2(mix(ab, bb)))
}

func parseHex(s string) (r, g, b int64, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseInt(s[1:], 16, 64)
	if err != nil {
		return 0, 0, 0, false
	}
	return v >> 16 & 0xFF, v >> 8 & 0xFF, v & 0xFF, true
}

func hex2(v int64) string {
	s := strings.ToUpper(strconv.FormatInt(v, 16))
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}
