// Package tui provides the interactive Bubble Tea dashboard for ilbudget.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/ilbudget/internal/adjust"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/tui/components"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// DataLoadedMsg is sent when a dataset load finishes.
type DataLoadedMsg struct {
	Result *pipeline.LoadResult
	Agg    pipeline.Aggregation
	Err    error
}

// DatasetChangedMsg is sent by the file watcher when the dataset changes on disk.
type DatasetChangedMsg struct{}

type clearNoticeMsg struct{ seq int }

// Options configures a new App.
type Options struct {
	Load      pipeline.LoadOptions
	Loader    *pipeline.Loader
	Registry  *model.Registry
	Log       *zap.Logger
	NeedSetup bool // show the first-run form before loading
}

// App is the root Bubble Tea model.
type App struct {
	opts Options
	log  *zap.Logger

	// Data
	result *pipeline.LoadResult
	agg    pipeline.Aggregation
	loaded bool
	// loadErr is fatal only before the first successful load.
	loadErr error

	// Session adjustments, shared by the Spending and Revenue tabs
	adj    *adjust.Set
	totals model.Totals

	reloading bool
	notice    string
	noticeSeq int

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	tree     treemapState
	spend    adjustState
	rev      adjustState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 180
	minContentHeight = 5

	noticeTTL = 3 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = model.DefaultRegistry()
	}
	if opts.Loader == nil {
		opts.Loader = pipeline.NewLoader(nil, opts.Log)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:      opts,
		log:       opts.Log,
		adj:       adjust.New(),
		needSetup: opts.NeedSetup || opts.Load.Path == "",
		spend:     newAdjustState(adjust.ScopeSpending),
		rev:       newAdjustState(adjust.ScopeRevenue),
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.needSetup {
		// Init runs on a copy; the form is built on the first size message.
		return tea.Batch(tea.EnableMouseCellMotion, a.spinner.Tick)
	}
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Loader, a.opts.Load),
		a.spinner.Tick,
	)
}

// recompute refreshes the totals after a data or adjustment change.
func (a *App) recompute() {
	a.adj.Register(a.agg.CategoryNames(), a.opts.Registry)
	a.totals = pipeline.Recompute(a.agg.Funds, a.opts.Registry, a.adj)
	a.tree.clamp(len(a.treemapFunds()))
	a.spend.clamp(len(a.adjustRows(&a.spend)))
	a.rev.clamp(len(a.adjustRows(&a.rev)))
}

// setNotice shows a transient message in the status bar.
func (a *App) setNotice(s string) tea.Cmd {
	a.notice = s
	a.noticeSeq++
	seq := a.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.needSetup && a.setupForm == nil {
			a.setupVals = SetupValues{DataPath: a.opts.Load.Path, Theme: theme.Active.Name}
			a.setupForm = NewSetupForm(&a.setupVals)
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
			return a, a.setupForm.Init()
		}
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if !a.loaded {
			if a.loadErr != nil && msg.String() == "q" {
				return a, tea.Quit
			}
			return a, nil
		}
		return a.updateKeys(msg)

	case DataLoadedMsg:
		a.reloading = false
		if msg.Err != nil {
			a.log.Error("dataset load failed", zap.String("path", a.opts.Load.Path), zap.Error(msg.Err))
			if !a.loaded {
				a.loadErr = msg.Err
				return a, nil
			}
			return a, a.setNotice("reload failed: " + msg.Err.Error())
		}
		first := !a.loaded
		a.result = msg.Result
		a.agg = msg.Agg
		a.loaded = true
		a.loadErr = nil
		a.recompute()
		if first {
			return a, nil
		}
		return a, a.setNotice("dataset reloaded")

	case DatasetChangedMsg:
		if a.setupForm != nil || a.reloading {
			return a, nil
		}
		return a, a.startReload()

	case clearNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.notice = ""
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.reloading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.editing() {
		return a.forwardToInput(msg)
	}

	return a, nil
}

// startReload drops cached state for the dataset and loads it again whole.
func (a *App) startReload() tea.Cmd {
	a.opts.Loader.Invalidate(a.opts.Load.Path)
	a.reloading = true
	return tea.Batch(loadDataCmd(a.opts.Loader, a.opts.Load), a.spinner.Tick)
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Text inputs intercept all keys while active
	if a.editing() {
		var cmd tea.Cmd
		switch a.activeTab {
		case components.TabSpending:
			cmd = a.updateAdjustInput(&a.spend, msg)
		case components.TabRevenue:
			cmd = a.updateAdjustInput(&a.rev, msg)
		case components.TabSettings:
			cmd = a.updateSettingsInput(msg)
		}
		return a, cmd
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// Tab-specific bindings take precedence over global ones
	var (
		handled bool
		cmd     tea.Cmd
	)
	switch a.activeTab {
	case components.TabTreemap:
		handled = a.updateTreemapKeys(key)
	case components.TabSpending:
		handled, cmd = a.updateAdjustKeys(&a.spend, key)
	case components.TabRevenue:
		handled, cmd = a.updateAdjustKeys(&a.rev, key)
	case components.TabSettings:
		handled, cmd = a.updateSettingsKeys(key)
	}
	if handled {
		return a, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.reloading {
			return a, nil
		}
		return a, a.startReload()
	case "X":
		a.adj.Reset()
		a.recompute()
		return a, a.setNotice("adjustments reset")
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	case "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	default:
		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.moveCursor(-1)
	case tea.MouseButtonWheelDown:
		a.moveCursor(1)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return a, nil
		}
		// The tab bar is the first line
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

// moveCursor moves the selection of the active tab by delta.
func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case components.TabTreemap:
		a.tree.move(delta, len(a.treemapFunds()))
	case components.TabSpending:
		a.spend.move(delta, len(a.adjustRows(&a.spend)))
	case components.TabRevenue:
		a.rev.move(delta, len(a.adjustRows(&a.rev)))
	case components.TabSettings:
		if !a.settings.editing {
			a.settings.cursor = max(0, min(a.settings.cursor+delta, settingsFieldCount-1))
		}
	}
}

func (a App) editing() bool {
	switch a.activeTab {
	case components.TabSpending:
		return a.spend.editing
	case components.TabRevenue:
		return a.rev.editing
	case components.TabSettings:
		return a.settings.editing
	}
	return false
}

// forwardToInput passes non-key messages (cursor blinks) to the active text input.
func (a App) forwardToInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeTab {
	case components.TabSpending:
		a.spend.input, cmd = a.spend.input.Update(msg)
	case components.TabRevenue:
		a.rev.input, cmd = a.rev.input.Update(msg)
	case components.TabSettings:
		a.settings.input, cmd = a.settings.input.Update(msg)
	}
	return a, cmd
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		if err := a.saveSetupConfig(); err != nil {
			a.log.Warn("saving setup config", zap.Error(err))
		}
		a.needSetup = false
		a.setupForm = nil
		return a, tea.Batch(loadDataCmd(a.opts.Loader, a.opts.Load), a.spinner.Tick)
	case huh.StateAborted:
		return a, tea.Quit
	}

	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.loadErr != nil && !a.loaded {
		return a.viewLoadError()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  ilbudget needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ ilbudget"))
	b.WriteString(subtitleStyle.Render(" · Appropriations Dashboard"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Loading " + filepath.Base(a.opts.Load.Path) + "..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

// viewLoadError replaces the whole dashboard when the dataset is unusable.
func (a App) viewLoadError() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Red).
		Background(t.Surface).
		Padding(1, 3).
		Width(min(a.width-4, 90))
	titleStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	bodyStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Could not load dataset"))
	b.WriteString("\n\n")
	b.WriteString(bodyStyle.Render(a.loadErr.Error()))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Fix the file or run `ilbudget setup`, then restart. Press q to quit."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, name string, binds [][2]string) {
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", [][2]string{
		{"o t s v x", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move selection"},
	})
	b.WriteString("\n")
	section(&b, "Adjustments", [][2]string{
		{"Enter", "Edit selected percentage"},
		{"+ -", "Nudge by 1%"},
		{"a", "Edit Adjust All"},
		{"Space", "Expand / collapse funds"},
		{"0", "Clear selected adjustment"},
		{"X", "Reset all adjustments"},
	})
	b.WriteString("\n")
	section(&b, "Other", [][2]string{
		{"r", "Reload dataset"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + dataset pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pillAccent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	pill := pillStyle.Render(" ") + pillAccent.Render(filepath.Base(a.result.Path))
	if a.result.Sheet != "" {
		pill += pillStyle.Render(" │ ") + pillAccent.Render(a.result.Sheet)
	}
	if !a.adj.IsZero() {
		pill += pillStyle.Render(" │ ") + pillAccent.Render(fmt.Sprintf("%d adjustments", len(a.adj.Log(nil))))
	}
	pill += pillStyle.Render(" ")
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(pill)

	// 2. Status bar
	statusBar := components.RenderStatusBar(w, a.hints(), components.StatusInfo{
		Dataset:   filepath.Base(a.result.Path),
		LoadTime:  fmt.Sprintf("%.2fs", a.result.LoadTime.Seconds()),
		Dropped:   a.result.Report.Dropped(),
		FromCache: a.result.FromCache,
		Reloading: a.reloading,
		Message:   a.notice,
	})

	// 3. Content zone
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case components.TabOverview:
		content = a.renderOverviewTab(cw, contentH)
	case components.TabTreemap:
		content = a.renderTreemapTab(cw, contentH)
	case components.TabSpending:
		content = a.renderAdjustTab(&a.spend, cw, contentH)
	case components.TabRevenue:
		content = a.renderAdjustTab(&a.rev, cw, contentH)
	case components.TabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// hints returns the key hints for the active tab.
func (a App) hints() string {
	switch {
	case a.editing():
		return "[Enter] apply  [Esc] cancel"
	case a.activeTab == components.TabSpending || a.activeTab == components.TabRevenue:
		return "[j/k] move  [Enter] edit  [+/-] nudge  [a] all  [Space] funds  [?] help"
	case a.activeTab == components.TabTreemap:
		return "[j/k] select fund  [?] help  [q] quit"
	case a.activeTab == components.TabSettings:
		return "[j/k] move  [Enter] edit  [?] help"
	}
	return "[r] reload  [X] reset  [?] help  [q] quit"
}

// ─── Helpers ────────────────────────────────────────────────────

// loadDataCmd loads and aggregates the dataset off the UI goroutine.
func loadDataCmd(loader *pipeline.Loader, opts pipeline.LoadOptions) tea.Cmd {
	return func() tea.Msg {
		res, err := loader.Load(opts)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		return DataLoadedMsg{Result: res, Agg: pipeline.Aggregate(res.Records)}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
