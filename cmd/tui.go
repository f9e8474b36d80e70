package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/ilbudget/internal/config"
	"github.com/theirongolddev/ilbudget/internal/tui"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"
	"github.com/theirongolddev/ilbudget/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagTUINoWatch bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUINoWatch, "no-watch", false, "Do not reload when the dataset file changes")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	theme.SetActive(e.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Load:      e.opts,
		Loader:    e.loader,
		Registry:  e.reg,
		Log:       e.log,
		NeedSetup: e.opts.Path == "",
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if e.opts.Path != "" && !flagTUINoWatch {
		w, err := watch.New(e.opts.Path, watch.DefaultDebounce, e.log)
		if err != nil {
			e.log.Warn("dataset watch disabled", zap.Error(err))
		} else {
			go func() {
				_ = w.Run(ctx, func() { p.Send(tui.DatasetChangedMsg{}) })
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if !config.Exists() {
		fmt.Println("  Run `ilbudget setup` to save a default dataset.")
	}
	return nil
}
