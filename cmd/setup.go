package cmd

import (
	"fmt"

	"github.com/theirongolddev/ilbudget/internal/config"
	"github.com/theirongolddev/ilbudget/internal/tui"
	"github.com/theirongolddev/ilbudget/internal/tui/theme"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	theme.SetActive(cfg.Appearance.Theme)

	vals := tui.SetupValues{
		DataPath: config.DataPath(cfg),
		Theme:    cfg.Appearance.Theme,
	}
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	vals.Apply(&cfg)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `ilbudget setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
