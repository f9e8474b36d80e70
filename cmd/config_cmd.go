// Package cmd implements the ilbudget CLI commands.
package cmd

import (
	"fmt"

	"github.com/theirongolddev/ilbudget/internal/config"
	"github.com/theirongolddev/ilbudget/internal/pipeline"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	if p := config.DataPath(cfg); p != "" {
		fmt.Printf("    Dataset:          %s\n", p)
	} else {
		fmt.Println("    Dataset:          not configured")
	}
	if cfg.General.Sheet != "" {
		fmt.Printf("    Sheet:            %s\n", cfg.General.Sheet)
	}
	cols := cfg.Columns()
	fmt.Printf("    Category column:  %s\n", cols.Category)
	fmt.Printf("    Fund column:      %s\n", cols.Fund)
	fmt.Printf("    Amount column:    %s\n", cols.Amount)
	fmt.Printf("    Cache:            %s", pipeline.CachePath())
	if cfg.General.NoCache {
		fmt.Print(" (disabled)")
	}
	fmt.Println()
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address: %s\n", cfg.Server.Addr)
	fmt.Printf("    Watch:   %v\n", cfg.Server.Watch)
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    Level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Printf("    File:  %s\n", cfg.Logging.File)
	}
	fmt.Println()

	fmt.Println("  [Categories]")
	for _, c := range cfg.Registry().All() {
		kind := "spending"
		if c.Revenue {
			kind = "revenue"
		}
		fmt.Printf("    %-24s %s\n", c.Name, kind)
	}
	fmt.Println()

	fmt.Println("  Run `ilbudget setup` to reconfigure.")
	return nil
}
