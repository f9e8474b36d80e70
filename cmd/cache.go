package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/store"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the parsed-dataset cache",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached dataset",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*store.Cache, error) {
	path := pipeline.CachePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return store.Open(path)
}

func runCacheInfo(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Cache file: %s\n", pipeline.CachePath())
	c, err := openCache()
	if err != nil {
		return err
	}
	if c == nil {
		fmt.Println("  Status: empty (no cache file)")
		return nil
	}
	defer func() { _ = c.Close() }()

	n, err := c.DatasetCount()
	if err != nil {
		return err
	}
	fmt.Printf("  Cached datasets: %d\n", n)
	return nil
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	if c == nil {
		fmt.Println("  Nothing to clear.")
		return nil
	}
	defer func() { _ = c.Close() }()

	n, err := c.DatasetCount()
	if err != nil {
		return err
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Printf("  Cleared %d cached dataset(s)\n", n)
	return nil
}
