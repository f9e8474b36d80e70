package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/ilbudget/internal/cli"

	"github.com/spf13/cobra"
)

var flagCategoriesOutput string

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cats"},
	Short:   "Category totals and their share of the grand total",
	RunE:    runCategories,
}

func init() {
	categoriesCmd.Flags().StringVarP(&flagCategoriesOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(_ *cobra.Command, _ []string) error {
	if err := checkOutput(flagCategoriesOutput); err != nil {
		return err
	}

	e, err := newEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	_, agg, err := e.load()
	if err != nil {
		return err
	}

	stats := agg.Categories(e.reg)
	if flagCategoriesOutput != "table" {
		return writeStructured(os.Stdout, flagCategoriesOutput, stats)
	}

	if len(stats) == 0 {
		fmt.Println("\n  The dataset has no usable rows.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CATEGORIES"))
	fmt.Println()

	rows := make([][]string, 0, len(stats)+2)
	for _, st := range stats {
		kind := "spending"
		if st.Revenue {
			kind = "revenue"
		}
		rows = append(rows, []string{
			cli.Truncate(st.Category, 28),
			kind,
			cli.FormatCount(st.Funds),
			cli.FormatMillions(st.Millions),
			cli.FormatPercent(st.Share),
			cli.RenderShareBar(st.Share, 16),
		})
	}
	rows = append(rows,
		[]string{"---"},
		[]string{"Total", "", cli.FormatCount(len(agg.Funds)), cli.FormatMillions(agg.GrandTotal), "100.0%", ""},
	)
	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Category", "Type", "Funds", "Approp", "Share", ""},
		Rows:     rows,
		TextCols: 2,
	}))

	var missing []string
	for _, info := range e.reg.All() {
		if agg.CategoryTotal(info.Name) == 0 && len(agg.FundsIn(info.Name)) == 0 {
			missing = append(missing, info.Name)
		}
	}
	if len(missing) > 0 {
		fmt.Println()
		fmt.Println(cli.RenderMuted(fmt.Sprintf("  Not in dataset: %v", missing)))
	}
	return nil
}
