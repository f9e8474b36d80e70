package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/cli"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagFundsCategory string
	flagFundsSort     string
	flagFundsLimit    int
	flagFundsOutput   string
)

var fundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "Fund appropriations with their share of each category",
	RunE:  runFunds,
}

func init() {
	fundsCmd.Flags().StringVarP(&flagFundsCategory, "category", "c", "", "Filter to category (substring match)")
	fundsCmd.Flags().StringVar(&flagFundsSort, "sort", "amount", "Sort by: amount, name, category")
	fundsCmd.Flags().IntVar(&flagFundsLimit, "limit", 0, "Show at most N funds (0 = all)")
	fundsCmd.Flags().StringVarP(&flagFundsOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.AddCommand(fundsCmd)
}

func runFunds(_ *cobra.Command, _ []string) error {
	if err := checkOutput(flagFundsOutput); err != nil {
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

	funds := append([]model.FundAggregate(nil), pipeline.FilterByCategory(agg.Funds, flagFundsCategory)...)
	if err := sortFunds(funds, flagFundsSort); err != nil {
		return err
	}
	if flagFundsLimit > 0 && len(funds) > flagFundsLimit {
		funds = funds[:flagFundsLimit]
	}

	if flagFundsOutput != "table" {
		return writeStructured(os.Stdout, flagFundsOutput, funds)
	}

	if len(funds) == 0 {
		if flagFundsCategory != "" {
			fmt.Printf("\n  No funds in categories matching %q.\n", flagFundsCategory)
		} else {
			fmt.Println("\n  The dataset has no usable rows.")
		}
		return nil
	}

	title := "FUNDS"
	if flagFundsCategory != "" {
		title += "  " + strings.ToUpper(flagFundsCategory)
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	rows := make([][]string, 0, len(funds))
	for _, f := range funds {
		rows = append(rows, []string{
			cli.Truncate(f.Fund, 40),
			cli.Truncate(f.Category, 22),
			cli.FormatMillions(f.Millions),
			cli.FormatPercent(f.FundShare),
			cli.RenderShareBar(f.FundShare, 12),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Fund", "Category", "Approp", "% Cat", ""},
		Rows:     rows,
		TextCols: 2,
	}))
	return nil
}

func sortFunds(funds []model.FundAggregate, by string) error {
	var less func(a, b model.FundAggregate) bool
	switch by {
	case "amount":
		less = func(a, b model.FundAggregate) bool { return a.Millions > b.Millions }
	case "name":
		less = func(a, b model.FundAggregate) bool { return a.Fund < b.Fund }
	case "category":
		less = func(a, b model.FundAggregate) bool {
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			return a.Millions > b.Millions
		}
	default:
		return fmt.Errorf("unknown sort %q (want amount, name or category)", by)
	}
	sort.SliceStable(funds, func(i, j int) bool { return less(funds[i], funds[j]) })
	return nil
}
