package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theirongolddev/ilbudget/internal/adjust"
	"github.com/theirongolddev/ilbudget/internal/cli"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	flagCategoryAdj []string
	flagFundAdj     []string
	flagSpendAll    float64
	flagRevAll      float64
	flagOutput      string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Revenue, spending and deficit before and after adjustments",
	Example: `  ilbudget summary -f fy25.xlsx
  ilbudget summary --spend-all -5 --category "Highway Funds=10"
  ilbudget summary --fund "Road Fund=-20" -o yaml`,
	RunE: runSummary,
}

func init() {
	addAdjustmentFlags(summaryCmd)
	addAdjustmentFlags(rootCmd)
	rootCmd.AddCommand(summaryCmd)
}

// addAdjustmentFlags registers the what-if flags on c. The root command
// carries them too since its default action is the summary.
func addAdjustmentFlags(c *cobra.Command) {
	c.Flags().StringArrayVar(&flagCategoryAdj, "category", nil, "Category adjustment NAME=PCT (repeatable)")
	c.Flags().StringArrayVar(&flagFundAdj, "fund", nil, "Fund override NAME=PCT (repeatable)")
	c.Flags().Float64Var(&flagSpendAll, "spend-all", 0, "Adjust all spending categories by PCT")
	c.Flags().Float64Var(&flagRevAll, "rev-all", 0, "Adjust all revenue categories by PCT")
	c.Flags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json, yaml")
}

// summaryReport is the structured form of the summary.
type summaryReport struct {
	Dataset     string         `json:"dataset" yaml:"dataset"`
	Funds       int            `json:"funds" yaml:"funds"`
	Categories  int            `json:"categories" yaml:"categories"`
	DroppedRows int            `json:"dropped_rows" yaml:"dropped_rows"`
	Totals      model.Totals   `json:"totals" yaml:"totals"`
	Adjustments []adjust.Entry `json:"adjustments" yaml:"adjustments"`
}

func runSummary(c *cobra.Command, _ []string) error {
	if err := checkOutput(flagOutput); err != nil {
		return err
	}

	e, err := newEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	res, agg, err := e.load()
	if err != nil {
		return err
	}

	cats := agg.CategoryNames()
	set := adjust.New()
	set.Register(cats, e.reg)
	if err := applyAdjustments(set, adjustmentArgs{
		SpendAll:    flagSpendAll,
		SpendAllSet: c.Flags().Changed("spend-all"),
		RevAll:      flagRevAll,
		RevAllSet:   c.Flags().Changed("rev-all"),
		Categories:  flagCategoryAdj,
		Funds:       flagFundAdj,
	}, cats, e.reg); err != nil {
		return err
	}
	warnUnknownNames(e.log, agg, flagCategoryAdj, flagFundAdj)

	totals := pipeline.Recompute(agg.Funds, e.reg, set)
	report := summaryReport{
		Dataset:     res.Path,
		Funds:       len(agg.Funds),
		Categories:  len(cats),
		DroppedRows: res.Report.Dropped(),
		Totals:      totals,
		Adjustments: set.Log(cats),
	}

	if flagOutput != "table" {
		return writeStructured(os.Stdout, flagOutput, report)
	}

	if len(agg.Funds) == 0 {
		fmt.Println("\n  The dataset has no usable rows.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET SUMMARY  %s", filepath.Base(res.Path))))
	fmt.Println()

	rows := make([][]string, 0, 6)
	for _, cmp := range totals.Comparisons() {
		rows = append(rows, []string{
			cmp.Label,
			cli.FormatBillions(cmp.Before),
			cli.FormatBillions(cmp.After),
			cli.FormatDelta(cmp.Before, cmp.After),
		})
	}
	rows = append(rows,
		[]string{"---"},
		[]string{"Funds", cli.FormatCount(report.Funds), "", ""},
		[]string{"Categories", cli.FormatCount(report.Categories), "", ""},
	)
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Original", "Adjusted", "Change"},
		Rows:    rows,
	}))

	fmt.Println()
	fmt.Print(cli.RenderComparison(totals.Comparisons(), 40))

	if len(report.Adjustments) > 0 {
		fmt.Println()
		fmt.Println("  Adjustments")
		for _, entry := range report.Adjustments {
			kind := "category"
			if entry.Kind == "fund" {
				kind = "fund    "
			}
			fmt.Printf("    %s  %s\n", cli.RenderMuted(kind), entry)
		}
	}
	return nil
}

// adjustmentArgs carries the parsed what-if flags.
type adjustmentArgs struct {
	SpendAll    float64
	SpendAllSet bool
	RevAll      float64
	RevAllSet   bool
	Categories  []string // NAME=PCT
	Funds       []string // NAME=PCT
}

// applyAdjustments applies the global adjustments first, so individual
// category flags win over them, then the fund overrides.
func applyAdjustments(set *adjust.Set, args adjustmentArgs, cats []string, reg *model.Registry) error {
	if args.SpendAllSet {
		if err := set.SetGlobal(adjust.ScopeSpending, args.SpendAll, cats, reg); err != nil {
			return fmt.Errorf("--spend-all: %w", err)
		}
	}
	if args.RevAllSet {
		if err := set.SetGlobal(adjust.ScopeRevenue, args.RevAll, cats, reg); err != nil {
			return fmt.Errorf("--rev-all: %w", err)
		}
	}
	for _, a := range args.Categories {
		name, pct, err := parseAssignment(a)
		if err != nil {
			return fmt.Errorf("--category: %w", err)
		}
		if err := set.SetCategory(name, pct); err != nil {
			return fmt.Errorf("--category %s: %w", name, err)
		}
	}
	for _, a := range args.Funds {
		name, pct, err := parseAssignment(a)
		if err != nil {
			return fmt.Errorf("--fund: %w", err)
		}
		if err := set.SetFund(name, pct); err != nil {
			return fmt.Errorf("--fund %s: %w", name, err)
		}
	}
	return nil
}

// parseAssignment splits "NAME=PCT" on the last '='. A trailing '%' is allowed.
func parseAssignment(s string) (string, float64, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return "", 0, fmt.Errorf("expected NAME=PCT, got %q", s)
	}
	name := strings.TrimSpace(s[:i])
	raw := strings.TrimSuffix(strings.TrimSpace(s[i+1:]), "%")
	if name == "" {
		return "", 0, fmt.Errorf("expected NAME=PCT, got %q", s)
	}
	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid percentage %q for %s", raw, name)
	}
	return name, pct, nil
}

// warnUnknownNames logs adjustments that match nothing in the dataset. They
// are kept, since a later dataset may contain them.
func warnUnknownNames(log *zap.Logger, agg pipeline.Aggregation, cats, funds []string) {
	knownCats := make(map[string]bool)
	knownFunds := make(map[string]bool)
	for _, f := range agg.Funds {
		knownCats[f.Category] = true
		knownFunds[f.Fund] = true
	}
	for _, a := range cats {
		if name, _, err := parseAssignment(a); err == nil && !knownCats[name] {
			log.Warn("category not in dataset", zap.String("category", name))
		}
	}
	for _, a := range funds {
		if name, _, err := parseAssignment(a); err == nil && !knownFunds[name] {
			log.Warn("fund not in dataset", zap.String("fund", name))
		}
	}
}

func checkOutput(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// writeStructured encodes v as json or yaml.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkOutput(format)
}
