package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theirongolddev/ilbudget/internal/model"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.5M", FormatMillions(1234.5))
	assert.Equal(t, "-$50.0M", FormatMillions(-50))
	assert.Equal(t, "$12.34B", FormatBillions(12340))
	assert.Equal(t, "-$0.05B", FormatBillions(-50))
	assert.Equal(t, "$0.00B", FormatBillions(-0.001))
	assert.Equal(t, "$1,500,000", FormatDollars(1_500_000))
	assert.Equal(t, "12,345", FormatCount(12345))
}

func TestFormatPercentages(t *testing.T) {
	assert.Equal(t, "33.3%", FormatPercent(100.0/3))
	assert.Equal(t, "+5.0%", FormatAdjustment(5))
	assert.Equal(t, "-20.0%", FormatAdjustment(-20))
	assert.Equal(t, "0.0%", FormatAdjustment(0))
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+$0.03B", FormatDelta(300, 330))
	assert.Equal(t, "-$1.00B", FormatDelta(1000, 0))
	assert.Equal(t, "±$0.00B", FormatDelta(-50, -50))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "General…", Truncate("General Funds", 8))
	assert.Equal(t, "GRF", Truncate("GRF", 8))
	assert.Equal(t, "", Truncate("GRF", 0))
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:    "Funds",
		Headers:  []string{"Category", "Fund", "$M"},
		Rows:     [][]string{{"General Funds", "GRF", "100.0"}, {"---"}, {"Total", "", "100.0"}},
		TextCols: 2,
	})
	assert.Contains(t, out, "Funds")
	assert.Contains(t, out, "General Funds")
	assert.Equal(t, 8, strings.Count(out, "\n"))
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderComparison(t *testing.T) {
	out := RenderComparison(model.Totals{
		OriginalRevenue: 300, OriginalSpending: 350, OriginalDeficit: -50,
		AdjustedRevenue: 330, AdjustedSpending: 380, AdjustedDeficit: -50,
	}.Comparisons(), 20)

	for _, label := range []string{"Revenue", "Spending", "Deficit", "before", "after"} {
		assert.Contains(t, out, label)
	}
	assert.Contains(t, out, "-$0.05B")
}

func TestRenderShareBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", RenderShareBar(50, 10))
	assert.Equal(t, "██████████", RenderShareBar(150, 10))
	assert.Equal(t, "░░░░", RenderShareBar(-3, 4))
	assert.Empty(t, RenderShareBar(50, 0))
}
