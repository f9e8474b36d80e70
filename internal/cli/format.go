// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatMillions formats a value already in millions of dollars.
// e.g., 1234.56 -> "$1,234.6M"
func FormatMillions(m float64) string {
	return signed(m, func(v float64) string {
		return "$" + humanize.FormatFloat("#,###.#", v) + "M"
	})
}

// FormatBillions formats a millions value as billions with two decimals.
// e.g., 12340 -> "$12.34B"
func FormatBillions(m float64) string {
	return signed(m/1000, func(v float64) string {
		return "$" + humanize.FormatFloat("#,###.##", v) + "B"
	})
}

// FormatDollars formats a whole-dollar amount with comma grouping.
func FormatDollars(amount float64) string {
	return signed(amount, func(v float64) string {
		return "$" + humanize.FormatFloat("#,###.", v)
	})
}

// FormatCount adds comma separators to an integer count.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatPercent formats a 0-100 percentage.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatAdjustment formats a signed adjustment percentage, e.g. "+5.0%".
func FormatAdjustment(pct float64) string {
	if pct == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

// FormatDelta formats after-before in billions with an explicit sign.
func FormatDelta(before, after float64) string {
	d := after - before
	if math.Abs(d) < 5 { // below display precision
		return "±$0.00B"
	}
	if d > 0 {
		return "+" + FormatBillions(d)
	}
	return FormatBillions(d)
}

// signed renders negative values as "-" + render(|v|) so rounding never yields "-0".
func signed(v float64, render func(float64) string) string {
	if v < 0 {
		s := render(-v)
		if strings.Trim(s, "$0.,MB") == "" {
			return s
		}
		return "-" + s
	}
	return render(v)
}

// Truncate shortens s to width runes, ending in an ellipsis when cut.
func Truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
