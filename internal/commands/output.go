package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/spendlens/internal/categorize"
)

var (
	heading = color.New(color.Bold)
	warn    = color.New(color.FgYellow)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
)

// formatCents renders minor units as a signed major amount, e.g. -12.34.
func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// formatSigned colors an amount green when money came in and red when it
// left.
func formatSigned(cents int64) string {
	switch {
	case cents < 0:
		return bad.Sprint(formatCents(cents))
	case cents > 0:
		return good.Sprint(formatCents(cents))
	default:
		return formatCents(cents)
	}
}

func printSummary(w io.Writer, s categorize.Summary) {
	fmt.Fprintf(w, "Categorized %d of %d transactions in %d of %d batches",
		s.Categorized, s.Total, s.Completed, s.BatchCount)
	if s.Uncategorized > 0 {
		warn.Fprintf(w, " (%d left uncategorized)", s.Uncategorized)
	}
	fmt.Fprintln(w)
}
