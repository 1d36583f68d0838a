// Package report renders a shopping list as the plain-text summary users
// paste into messages or notes.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/plantevern/internal/calculator"
	"github.com/eugenenazirov/plantevern/internal/planner"
)

const (
	Header = "INNKJØPSLISTE PLANTEVERN"
	Footer = "Beregnet med Plantevernkalkulator"
	rule   = "----------------------------------"

	// AreaUnit is the label printed after plot areas.
	AreaUnit = "daa"
)

// Format renders the shopping list. Product blocks are separated by a blank
// line and wrapped in a fixed banner.
func Format(items []planner.ShoppingListItem) string {
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, formatItem(item))
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(Footer)
	return b.String()
}

func formatItem(item planner.ShoppingListItem) string {
	plots := make([]string, 0, len(item.Breakdown))
	for _, c := range item.Breakdown {
		plots = append(plots, fmt.Sprintf("  - %s (%s %s)", c.PlotName, FormatNumber(c.Area), AreaUnit))
	}

	lines := []string{
		item.Product.Name,
		"- Totalt behov: " + Quantity(item.Results),
		"- Anbefalt innkjøp: " + Packages(item.Results),
		"- Brukes på:",
		strings.Join(plots, "\n"),
	}
	return strings.Join(lines, "\n")
}

// Packages lists the containers of a result as "2 x 20 Liter, 1 x 5 Liter".
func Packages(r calculator.Result) string {
	parts := make([]string, 0, len(r.Packages))
	for _, p := range r.Packages {
		parts = append(parts, fmt.Sprintf("%d x %d %s", p.Count, p.Size, r.UnitLabel))
	}
	return strings.Join(parts, ", ")
}

// Quantity prints the canonical total with two decimals and its unit label.
func Quantity(r calculator.Result) string {
	return FormatFixed2(r.TotalInCanonicalUnit) + " " + r.UnitLabel
}

// FormatFixed2 prints v with two decimals, rounding halves away from zero
// (0.625 -> "0.63").
func FormatFixed2(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// FormatNumber prints v in its shortest decimal form (100, 2.5, 0.125).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
