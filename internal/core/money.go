// Package core holds the ledger data model and the cell-level parsers shared
// by the normalizer, the aggregation frame and the exporter.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ThousandsSeparator is stripped from amount cells before parsing.
const ThousandsSeparator = ","

// ParseAmount converts a spreadsheet amount cell ("1,200", "3000000", "12.5")
// into a decimal value.
//
// Examples:
//
//	ParseAmount("1,200")     -> 1200, nil
//	ParseAmount(" 3,000,000") -> 3000000, nil
//	ParseAmount("abc")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ThousandsSeparator, ""))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatWon renders an amount rounded to whole won with thousands
// separators, e.g. "400,000 원" or "-12,500 원".
func FormatWon(d decimal.Decimal) string {
	return GroupThousands(d.Round(0).StringFixed(0)) + " 원"
}

// GroupThousands inserts separators into an integer string, keeping a
// leading minus sign.
func GroupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:min(lead, len(digits))])
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(ThousandsSeparator)
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
