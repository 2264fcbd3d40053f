// Package money formats receipt amounts for display.
package money

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultCurrency is used when a receipt carries no currency code.
const DefaultCurrency = "INR"

var glyphs = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Symbol returns the display glyph for a currency code, or the code followed
// by a space when no glyph is known.
func Symbol(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	if g, ok := glyphs[code]; ok {
		return g
	}
	return code + " "
}

// Format renders an amount with grouping and two decimals, e.g. ₹1,245.80.
func Format(amount float64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + Symbol(currency) + humanize.FormatFloat("#,###.##", amount)
}
