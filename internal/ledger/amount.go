package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a stored total. Only digits and commas are kept and the
// first comma is the decimal separator, so "Rp 20.000" is 20000 and
// "12.500,50" is 12500.5. Anything unreadable is zero.
func ParseAmount(s string) decimal.Decimal {
	var b strings.Builder
	seenComma := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			if seenComma {
				// a second separator ends the number
				return parseDecimal(b.String())
			}
			seenComma = true
			b.WriteRune('.')
		}
	}
	return parseDecimal(b.String())
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
