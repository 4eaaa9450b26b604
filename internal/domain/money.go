package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode is the only currency the app tracks.
const CurrencyCode = "GHS"

// FormatAmount renders an amount as "GHS 1,234.56". Negative amounts keep
// their sign in front of the currency code.
func FormatAmount(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + CurrencyCode + " " + b.String() + "." + frac
}

// ParseAmount parses a number as printed in bank and mobile-money messages,
// e.g. "1,234.56".
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}
