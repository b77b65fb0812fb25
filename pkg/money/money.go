// Package money formats integer cent amounts for people.
package money

import "github.com/shopspring/decimal"

// FormatCents renders cents as a fixed two-decimal dollar amount, e.g. 12345 -> "123.45".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FormatUSD renders cents with a dollar sign, e.g. -500 -> "-$5.00".
func FormatUSD(cents int64) string {
	if cents < 0 {
		return "-$" + FormatCents(-cents)
	}
	return "$" + FormatCents(cents)
}

// FormatOptionalCents renders nil as an empty string.
func FormatOptionalCents(cents *int64) string {
	if cents == nil {
		return ""
	}
	return FormatCents(*cents)
}
