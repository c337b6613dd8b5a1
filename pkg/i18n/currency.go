package i18n

import (
	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]struct {
	symbol string
	prefix bool
}{
	"ZAR": {"R", true},
	"USD": {"$", true},
	"EUR": {"€", true},
	"GBP": {"£", true},
	"BWP": {"P", true},
	"NAD": {"N$", true},
	"LSL": {"L", true},
	"SZL": {"E", true},
}

// FormatAmount renders an amount with its currency symbol, e.g. "R45.00"
// or "45.00 XYZ" for unknown codes.
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	info, ok := currencySymbols[currencyCode]
	if !ok {
		return amount.StringFixed(2) + " " + currencyCode
	}
	if info.prefix {
		return info.symbol + amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + info.symbol
}
