// Package currency formats decimal amounts for user-presentable messages.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders an amount as "$1,234" or "$1,234.56". Whole-dollar
// amounts drop the cents so limit messages read the way tier documentation
// states them.
func FormatUSD(amount decimal.Decimal) string {
	amount = amount.Abs()
	whole := amount.Truncate(0)
	cents := amount.Sub(whole)

	grouped := groupThousands(whole.BigInt().String())
	if cents.IsZero() {
		return "$" + grouped
	}
	return "$" + grouped + cents.StringFixed(2)[1:]
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
