package utils

import (
	"fmt"
	"strings"
)

// FormatCurrency formats an amount as Brazilian Real (1234.5 -> "R$ 1.234,50")
// for the sales report exports.
func FormatCurrency(amount float64) string {
	formatted := fmt.Sprintf("%.2f", amount)

	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	negative := false
	if strings.HasPrefix(integerPart, "-") {
		negative = true
		integerPart = integerPart[1:]
	}

	var result []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{integerPart[start:i]}, result...)
	}

	out := "R$ " + strings.Join(result, ".") + "," + decimalPart
	if negative {
		out = "-" + out
	}
	return out
}
