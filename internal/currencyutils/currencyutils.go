// Package currencyutils provides amount string parsing shared by the
// statement format adapters.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = regexp.MustCompile(`[€$£¥₣₹₽₩฿\sA-Z']`)

// ParseAmount parses a string representation of an amount into a decimal.
// It handles the formats seen across bank exports: "1,234.56", "1.234,56",
// "1'234.56", "1234,56", with an optional leading sign.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return decimal.Zero, fmt.Errorf("empty amount string")
	}

	standardized := StandardizeAmount(amountStr)
	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return amount, nil
}

// StandardizeAmount converts the various separator conventions to a plain
// decimal string that decimal.NewFromString accepts.
func StandardizeAmount(amountStr string) string {
	negative := strings.HasPrefix(strings.TrimSpace(amountStr), "-")

	// Strip currency symbols, letters, apostrophe thousand separators and
	// whitespace. The sign is re-applied at the end.
	s := currencySymbols.ReplaceAllString(amountStr, "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "-")
	s = strings.TrimPrefix(s, "+")

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// European convention: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Anglo convention: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		// A trailing group of 1-2 digits after the last comma is a decimal
		// part; otherwise commas are thousand separators.
		parts := strings.Split(s, ",")
		if len(parts[len(parts)-1]) <= 2 {
			s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
		} else {
			s = strings.Join(parts, "")
		}
	}

	if negative {
		s = "-" + s
	}
	return s
}

// IsAmountLike reports whether the string parses as an amount. Used by the
// CSV header heuristic.
func IsAmountLike(s string) bool {
	_, err := ParseAmount(s)
	return err == nil
}
