// Package dateutils provides common date parsing operations used by the
// statement format adapters.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Date format constants used throughout the application
const (
	LayoutISO      = "2006-01-02"
	LayoutEuropean = "02.01.2006"
	LayoutUS       = "01/02/2006"
	LayoutCompact  = "20060102"
	LayoutSwift    = "060102"
)

// StatementFormats is the list of layouts tried when parsing a date cell from
// a statement. Order matters: more specific layouts come first so ambiguous
// strings resolve deterministically.
var StatementFormats = []string{
	LayoutISO,
	LayoutEuropean,
	"02/01/2006",
	"02-01-2006",
	LayoutUS,
	"2006/01/02",
	LayoutCompact,
	"2-Jan-2006",
	"Jan 2, 2006",
}

// ParseDate attempts to parse a date string using the statement layouts.
// It returns the parsed time and the layout that matched.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = Clean(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("empty date string")
	}

	for _, layout := range StatementFormats {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, layout, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseSwiftDate parses the six-digit YYMMDD value date carried by MT940
// :61: lines.
func ParseSwiftDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(LayoutSwift, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SWIFT date '%s': %w", dateStr, err)
	}
	return t, nil
}

// ParseOFXDate parses an OFX DTPOSTED value. OFX timestamps may carry a time
// and timezone suffix after the date digits; only the date part is kept.
func ParseOFXDate(dateStr string) (time.Time, error) {
	dateStr = Clean(dateStr)
	if len(dateStr) < 8 {
		return time.Time{}, fmt.Errorf("invalid OFX date '%s'", dateStr)
	}
	t, err := time.Parse(LayoutCompact, dateStr[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid OFX date '%s': %w", dateStr, err)
	}
	return t, nil
}

// IsDateLike reports whether the string parses as a date in any statement
// layout. Used by the CSV header heuristic.
func IsDateLike(s string) bool {
	_, _, err := ParseDate(s)
	return err == nil
}

// Clean trims whitespace and surrounding quotes from a date cell.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
