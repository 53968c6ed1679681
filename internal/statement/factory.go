// Package statement selects the format adapter for a declared statement
// format.
package statement

import (
	"fmt"
	"strings"

	"github.com/salmenktata/quelyosSuite-sub025/internal/camtparser"
	"github.com/salmenktata/quelyosSuite-sub025/internal/csvparser"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/mt940parser"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ofxparser"
	"github.com/salmenktata/quelyosSuite-sub025/internal/parser"
)

// ParseFormat normalizes a caller-declared format string.
func ParseFormat(s string) (models.Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return models.FormatCSV, nil
	case "ofx":
		return models.FormatOFX, nil
	case "camt053", "camt.053", "camt":
		return models.FormatCAMT, nil
	case "mt940":
		return models.FormatMT940, nil
	default:
		return "", fmt.Errorf("unsupported statement format: %s", s)
	}
}

// GetAdapter returns a new adapter instance for the given format.
// It acts as the factory for parser.Adapter implementations.
func GetAdapter(format models.Format, logger logging.Logger) (parser.Adapter, error) {
	switch format {
	case models.FormatCSV:
		return csvparser.New(logger), nil
	case models.FormatOFX:
		return ofxparser.New(logger), nil
	case models.FormatCAMT:
		return camtparser.New(logger), nil
	case models.FormatMT940:
		return mt940parser.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown statement format: %s", format)
	}
}
