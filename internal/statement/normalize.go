package statement

import (
	"fmt"

	"github.com/salmenktata/quelyosSuite-sub025/internal/currencyutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/dateutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// ApplyMapping fills a raw CSV line's typed fields from its cells under the
// given column mapping. Structured lines already carry typed fields and are
// left untouched.
func ApplyMapping(line *models.RawLine, mapping models.FieldMapping) error {
	if line.Structured {
		return nil
	}

	cell := func(field models.Field) string {
		col, ok := mapping[field]
		if !ok || col < 0 || col >= len(line.Cells) {
			return ""
		}
		return line.Cells[col]
	}

	rawDate := cell(models.FieldBookingDate)
	date, _, err := dateutils.ParseDate(rawDate)
	if err != nil {
		return fmt.Errorf("line %d: unparseable date '%s'", line.Index+1, rawDate)
	}
	line.BookingDate = date

	if rawValue := cell(models.FieldValueDate); rawValue != "" {
		if valueDate, _, err := dateutils.ParseDate(rawValue); err == nil {
			line.ValueDate = valueDate
		}
	}

	rawAmount := cell(models.FieldAmount)
	amount, err := currencyutils.ParseAmount(rawAmount)
	if err != nil {
		return fmt.Errorf("line %d: unparseable amount '%s'", line.Index+1, rawAmount)
	}
	line.Amount = amount

	line.Currency = cell(models.FieldCurrency)
	line.Counterparty = cell(models.FieldCounterparty)
	line.Reference = cell(models.FieldReference)
	line.Description = cell(models.FieldDescription)
	line.ExternalID = cell(models.FieldExternalID)
	return nil
}
