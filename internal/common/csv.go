// Package common provides the shared CSV export used by the convert command.
package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

var log logging.Logger = logging.NewLogrusAdapter("info", "text")

// Global CSV delimiter for export output.
var Delimiter rune = ','

// SetDelimiter allows setting the delimiter for CSV output.
func SetDelimiter(delim rune) {
	Delimiter = delim
	gocsv.TagSeparator = fmt.Sprintf("%c", delim)
}

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger == nil {
		return
	}
	log = logger
}

// exportRow is the normalized CSV layout written by the convert command.
type exportRow struct {
	Date         string `csv:"Date"`
	ValueDate    string `csv:"Value Date"`
	Amount       string `csv:"Amount"`
	Currency     string `csv:"Currency"`
	Counterparty string `csv:"Counterparty"`
	Reference    string `csv:"Reference"`
	Description  string `csv:"Description"`
	ExternalID   string `csv:"External ID"`
}

// WriteLinesToCSV writes parsed statement lines to a CSV file in the
// normalized export format. All formats funnel through this writer so the
// output is identical regardless of the input format.
func WriteLinesToCSV(lines []models.RawLine, csvFile string) error {
	if lines == nil {
		return fmt.Errorf("cannot write nil lines to CSV")
	}

	log.Info("Writing normalized lines to CSV file",
		logging.F(logging.FieldFile, csvFile),
		logging.F(logging.FieldCount, len(lines)))

	dir := filepath.Dir(csvFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		log.WithError(err).Error("Failed to create directory")
		return fmt.Errorf("error creating directory: %w", err)
	}

	file, err := os.Create(csvFile)
	if err != nil {
		log.WithError(err).Error("Failed to create CSV file")
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file")
		}
	}()

	rows := make([]exportRow, 0, len(lines))
	for i := range lines {
		rows = append(rows, toExportRow(&lines[i]))
	}

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		log.WithError(err).Error("Failed to write CSV data")
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	log.Info("Successfully wrote CSV file", logging.F(logging.FieldCount, len(rows)))
	return nil
}

func toExportRow(line *models.RawLine) exportRow {
	row := exportRow{
		Date:         line.BookingDate.Format("2006-01-02"),
		Amount:       line.Amount.String(),
		Currency:     line.Currency,
		Counterparty: line.Counterparty,
		Reference:    line.Reference,
		Description:  line.Description,
		ExternalID:   line.ExternalID,
	}
	if !line.ValueDate.IsZero() {
		row.ValueDate = line.ValueDate.Format("2006-01-02")
	}
	return row
}
