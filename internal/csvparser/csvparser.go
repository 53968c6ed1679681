// Package csvparser decodes delimiter-separated bank statement exports.
// Unlike the structured formats, a CSV export carries no field semantics of
// its own: the parser sniffs the delimiter, detects a header row and suggests
// column roles from header names, but the final mapping is always confirmed
// downstream before any row is normalized.
package csvparser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/salmenktata/quelyosSuite-sub025/internal/currencyutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/dateutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/parser"
)

// cancelCheckInterval is how many rows are decoded between context checks.
const cancelCheckInterval = 256

// headerSynonyms maps normalized header names to field roles. Matching is
// case-insensitive and ignores surrounding whitespace.
var headerSynonyms = map[string]models.Field{
	"date":             models.FieldBookingDate,
	"booking date":     models.FieldBookingDate,
	"bookingdate":      models.FieldBookingDate,
	"transaction date": models.FieldBookingDate,
	"posted date":      models.FieldBookingDate,
	"buchungsdatum":    models.FieldBookingDate,
	"datum":            models.FieldBookingDate,
	"value date":       models.FieldValueDate,
	"valuedate":        models.FieldValueDate,
	"valuta":           models.FieldValueDate,
	"valutadatum":      models.FieldValueDate,
	"amount":           models.FieldAmount,
	"betrag":           models.FieldAmount,
	"montant":          models.FieldAmount,
	"currency":         models.FieldCurrency,
	"ccy":              models.FieldCurrency,
	"waehrung":         models.FieldCurrency,
	"devise":           models.FieldCurrency,
	"counterparty":     models.FieldCounterparty,
	"name":             models.FieldCounterparty,
	"payee":            models.FieldCounterparty,
	"beneficiary":      models.FieldCounterparty,
	"merchant":         models.FieldCounterparty,
	"reference":        models.FieldReference,
	"ref":              models.FieldReference,
	"referenz":         models.FieldReference,
	"description":      models.FieldDescription,
	"text":             models.FieldDescription,
	"memo":             models.FieldDescription,
	"narrative":        models.FieldDescription,
	"purpose":          models.FieldDescription,
	"verwendungszweck": models.FieldDescription,
	"transaction id":   models.FieldExternalID,
	"external id":      models.FieldExternalID,
	"fitid":            models.FieldExternalID,
	"bank reference":   models.FieldExternalID,
}

// CSVParser implements parser.Adapter for delimiter-separated statements.
type CSVParser struct {
	parser.BaseParser
}

// New creates a CSV statement parser.
func New(logger logging.Logger) *CSVParser {
	return &CSVParser{BaseParser: parser.NewBaseParser(logger)}
}

// Format returns models.FormatCSV.
func (p *CSVParser) Format() models.Format {
	return models.FormatCSV
}

// Parse reads the whole CSV statement, sniffing the delimiter and detecting
// the header row. Rows are returned as raw cells; field extraction happens
// under the confirmed mapping during reconciliation.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader) (*models.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &financeerrors.ParseError{Format: string(models.FormatCSV), Reason: "reading input", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &financeerrors.ParseError{Format: string(models.FormatCSV), Reason: "file is empty"}
	}

	delimiter := SniffDelimiter(data)
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		if len(rows)%cancelCheckInterval == 0 {
			if err := p.CheckCancelled(ctx); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := len(rows) + 1
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, &financeerrors.ParseError{
				Format: string(models.FormatCSV),
				Line:   line,
				Reason: "malformed CSV record",
				Err:    err,
			}
		}
		rows = append(rows, trimCells(record))
	}
	if len(rows) == 0 {
		return nil, &financeerrors.ParseError{Format: string(models.FormatCSV), Reason: "no rows found"}
	}

	result := &models.ParseResult{
		Format:          models.FormatCSV,
		DetectedColumns: models.FieldMapping{},
	}

	dataRows := rows
	if HasHeaderRow(rows) {
		result.Header = rows[0]
		result.DetectedColumns = DetectColumns(rows[0])
		dataRows = rows[1:]
	}
	if len(dataRows) == 0 {
		return nil, &financeerrors.ParseError{Format: string(models.FormatCSV), Reason: "no data rows after header"}
	}

	result.Lines = make([]models.RawLine, 0, len(dataRows))
	for i, cells := range dataRows {
		result.Lines = append(result.Lines, models.RawLine{
			Index: i,
			Cells: cells,
		})
	}

	p.Logger().Info("Parsed CSV statement",
		logging.F(logging.FieldCount, len(result.Lines)),
		logging.F(logging.FieldDelimiter, string(delimiter)))
	return result, nil
}

// SniffDelimiter picks the delimiter among comma, semicolon and tab that
// splits the first lines into the most consistent column count.
func SniffDelimiter(data []byte) rune {
	lines := firstLines(data, 10)
	best := ','
	bestScore := -1
	for _, cand := range []rune{',', ';', '\t'} {
		score := delimiterScore(lines, cand)
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return best
}

// delimiterScore counts occurrences of the candidate per line, rewarding
// consistency across lines.
func delimiterScore(lines []string, delim rune) int {
	counts := map[int]int{}
	for _, l := range lines {
		counts[strings.Count(l, string(delim))]++
	}
	score := 0
	for n, freq := range counts {
		if n > 0 && freq*n > score {
			score = freq * n
		}
	}
	return score
}

func firstLines(data []byte, n int) []string {
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
		if len(lines) == n {
			break
		}
	}
	return lines
}

// HasHeaderRow applies the header heuristic: the first row counts as a header
// when none of its cells parse as a date or an amount while the majority of
// the remaining rows start with a date-like or amount-like first cell.
func HasHeaderRow(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	for _, cell := range rows[0] {
		if dateutils.IsDateLike(cell) || currencyutils.IsAmountLike(cell) {
			return false
		}
	}
	valueLike := 0
	for _, row := range rows[1:] {
		if len(row) > 0 && (dateutils.IsDateLike(row[0]) || currencyutils.IsAmountLike(row[0])) {
			valueLike++
		}
	}
	return valueLike*2 > len(rows)-1
}

// DetectColumns suggests field roles from header names using the synonym
// dictionary. The suggestion always requires explicit confirmation downstream.
func DetectColumns(header []string) models.FieldMapping {
	detected := models.FieldMapping{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		field, ok := headerSynonyms[key]
		if !ok {
			continue
		}
		if _, taken := detected[field]; taken {
			continue
		}
		detected[field] = i
	}
	return detected
}

func trimCells(record []string) []string {
	out := make([]string, len(record))
	for i, c := range record {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
