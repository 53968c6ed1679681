// Package mt940parser decodes SWIFT MT940 customer statement messages.
// The format is line-oriented: a :61: line carries value date, debit/credit
// mark, amount and references, and an optional following :86: block supplies
// free-text description across continuation lines until the next tag.
package mt940parser

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/salmenktata/quelyosSuite-sub025/internal/currencyutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/dateutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/parser"
)

const cancelCheckInterval = 512

var (
	tagPattern = regexp.MustCompile(`^:(\d{2}[A-Z]?):`)

	// :61: = value date (YYMMDD), optional entry date (MMDD), debit/credit
	// mark, optional funds code, amount with comma decimal, booking key,
	// customer reference, optional //bank reference.
	statementLinePattern = regexp.MustCompile(
		`^:61:(\d{6})(\d{4})?(RC|RD|C|D)([A-Z])?(\d+,\d{0,2})(N[A-Z0-9]{3})?([^/]*)(?://(.*))?$`)

	// :60F:/:60M: opening balance carries the statement currency.
	openingBalancePattern = regexp.MustCompile(`^:60[FM]:[CD]\d{6}([A-Z]{3})`)
)

// MT940Parser implements parser.Adapter for MT940 statements.
type MT940Parser struct {
	parser.BaseParser
}

// New creates an MT940 statement parser.
func New(logger logging.Logger) *MT940Parser {
	return &MT940Parser{BaseParser: parser.NewBaseParser(logger)}
}

// Format returns models.FormatMT940.
func (p *MT940Parser) Format() models.Format {
	return models.FormatMT940
}

// pendingLine is a :61: entry waiting for its optional :86: description.
type pendingLine struct {
	line    models.RawLine
	in86    bool
	details []string
}

// Parse walks the message line by line, pairing every :61: entry with the
// :86: continuation block that may follow it.
func (p *MT940Parser) Parse(ctx context.Context, r io.Reader) (*models.ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		lines    []models.RawLine
		pending  *pendingLine
		currency string
		lineNo   int
	)

	fail := func(line int, reason string) (*models.ParseResult, error) {
		return nil, &financeerrors.ParseError{Format: string(models.FormatMT940), Line: line, Reason: reason}
	}

	flush := func() {
		if pending == nil {
			return
		}
		if len(pending.details) > 0 {
			pending.line.Description = strings.Join(pending.details, " ")
		}
		if pending.line.Currency == "" {
			pending.line.Currency = currency
		}
		pending.line.Index = len(lines)
		lines = append(lines, pending.line)
		pending = nil
	}

	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckInterval == 0 {
			if err := p.CheckCancelled(ctx); err != nil {
				return nil, err
			}
		}

		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		tag := tagPattern.FindString(raw)
		switch {
		case strings.HasPrefix(raw, ":61:"):
			flush()
			line, reason := parseStatementLine(raw)
			if reason != "" {
				return fail(lineNo, reason)
			}
			pending = &pendingLine{line: line}

		case strings.HasPrefix(raw, ":86:"):
			if pending == nil {
				return fail(lineNo, ":86: information without preceding :61: line")
			}
			if pending.in86 {
				return fail(lineNo, "repeated :86: block for one :61: line")
			}
			pending.in86 = true
			if text := strings.TrimSpace(raw[len(":86:"):]); text != "" {
				pending.details = append(pending.details, text)
			}

		case tag != "":
			// Any other tag terminates a running :86: block.
			flush()
			if m := openingBalancePattern.FindStringSubmatch(raw); m != nil {
				currency = m[1]
			}

		default:
			// Untagged line: continuation of a running :86: block.
			// SWIFT envelope noise outside any block is tolerated.
			if pending != nil && pending.in86 {
				if text := strings.TrimSpace(raw); text != "" {
					pending.details = append(pending.details, text)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &financeerrors.ParseError{Format: string(models.FormatMT940), Line: lineNo, Reason: "reading input", Err: err}
	}
	flush()

	if len(lines) == 0 {
		return fail(0, "no :61: statement lines found")
	}
	for i := range lines {
		if lines[i].Currency == "" {
			lines[i].Currency = currency
		}
	}

	p.Logger().Info("Parsed MT940 statement", logging.F(logging.FieldCount, len(lines)))
	return &models.ParseResult{
		Format:          models.FormatMT940,
		DetectedColumns: models.StructuredColumns(),
		Lines:           lines,
	}, nil
}

// parseStatementLine decodes one :61: line. A non-empty reason means the line
// is malformed.
func parseStatementLine(raw string) (models.RawLine, string) {
	m := statementLinePattern.FindStringSubmatch(raw)
	if m == nil {
		return models.RawLine{}, "malformed :61: statement line"
	}

	valueDate, err := dateutils.ParseSwiftDate(m[1])
	if err != nil {
		return models.RawLine{}, "unparseable value date in :61: line"
	}

	// The optional entry date is MMDD in the value date's year.
	bookingDate := valueDate
	if m[2] != "" {
		if t, err := dateutils.ParseSwiftDate(m[1][:2] + m[2]); err == nil {
			bookingDate = t
		}
	}

	amount, err := currencyutils.ParseAmount(m[5])
	if err != nil {
		return models.RawLine{}, "unparseable amount in :61: line"
	}
	switch m[3] {
	case "C", "RC":
		// credit, positive
	case "D", "RD":
		amount = amount.Neg()
	}

	reference := strings.TrimSpace(m[7])
	if reference == "NONREF" {
		reference = ""
	}

	return models.RawLine{
		BookingDate: bookingDate,
		ValueDate:   valueDate,
		Amount:      amount,
		Reference:   reference,
		ExternalID:  strings.TrimSpace(m[8]),
		Structured:  true,
	}, ""
}
