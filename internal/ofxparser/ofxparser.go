// Package ofxparser decodes OFX bank statements. OFX is SGML-like and often
// ships without closing tags, so the parser is a tag-soup tokenizer rather
// than an XML parser: it walks the file line by line and extracts repeated
// STMTTRN blocks.
package ofxparser

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/salmenktata/quelyosSuite-sub025/internal/currencyutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/dateutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/parser"
)

const cancelCheckInterval = 512

// OFXParser implements parser.Adapter for OFX statements.
type OFXParser struct {
	parser.BaseParser
}

// New creates an OFX statement parser.
func New(logger logging.Logger) *OFXParser {
	return &OFXParser{BaseParser: parser.NewBaseParser(logger)}
}

// Format returns models.FormatOFX.
func (p *OFXParser) Format() models.Format {
	return models.FormatOFX
}

// Parse tokenizes the OFX file and extracts one RawLine per STMTTRN block.
// DTPOSTED and TRNAMT are mandatory per block; FITID becomes the external ID.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) (*models.ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		lines     []models.RawLine
		current   map[string]string
		openLine  int
		currency  string
		lineNo    int
		sawHeader bool
	)

	fail := func(line int, reason string) (*models.ParseResult, error) {
		return nil, &financeerrors.ParseError{Format: string(models.FormatOFX), Line: line, Reason: reason}
	}

	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckInterval == 0 {
			if err := p.CheckCancelled(ctx); err != nil {
				return nil, err
			}
		}

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		tag, value := splitTagLine(raw)
		switch tag {
		case "OFX":
			sawHeader = true
		case "CURDEF":
			currency = strings.ToUpper(value)
		case "STMTTRN":
			if current != nil {
				return fail(lineNo, "nested <STMTTRN> without closing previous block")
			}
			current = map[string]string{}
			openLine = lineNo
		case "/STMTTRN":
			if current == nil {
				return fail(lineNo, "</STMTTRN> without opening tag")
			}
			line, reason := buildLine(len(lines), current, currency)
			if reason != "" {
				return fail(openLine, reason)
			}
			lines = append(lines, line)
			current = nil
		default:
			if current != nil && value != "" {
				current[tag] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &financeerrors.ParseError{Format: string(models.FormatOFX), Line: lineNo, Reason: "reading input", Err: err}
	}
	if current != nil {
		return fail(openLine, "unclosed <STMTTRN> block")
	}
	if !sawHeader && len(lines) == 0 {
		return fail(0, "not an OFX document")
	}

	p.Logger().Info("Parsed OFX statement", logging.F(logging.FieldCount, len(lines)))
	return &models.ParseResult{
		Format:          models.FormatOFX,
		DetectedColumns: models.StructuredColumns(),
		Lines:           lines,
	}, nil
}

// splitTagLine splits "<TAG>value" into tag name and value. Closing tags
// yield "/TAG" with an empty value. A trailing "</TAG>" on the same line is
// stripped from the value.
func splitTagLine(line string) (string, string) {
	if !strings.HasPrefix(line, "<") {
		return "", line
	}
	end := strings.Index(line, ">")
	if end < 0 {
		return "", line
	}
	tag := strings.ToUpper(strings.TrimSpace(line[1:end]))
	value := strings.TrimSpace(line[end+1:])
	if i := strings.Index(value, "</"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return tag, value
}

// buildLine assembles a RawLine from a finished STMTTRN block. It returns a
// non-empty reason string when a mandatory field is missing or unparseable.
func buildLine(index int, fields map[string]string, currency string) (models.RawLine, string) {
	posted, ok := fields["DTPOSTED"]
	if !ok {
		return models.RawLine{}, "STMTTRN missing mandatory DTPOSTED"
	}
	date, err := dateutils.ParseOFXDate(posted)
	if err != nil {
		return models.RawLine{}, "unparseable DTPOSTED '" + posted + "'"
	}

	amtStr, ok := fields["TRNAMT"]
	if !ok {
		return models.RawLine{}, "STMTTRN missing mandatory TRNAMT"
	}
	amount, err := currencyutils.ParseAmount(amtStr)
	if err != nil {
		return models.RawLine{}, "unparseable TRNAMT '" + amtStr + "'"
	}

	return models.RawLine{
		Index:        index,
		BookingDate:  date,
		Amount:       amount,
		Currency:     currency,
		Counterparty: fields["NAME"],
		Description:  firstNonEmpty(fields["MEMO"], fields["NAME"]),
		Reference:    fields["CHECKNUM"],
		ExternalID:   fields["FITID"],
		Structured:   true,
	}, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
