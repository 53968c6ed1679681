// Package camtparser decodes ISO 20022 CAMT.053 bank-to-customer statements.
// Files are pre-validated with an XPath probe for the statement root before
// the full document is unmarshaled, so obviously wrong XML fails with a clear
// format error instead of an empty result.
package camtparser

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"gopkg.in/xmlpath.v2"

	"github.com/salmenktata/quelyosSuite-sub025/internal/currencyutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/parser"
)

var stmtPath = xmlpath.MustCompile("//BkToCstmrStmt/Stmt")

// CAMTParser implements parser.Adapter for CAMT.053 statements.
type CAMTParser struct {
	parser.BaseParser
}

// New creates a CAMT.053 statement parser.
func New(logger logging.Logger) *CAMTParser {
	return &CAMTParser{BaseParser: parser.NewBaseParser(logger)}
}

// Format returns models.FormatCAMT.
func (p *CAMTParser) Format() models.Format {
	return models.FormatCAMT
}

// Parse validates and unmarshals a CAMT.053 document and converts every Ntry
// element into a RawLine. The amount sign is derived from CdtDbtInd: CRDT is
// positive, DBIT negative.
func (p *CAMTParser) Parse(ctx context.Context, r io.Reader) (*models.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &financeerrors.ParseError{Format: string(models.FormatCAMT), Reason: "reading input", Err: err}
	}
	if err := p.CheckCancelled(ctx); err != nil {
		return nil, err
	}

	if err := ValidateFormat(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &financeerrors.ParseError{
			Format: string(models.FormatCAMT),
			Reason: "unmarshaling XML document",
			Err:    err,
		}
	}

	var lines []models.RawLine
	for _, stmt := range doc.BkToCstmrStmt.Stmt {
		for _, e := range stmt.Ntry {
			if err := p.CheckCancelled(ctx); err != nil {
				return nil, err
			}
			line, reason := entryToLine(len(lines), &e, stmt.Acct.Ccy)
			if reason != "" {
				return nil, &financeerrors.ParseError{
					Format: string(models.FormatCAMT),
					Reason: reason,
				}
			}
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, &financeerrors.ParseError{Format: string(models.FormatCAMT), Reason: "statement contains no entries"}
	}

	p.Logger().Info("Parsed CAMT.053 statement", logging.F(logging.FieldCount, len(lines)))
	return &models.ParseResult{
		Format:          models.FormatCAMT,
		DetectedColumns: models.StructuredColumns(),
		Lines:           lines,
	}, nil
}

// ValidateFormat probes the XML for the BkToCstmrStmt/Stmt element that every
// CAMT.053 document must carry.
func ValidateFormat(r io.Reader) error {
	root, err := xmlpath.Parse(r)
	if err != nil {
		return &financeerrors.ParseError{
			Format: string(models.FormatCAMT),
			Reason: "not well-formed XML",
			Err:    err,
		}
	}
	if !stmtPath.Exists(root) {
		return &financeerrors.ParseError{
			Format: string(models.FormatCAMT),
			Reason: "missing BkToCstmrStmt/Stmt element, not a CAMT.053 document",
		}
	}
	return nil
}

// entryToLine converts one Ntry element. A non-empty reason means a mandatory
// field was missing or unparseable.
func entryToLine(index int, e *entry, stmtCcy string) (models.RawLine, string) {
	bookg := e.BookgDt.date()
	if bookg == "" {
		return models.RawLine{}, "entry missing mandatory BookgDt"
	}
	bookingDate, err := time.Parse("2006-01-02", bookg)
	if err != nil {
		return models.RawLine{}, "unparseable BookgDt '" + bookg + "'"
	}

	var valueDate time.Time
	if vd := e.ValDt.date(); vd != "" {
		valueDate, err = time.Parse("2006-01-02", vd)
		if err != nil {
			return models.RawLine{}, "unparseable ValDt '" + vd + "'"
		}
	}

	if e.Amt.Value == "" {
		return models.RawLine{}, "entry missing mandatory Amt"
	}
	amt, err := currencyutils.ParseAmount(e.Amt.Value)
	if err != nil {
		return models.RawLine{}, "unparseable Amt '" + e.Amt.Value + "'"
	}
	switch e.CdtDbtInd {
	case "CRDT":
		// positive as parsed
	case "DBIT":
		amt = amt.Neg()
	default:
		return models.RawLine{}, "entry has invalid CdtDbtInd '" + e.CdtDbtInd + "'"
	}

	currency := e.Amt.Ccy
	if currency == "" {
		currency = stmtCcy
	}

	return models.RawLine{
		Index:        index,
		BookingDate:  bookingDate,
		ValueDate:    valueDate,
		Amount:       amt,
		Currency:     currency,
		Counterparty: counterparty(e),
		Description:  description(e),
		Reference:    reference(e),
		ExternalID:   externalID(e),
		Structured:   true,
	}, ""
}

// counterparty picks the relevant party name: the debtor for credits (money
// coming in) and the creditor for debits.
func counterparty(e *entry) string {
	for _, tx := range e.NtryDtls.TxDtls {
		if e.CdtDbtInd == "CRDT" && tx.RltdPties.Dbtr.Nm != "" {
			return tx.RltdPties.Dbtr.Nm
		}
		if e.CdtDbtInd == "DBIT" && tx.RltdPties.Cdtr.Nm != "" {
			return tx.RltdPties.Cdtr.Nm
		}
	}
	return ""
}

// description joins the unstructured remittance information, falling back to
// the additional entry info.
func description(e *entry) string {
	var parts []string
	for _, tx := range e.NtryDtls.TxDtls {
		for _, u := range tx.RmtInf.Ustrd {
			if s := strings.TrimSpace(u); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 && e.AddtlNtryInf != "" {
		return strings.TrimSpace(e.AddtlNtryInf)
	}
	return strings.Join(parts, " ")
}

func reference(e *entry) string {
	for _, tx := range e.NtryDtls.TxDtls {
		if tx.Refs.EndToEndID != "" && tx.Refs.EndToEndID != "NOTPROVIDED" {
			return tx.Refs.EndToEndID
		}
	}
	return e.NtryRef
}

// externalID prefers the bank's account-servicer reference, the most stable
// identifier a CAMT.053 entry carries.
func externalID(e *entry) string {
	if e.AcctSvcrRef != "" {
		return e.AcctSvcrRef
	}
	for _, tx := range e.NtryDtls.TxDtls {
		if tx.Refs.AcctSvcrRef != "" {
			return tx.Refs.AcctSvcrRef
		}
	}
	return ""
}
