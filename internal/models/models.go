// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Format identifies a supported bank-statement file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatOFX   Format = "ofx"
	FormatCAMT  Format = "camt053"
	FormatMT940 Format = "mt940"
)

// Field names a logical column role in a statement.
type Field string

const (
	FieldBookingDate  Field = "bookingDate"
	FieldValueDate    Field = "valueDate"
	FieldAmount       Field = "amount"
	FieldCurrency     Field = "currency"
	FieldCounterparty Field = "counterparty"
	FieldReference    Field = "reference"
	FieldDescription  Field = "description"
	FieldExternalID   Field = "externalId"
)

// RequiredFields are the roles that must be mapped before a preview or commit
// can be produced.
var RequiredFields = []Field{FieldBookingDate, FieldAmount}

// FieldMapping assigns statement columns to logical field roles.
// The value is a zero-based column index into RawLine.Cells.
type FieldMapping map[Field]int

// StructuredColumns is the canonical identity mapping reported for formats
// whose fields are fixed by the standard (OFX, CAMT.053, MT940) rather than
// detected from headers.
func StructuredColumns() FieldMapping {
	return FieldMapping{
		FieldBookingDate:  0,
		FieldValueDate:    1,
		FieldAmount:       2,
		FieldCurrency:     3,
		FieldCounterparty: 4,
		FieldDescription:  5,
		FieldReference:    6,
		FieldExternalID:   7,
	}
}

// Clone returns an independent copy of the mapping.
func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RawLine is one parsed statement line. Structured formats (OFX, CAMT.053,
// MT940) fill the typed fields directly; CSV keeps the raw cells and leaves
// field extraction to the mapping step. A RawLine is never mutated after the
// adapter produced it.
type RawLine struct {
	Index        int
	BookingDate  time.Time
	ValueDate    time.Time
	Amount       decimal.Decimal
	Currency     string
	Counterparty string
	Reference    string
	Description  string
	ExternalID   string
	Cells        []string
	Structured   bool
}

// ParseResult is the complete outcome of parsing one statement file.
// Parsing is all-or-nothing: a ParseResult always describes every line of the
// file or the parse failed with a ParseError.
type ParseResult struct {
	Format          Format
	Header          []string
	DetectedColumns FieldMapping
	Lines           []RawLine
}

// BankAccount is an account whose cash position is tracked. Immutable except
// for balance updates applied by committed imports.
type BankAccount struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Owner          string          `json:"owner"`
}

// NormalizedTransaction is a statement line after mapping and normalization.
// Once committed it is part of the ledger history consumed by the forecast
// engine.
type NormalizedTransaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"accountId"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	Reference    string          `json:"reference"`
	ExternalID   string          `json:"externalId,omitempty"`
	DedupHash    string          `json:"dedupHash"`
}

// MatchType classifies how a transaction was matched to a ledger record.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

// ReconciliationMatch links a previewed transaction to an open invoice or
// bill. MatchedLedgerEntryID is empty when MatchType is MatchNone.
type ReconciliationMatch struct {
	TransactionID        string    `json:"transactionId"`
	MatchedLedgerEntryID string    `json:"matchedLedgerEntryId,omitempty"`
	MatchType            MatchType `json:"matchType"`
	Confidence           float64   `json:"confidence"`
}

// RowError is a per-row validation failure collected during reconciliation.
type RowError struct {
	Line    int    `json:"line"`
	Field   Field  `json:"field,omitempty"`
	Message string `json:"message"`
}

// PreviewRow is one row of the validation preview. Duplicates stay visible
// in the preview but are excluded from the committed count.
type PreviewRow struct {
	Transaction NormalizedTransaction `json:"transaction"`
	Duplicate   bool                  `json:"duplicate"`
	Match       *ReconciliationMatch  `json:"match,omitempty"`
}

// ReconcileResult is the outcome of running the reconciliation engine over a
// parsed statement under a confirmed mapping.
type ReconcileResult struct {
	Rows         []PreviewRow      `json:"rows"`
	Duplicates   int               `json:"duplicates"`
	Errors       []RowError        `json:"errors"`
	MatchSummary map[MatchType]int `json:"matchSummary"`
}

// ImportResult summarizes a committed import.
type ImportResult struct {
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Errors     []RowError `json:"errors"`
}
