// Package reconcile validates mapped statement rows against the ledger:
// it normalizes rows under the confirmed mapping, flags re-imported
// duplicates via dedup hashes and attaches invoice/bill matches.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salmenktata/quelyosSuite-sub025/internal/currencyutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/dateutils"
	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Options tune the matching behavior.
type Options struct {
	// MatchWindowDays is how far a transaction date may sit from an
	// invoice/bill due date and still be considered.
	MatchWindowDays int
	// MatchEpsilon is the maximum absolute amount difference for a match.
	MatchEpsilon decimal.Decimal
	// ConfidenceThreshold is the minimum combined score for a match to be
	// attached. Candidates below it are discarded.
	ConfidenceThreshold float64
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MatchWindowDays:     7,
		MatchEpsilon:        decimal.NewFromFloat(0.01),
		ConfidenceThreshold: 0.6,
	}
}

// Engine deduplicates normalized transactions against committed history and
// optionally matches them to open invoices and bills.
type Engine struct {
	ledger ledger.Ledger
	opts   Options
	logger logging.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(l ledger.Ledger, opts Options, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Engine{ledger: l, opts: opts, logger: logger}
}

// Reconcile validates the mapping, normalizes every raw line, flags
// duplicates and attaches matches. Per-row failures are collected as errors
// rather than aborting the batch; a structurally invalid mapping aborts with
// a MappingError.
func (e *Engine) Reconcile(ctx context.Context, account models.BankAccount, result *models.ParseResult, mapping models.FieldMapping) (*models.ReconcileResult, error) {
	if err := ValidateMapping(result, mapping); err != nil {
		return nil, err
	}

	out := &models.ReconcileResult{MatchSummary: map[models.MatchType]int{}}
	var txs []models.NormalizedTransaction
	for i := range result.Lines {
		tx, rowErr := e.normalizeLine(account, &result.Lines[i], mapping)
		if rowErr != nil {
			out.Errors = append(out.Errors, *rowErr)
			continue
		}
		txs = append(txs, tx)
	}

	existing, err := e.committedHashes(ctx, account.ID, txs)
	if err != nil {
		return nil, err
	}

	invoices, err := e.ledger.QueryOpenInvoices(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	bills, err := e.ledger.QueryOpenBills(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, tx := range txs {
		_, committed := existing[tx.DedupHash]
		_, inBatch := seen[tx.DedupHash]
		duplicate := committed || inBatch
		seen[tx.DedupHash] = struct{}{}

		row := models.PreviewRow{Transaction: tx, Duplicate: duplicate}
		if duplicate {
			out.Duplicates++
		} else {
			row.Match = e.bestMatch(tx, invoices, bills)
			out.MatchSummary[row.Match.MatchType]++
		}
		out.Rows = append(out.Rows, row)
	}

	e.logger.Debug("Reconciliation preview computed",
		logging.F(logging.FieldAccountID, account.ID),
		logging.F(logging.FieldCount, len(out.Rows)),
		logging.F("duplicates", out.Duplicates),
		logging.F("row_errors", len(out.Errors)))
	return out, nil
}

// CommittableTransactions returns the non-duplicate, error-free transactions
// of a preview, the set a commit writes to the ledger.
func CommittableTransactions(result *models.ReconcileResult) []models.NormalizedTransaction {
	var txs []models.NormalizedTransaction
	for _, row := range result.Rows {
		if !row.Duplicate {
			txs = append(txs, row.Transaction)
		}
	}
	return txs
}

// ValidateMapping rejects mappings that leave a required field unmapped or
// point outside the statement's column range. Structured formats carry their
// own field semantics, so only CSV mappings are range-checked.
func ValidateMapping(result *models.ParseResult, mapping models.FieldMapping) error {
	for _, field := range models.RequiredFields {
		if _, ok := mapping[field]; !ok {
			return &financeerrors.MappingError{Field: string(field), Reason: "required field is not mapped"}
		}
	}
	if result.Format != models.FormatCSV {
		return nil
	}

	width := 0
	for _, line := range result.Lines {
		if len(line.Cells) > width {
			width = len(line.Cells)
		}
	}
	for field, col := range mapping {
		if col < 0 || col >= width {
			return &financeerrors.MappingError{
				Field:  string(field),
				Reason: fmt.Sprintf("column index %d out of range (statement has %d columns)", col, width),
			}
		}
	}
	return nil
}

// normalizeLine produces a NormalizedTransaction from a raw line under the
// mapping. Structured lines use their typed fields directly.
func (e *Engine) normalizeLine(account models.BankAccount, line *models.RawLine, mapping models.FieldMapping) (models.NormalizedTransaction, *models.RowError) {
	var (
		date         time.Time
		amount       decimal.Decimal
		currency     string
		counterparty string
		reference    string
		description  string
		externalID   string
	)

	if line.Structured {
		date = line.BookingDate
		amount = line.Amount
		currency = line.Currency
		counterparty = line.Counterparty
		reference = line.Reference
		description = line.Description
		externalID = line.ExternalID
	} else {
		cell := func(field models.Field) string {
			col, ok := mapping[field]
			if !ok || col < 0 || col >= len(line.Cells) {
				return ""
			}
			return line.Cells[col]
		}

		rawDate := cell(models.FieldBookingDate)
		parsed, _, err := dateutils.ParseDate(rawDate)
		if err != nil {
			return models.NormalizedTransaction{}, &models.RowError{
				Line:    line.Index + 1,
				Field:   models.FieldBookingDate,
				Message: fmt.Sprintf("unparseable date '%s'", rawDate),
			}
		}
		date = parsed

		rawAmount := cell(models.FieldAmount)
		amt, err := currencyutils.ParseAmount(rawAmount)
		if err != nil {
			return models.NormalizedTransaction{}, &models.RowError{
				Line:    line.Index + 1,
				Field:   models.FieldAmount,
				Message: fmt.Sprintf("unparseable amount '%s'", rawAmount),
			}
		}
		amount = amt

		currency = cell(models.FieldCurrency)
		counterparty = cell(models.FieldCounterparty)
		reference = cell(models.FieldReference)
		description = cell(models.FieldDescription)
		externalID = cell(models.FieldExternalID)
	}

	if currency == "" {
		currency = account.Currency
	}

	return models.NormalizedTransaction{
		ID:           uuid.New().String(),
		AccountID:    account.ID,
		Date:         date,
		Amount:       amount,
		Currency:     currency,
		Description:  description,
		Counterparty: counterparty,
		Reference:    reference,
		ExternalID:   externalID,
		DedupHash:    models.DedupHash(account.ID, date, amount, externalID, description),
	}, nil
}

// committedHashes collects the dedup hashes of committed transactions inside
// the statement's date range.
func (e *Engine) committedHashes(ctx context.Context, accountID string, txs []models.NormalizedTransaction) (map[string]struct{}, error) {
	hashes := map[string]struct{}{}
	if len(txs) == 0 {
		return hashes, nil
	}

	from, to := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(from) {
			from = tx.Date
		}
		if tx.Date.After(to) {
			to = tx.Date
		}
	}

	committed, err := e.ledger.QueryTransactions(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	for _, tx := range committed {
		hashes[tx.DedupHash] = struct{}{}
	}
	return hashes, nil
}
