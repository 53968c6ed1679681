package reconcile

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Score weights. Amount closeness dominates, date proximity second,
// reference overlap breaks ties.
const (
	amountWeight = 0.5
	dateWeight   = 0.3
	refWeight    = 0.2
)

// candidate is one open invoice or bill considered for a transaction.
type candidate struct {
	id           string
	amountDue    decimal.Decimal
	dueDate      time.Time
	reference    string
	counterparty string
}

// bestMatch finds the highest-scoring open invoice (for credits) or bill
// (for debits) within the amount epsilon and date window. Only the top
// candidate above the confidence threshold is attached; everything else is
// discarded.
func (e *Engine) bestMatch(tx models.NormalizedTransaction, invoices []models.Invoice, bills []models.Bill) *models.ReconciliationMatch {
	var candidates []candidate
	if tx.Amount.IsPositive() {
		for _, inv := range invoices {
			candidates = append(candidates, candidate{
				id: inv.ID, amountDue: inv.AmountDue, dueDate: inv.DueDate,
				reference: inv.Reference, counterparty: inv.Counterparty,
			})
		}
	} else if tx.Amount.IsNegative() {
		for _, bill := range bills {
			candidates = append(candidates, candidate{
				id: bill.ID, amountDue: bill.AmountDue, dueDate: bill.DueDate,
				reference: bill.Reference, counterparty: bill.Counterparty,
			})
		}
	}

	var (
		best      *candidate
		bestScore float64
		bestExact bool
	)
	for i := range candidates {
		c := &candidates[i]
		score, exact, ok := e.scoreCandidate(tx, c)
		if !ok {
			continue
		}
		if score > bestScore {
			best = c
			bestScore = score
			bestExact = exact
		}
	}

	if best == nil || bestScore < e.opts.ConfidenceThreshold {
		return &models.ReconciliationMatch{
			TransactionID: tx.ID,
			MatchType:     models.MatchNone,
		}
	}

	matchType := models.MatchFuzzy
	if bestExact {
		matchType = models.MatchExact
	}
	return &models.ReconciliationMatch{
		TransactionID:        tx.ID,
		MatchedLedgerEntryID: best.id,
		MatchType:            matchType,
		Confidence:           bestScore,
	}
}

// scoreCandidate combines amount exactness, date proximity and reference
// overlap. ok is false when the candidate falls outside the epsilon or the
// date window.
func (e *Engine) scoreCandidate(tx models.NormalizedTransaction, c *candidate) (score float64, exact bool, ok bool) {
	diff := tx.Amount.Abs().Sub(c.amountDue.Abs()).Abs()
	if diff.GreaterThan(e.opts.MatchEpsilon) {
		return 0, false, false
	}

	days := math.Abs(tx.Date.Sub(c.dueDate).Hours() / 24)
	if days > float64(e.opts.MatchWindowDays) {
		return 0, false, false
	}

	amountScore := 1.0
	if !diff.IsZero() {
		epsilon, _ := e.opts.MatchEpsilon.Float64()
		d, _ := diff.Float64()
		amountScore = 1 - d/epsilon
	}
	dateScore := 1 - days/float64(e.opts.MatchWindowDays)
	refScore := referenceOverlap(tx, c)

	score = amountWeight*amountScore + dateWeight*dateScore + refWeight*refScore
	exact = diff.IsZero() && refScore > 0
	return score, exact, true
}

// referenceOverlap checks whether the candidate's reference or counterparty
// appears in the transaction's reference or description (or vice versa).
func referenceOverlap(tx models.NormalizedTransaction, c *candidate) float64 {
	txText := strings.ToLower(tx.Reference + " " + tx.Description + " " + tx.Counterparty)
	for _, needle := range []string{c.reference, c.counterparty} {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle != "" && strings.Contains(txText, needle) {
			return 1
		}
	}
	return 0
}
