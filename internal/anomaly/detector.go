// Package anomaly scores committed transactions against the counterparty's
// historical amount distribution. Scoring runs asynchronously after commit
// so it never blocks or rolls back an import.
package anomaly

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Severity thresholds on the absolute z-score.
const (
	zHigh   = 3.0
	zMedium = 2.0
	zLow    = 1.5
)

// Options tune the detector.
type Options struct {
	// TrailingWindowDays bounds the history window used for the
	// counterparty distribution.
	TrailingWindowDays int
	// MinSamples is the least prior observations required before a
	// z-score is meaningful.
	MinSamples int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TrailingWindowDays: 90,
		MinSamples:         3,
	}
}

// Detector computes per-transaction anomaly scores.
type Detector struct {
	ledger ledger.Ledger
	opts   Options
	logger logging.Logger
}

// NewDetector creates a detector.
func NewDetector(l ledger.Ledger, opts Options, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Detector{ledger: l, opts: opts, logger: logger}
}

// Score computes the z-score of a transaction against the trailing amount
// distribution of the same counterparty. It returns nil when the
// counterparty has too little history, the distribution is degenerate or
// the deviation stays under the lowest threshold.
func (d *Detector) Score(ctx context.Context, tx models.NormalizedTransaction) (*models.AnomalyScore, error) {
	counterparty := strings.TrimSpace(tx.Counterparty)
	if counterparty == "" {
		return nil, nil
	}

	from := tx.Date.AddDate(0, 0, -d.opts.TrailingWindowDays)
	history, err := d.ledger.QueryTransactions(ctx, tx.AccountID, from, tx.Date.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	var sample []float64
	for _, h := range history {
		if h.ID == tx.ID {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(h.Counterparty), counterparty) {
			continue
		}
		amount, _ := h.Amount.Float64()
		sample = append(sample, amount)
	}
	if len(sample) < d.opts.MinSamples {
		return nil, nil
	}

	mean, sigma := meanStdDev(sample)
	if sigma == 0 {
		return nil, nil
	}

	amount, _ := tx.Amount.Float64()
	z := (amount - mean) / sigma

	severity, flagged := severityFor(math.Abs(z))
	if !flagged {
		return nil, nil
	}

	return &models.AnomalyScore{
		TransactionID: tx.ID,
		Severity:      severity,
		Score:         math.Min(math.Abs(z)/4, 1),
		ZScore:        z,
		Explanation: fmt.Sprintf(
			"amount %.2f deviates %.1f standard deviations from %s's historical mean of %.2f (n=%d)",
			amount, math.Abs(z), counterparty, mean, len(sample)),
	}, nil
}

func severityFor(absZ float64) (models.Severity, bool) {
	switch {
	case absZ >= zHigh:
		return models.SeverityHigh, true
	case absZ >= zMedium:
		return models.SeverityMedium, true
	case absZ >= zLow:
		return models.SeverityLow, true
	default:
		return "", false
	}
}

func meanStdDev(values []float64) (mean, sigma float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return mean, math.Sqrt(sumSq / float64(len(values)-1))
}
