// Package forecast projects future account balances from committed ledger
// history. Daily net flow is decomposed into a linear trend, a day-of-week
// seasonality factor and deterministic planned items; confidence bands widen
// with the square root of the horizon day.
package forecast

import (
	"context"
	"math"
	"time"

	"github.com/salmenktata/quelyosSuite-sub025/internal/financeerrors"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Confidence z-values for the 80% and 95% bands.
const (
	z80 = 1.28
	z95 = 1.96
)

// seasonality factor bounds; short or lopsided histories otherwise produce
// degenerate multipliers.
const (
	seasonalFactorMin = 0.25
	seasonalFactorMax = 4.0
)

// Options tune the engine.
type Options struct {
	// MinimumHistoryDays is the least committed history required before a
	// forecast is produced at all.
	MinimumHistoryDays int
	// SeasonalityMinDays disables the day-of-week factors below this much
	// history.
	SeasonalityMinDays int
	// ScenarioPct is the symmetric optimistic/pessimistic adjustment
	// applied to the unplanned component.
	ScenarioPct float64
	// RiskBuffer is the minimum projected balance below which risk is at
	// least medium.
	RiskBuffer float64
	// BacktestMinDays enables MAPE backtesting at or above this much
	// history.
	BacktestMinDays int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MinimumHistoryDays: 7,
		SeasonalityMinDays: 14,
		ScenarioPct:        0.15,
		RiskBuffer:         1000,
		BacktestMinDays:    28,
	}
}

// Engine computes balance forecasts. Forecasts are pure functions of
// committed history plus planned items, so results are cached behind a short
// TTL and invalidated on commit.
type Engine struct {
	ledger ledger.Ledger
	opts   Options
	logger logging.Logger
	cache  *Cache
	now    func() time.Time
}

// NewEngine creates a forecast engine with the given cache TTL.
func NewEngine(l ledger.Ledger, opts Options, cacheTTL time.Duration, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Engine{
		ledger: l,
		opts:   opts,
		logger: logger,
		cache:  NewCache(cacheTTL),
		now:    time.Now,
	}
}

// Invalidate drops cached forecasts for an account. Called whenever new
// transactions are committed.
func (e *Engine) Invalidate(accountID string) {
	e.cache.Invalidate(accountID)
}

// Forecast projects horizonDays of balances from the last historyDays of
// committed transactions. Insufficient history yields a typed
// ForecastUnavailable error rather than a degenerate forecast.
func (e *Engine) Forecast(ctx context.Context, accountID string, historyDays, horizonDays int) (*models.ForecastResponse, error) {
	asOf := e.now().Truncate(24 * time.Hour)
	key := cacheKey(accountID, historyDays, horizonDays, asOf)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	resp, err := e.compute(ctx, accountID, historyDays, horizonDays, asOf)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, resp)
	return resp, nil
}

func (e *Engine) compute(ctx context.Context, accountID string, historyDays, horizonDays int, asOf time.Time) (*models.ForecastResponse, error) {
	from := asOf.AddDate(0, 0, -(historyDays - 1))
	txs, err := e.ledger.QueryTransactions(ctx, accountID, from, asOf)
	if err != nil {
		return nil, err
	}

	series, trainedDays := dailyNetSeries(txs, asOf, historyDays)
	if trainedDays < e.opts.MinimumHistoryDays {
		return nil, &financeerrors.ForecastUnavailable{
			AccountID:   accountID,
			HistoryDays: trainedDays,
			MinimumDays: e.opts.MinimumHistoryDays,
		}
	}

	balance, err := e.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	base, _ := balance.Float64()

	model := fitModel(series, asOf, e.opts.SeasonalityMinDays)
	planned, err := e.plannedByDay(ctx, accountID, asOf, horizonDays)
	if err != nil {
		return nil, err
	}

	points := e.project(model, base, asOf, horizonDays, planned)
	risk := assessRisk(points, e.opts.RiskBuffer)

	meta := models.ForecastModel{
		HorizonDays:   horizonDays,
		TrainedOnDays: trainedDays,
		Seasonality:   model.seasonalityName(),
	}
	if trainedDays >= e.opts.BacktestMinDays {
		if mape, ok := backtestMAPE(series, asOf, e.opts.SeasonalityMinDays); ok {
			meta.AccuracyMAPE = &mape
		}
	}

	e.logger.Debug("Forecast computed",
		logging.F(logging.FieldAccountID, accountID),
		logging.F(logging.FieldHorizon, horizonDays),
		logging.F("trained_days", trainedDays))

	return &models.ForecastResponse{
		AccountID:   accountID,
		AsOf:        asOf,
		BaseBalance: base,
		Points:      points,
		Model:       meta,
		Risk:        risk,
	}, nil
}

// project builds the daily series. For horizon day t (1-based), the
// unplanned flow is the trend prediction scaled by the weekday factor; the
// planned flow is added untouched and never widens the bands.
func (e *Engine) project(m fittedModel, base float64, asOf time.Time, horizonDays int, planned map[int]float64) []models.DailyForecastPoint {
	points := make([]models.DailyForecastPoint, 0, horizonDays)
	var cumUnplanned, cumPlanned float64

	for t := 1; t <= horizonDays; t++ {
		date := asOf.AddDate(0, 0, t)
		trendFlow := m.trendAt(t)
		unplanned := trendFlow * m.factorFor(date.Weekday())
		cumUnplanned += unplanned
		cumPlanned += planned[t]

		predicted := base + cumUnplanned + cumPlanned
		spread80 := m.sigma * math.Sqrt(float64(t)) * z80
		spread95 := m.sigma * math.Sqrt(float64(t)) * z95
		scenarioSpread := e.opts.ScenarioPct * math.Abs(cumUnplanned)

		points = append(points, models.DailyForecastPoint{
			Date:      date,
			Predicted: predicted,
			Confidence80: models.Band{
				Upper: predicted + spread80,
				Lower: predicted - spread80,
			},
			Confidence95: models.Band{
				Upper: predicted + spread95,
				Lower: predicted - spread95,
			},
			Scenarios: &models.ScenarioSet{
				Optimistic:  predicted + scenarioSpread,
				Realistic:   predicted,
				Pessimistic: predicted - scenarioSpread,
			},
			Components: models.Components{
				Trend:    trendFlow,
				Seasonal: unplanned - trendFlow,
				Planned:  planned[t],
			},
		})
	}
	return points
}

// plannedItems collects open invoices (credits) and bills (debits, stored
// negated) as scheduled cash movements tagged with their source document.
func (e *Engine) plannedItems(ctx context.Context, accountID string) ([]models.PlannedItem, error) {
	invoices, err := e.ledger.QueryOpenInvoices(ctx, accountID)
	if err != nil {
		return nil, err
	}
	bills, err := e.ledger.QueryOpenBills(ctx, accountID)
	if err != nil {
		return nil, err
	}

	items := make([]models.PlannedItem, 0, len(invoices)+len(bills))
	for _, inv := range invoices {
		items = append(items, models.PlannedItem{Date: inv.DueDate, Amount: inv.AmountDue, Source: inv.ID})
	}
	for _, bill := range bills {
		items = append(items, models.PlannedItem{Date: bill.DueDate, Amount: bill.AmountDue.Neg(), Source: bill.ID})
	}
	return items, nil
}

// plannedByDay folds the account's planned items due within the horizon into
// per-day deterministic flows, keyed by 1-based horizon day.
func (e *Engine) plannedByDay(ctx context.Context, accountID string, asOf time.Time, horizonDays int) (map[int]float64, error) {
	items, err := e.plannedItems(ctx, accountID)
	if err != nil {
		return nil, err
	}

	planned := map[int]float64{}
	for _, item := range items {
		if day, ok := horizonDay(asOf, item.Date, horizonDays); ok {
			amount, _ := item.Amount.Float64()
			planned[day] += amount
		}
	}
	return planned, nil
}

func horizonDay(asOf, due time.Time, horizonDays int) (int, bool) {
	day := int(due.Truncate(24*time.Hour).Sub(asOf).Hours() / 24)
	if day < 1 || day > horizonDays {
		return 0, false
	}
	return day, true
}

// dailyNetSeries aggregates transactions into one net flow per day ending at
// asOf. The returned trainedDays is the span from the earliest transaction
// to asOf, capped at historyDays; the series is trimmed to it so empty lead
// days do not dilute the fit.
func dailyNetSeries(txs []models.NormalizedTransaction, asOf time.Time, historyDays int) ([]float64, int) {
	if len(txs) == 0 {
		return nil, 0
	}

	full := make([]float64, historyDays)
	earliest := historyDays
	for _, tx := range txs {
		offset := historyDays - 1 - int(asOf.Sub(tx.Date.Truncate(24*time.Hour)).Hours()/24)
		if offset < 0 || offset >= historyDays {
			continue
		}
		amount, _ := tx.Amount.Float64()
		full[offset] += amount
		if offset < earliest {
			earliest = offset
		}
	}
	if earliest >= historyDays {
		return nil, 0
	}
	return full[earliest:], historyDays - earliest
}
