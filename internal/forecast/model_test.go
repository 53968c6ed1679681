package forecast

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

type testFlow struct {
	daysAgo int
	amount  float64
}

func flowTxs(asOf time.Time, flows []testFlow) []models.NormalizedTransaction {
	txs := make([]models.NormalizedTransaction, 0, len(flows))
	for i, f := range flows {
		txs = append(txs, models.NormalizedTransaction{
			ID:        fmt.Sprintf("flow-%d", i),
			Date:      asOf.AddDate(0, 0, -f.daysAgo),
			Amount:    decimal.NewFromFloat(f.amount),
			DedupHash: fmt.Sprintf("flow-hash-%d", i),
		})
	}
	return txs
}

func TestLinearRegression(t *testing.T) {
	tests := []struct {
		name          string
		series        []float64
		wantSlope     float64
		wantIntercept float64
	}{
		{name: "Empty", series: nil, wantSlope: 0, wantIntercept: 0},
		{name: "Single point", series: []float64{5}, wantSlope: 0, wantIntercept: 5},
		{name: "Constant", series: []float64{2, 2, 2}, wantSlope: 0, wantIntercept: 2},
		{name: "Increasing", series: []float64{1, 3, 5}, wantSlope: 2, wantIntercept: 1},
		{name: "Decreasing", series: []float64{10, 8, 6, 4}, wantSlope: -2, wantIntercept: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slope, intercept := linearRegression(tt.series)
			assert.InDelta(t, tt.wantSlope, slope, 1e-9)
			assert.InDelta(t, tt.wantIntercept, intercept, 1e-9)
		})
	}
}

func TestFitWeekdayFactors(t *testing.T) {
	// 14 days ending Sunday 2024-03-03; index 0 falls on Monday 2024-02-19.
	asOf := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("Elevated weekday gets a proportional factor", func(t *testing.T) {
		series := make([]float64, 14)
		for i := range series {
			series[i] = 100
		}
		series[0], series[7] = 200, 200 // both Mondays

		factors := [7]float64{1, 1, 1, 1, 1, 1, 1}
		ok := fitWeekdayFactors(series, asOf, &factors)
		require.True(t, ok)

		// Overall mean is 1600/14; Mondays average 200, the rest 100.
		assert.InDelta(t, 1.75, factors[time.Monday], 1e-9)
		assert.InDelta(t, 0.875, factors[time.Tuesday], 1e-9)
		assert.InDelta(t, 0.875, factors[time.Sunday], 1e-9)
	})

	t.Run("Extreme ratios are capped", func(t *testing.T) {
		series := make([]float64, 14)
		for i := range series {
			series[i] = 100
		}
		series[0], series[7] = 1000, 1000

		factors := [7]float64{1, 1, 1, 1, 1, 1, 1}
		ok := fitWeekdayFactors(series, asOf, &factors)
		require.True(t, ok)
		assert.InDelta(t, seasonalFactorMax, factors[time.Monday], 1e-9)
	})

	t.Run("Near-zero overall mean disables seasonality", func(t *testing.T) {
		series := make([]float64, 14)
		for i := range series {
			if i%2 == 0 {
				series[i] = 100
			} else {
				series[i] = -100
			}
		}

		factors := [7]float64{1, 1, 1, 1, 1, 1, 1}
		ok := fitWeekdayFactors(series, asOf, &factors)
		assert.False(t, ok)
		for d, f := range factors {
			assert.InDelta(t, 1, f, 1e-9, "weekday %d", d)
		}
	})
}

func TestFitModelSigma(t *testing.T) {
	asOf := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("Perfect linear fit has zero residual", func(t *testing.T) {
		m := fitModel([]float64{0, 10, 20, 30}, asOf, 99)
		assert.InDelta(t, 10, m.slope, 1e-9)
		assert.InDelta(t, 0, m.sigma, 1e-9)
	})

	t.Run("Single point has zero residual", func(t *testing.T) {
		m := fitModel([]float64{42}, asOf, 99)
		assert.InDelta(t, 0, m.sigma, 1e-9)
	})

	t.Run("Scattered series", func(t *testing.T) {
		// Flat trend at 10/3; residuals -10/3, 20/3, -10/3 give
		// sqrt(600/9/2) ~ 5.7735.
		m := fitModel([]float64{0, 10, 0}, asOf, 99)
		assert.InDelta(t, 0, m.slope, 1e-9)
		assert.InDelta(t, 5.7735, m.sigma, 1e-3)
	})
}

func TestTrendAt(t *testing.T) {
	m := fittedModel{slope: 2, intercept: 10, n: 5}
	// Horizon day 1 continues from series index n-1.
	assert.InDelta(t, 10+2*5, m.trendAt(1), 1e-9)
	assert.InDelta(t, 10+2*7, m.trendAt(3), 1e-9)
}

func TestBacktestMAPE(t *testing.T) {
	asOf := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("Perfect predictions score zero", func(t *testing.T) {
		series := []float64{100, 100, 100, 100, 100, 100, 100, 100}
		mape, ok := backtestMAPE(series, asOf, 99)
		require.True(t, ok)
		assert.InDelta(t, 0, mape, 1e-9)
	})

	t.Run("Level shift in the holdout", func(t *testing.T) {
		// Trained on a flat 100, every holdout day of 200 misses by 50%.
		series := []float64{100, 100, 100, 100, 200, 200, 200, 200}
		mape, ok := backtestMAPE(series, asOf, 99)
		require.True(t, ok)
		assert.InDelta(t, 50, mape, 1e-9)
	})

	t.Run("Too short to split", func(t *testing.T) {
		_, ok := backtestMAPE([]float64{100, 100, 100}, asOf, 99)
		assert.False(t, ok)
	})

	t.Run("Zero-flow holdout is unscorable", func(t *testing.T) {
		series := []float64{100, 100, 100, 100, 0, 0, 0, 0}
		_, ok := backtestMAPE(series, asOf, 99)
		assert.False(t, ok)
	})
}

func TestDailyNetSeries(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Aggregates and trims leading empty days", func(t *testing.T) {
		txs := []testFlow{
			{daysAgo: 0, amount: 100},
			{daysAgo: 0, amount: 50},
			{daysAgo: 2, amount: -30},
		}
		series, trained := dailyNetSeries(flowTxs(asOf, txs), asOf, 10)
		assert.Equal(t, 3, trained)
		require.Len(t, series, 3)
		assert.InDelta(t, -30, series[0], 1e-9)
		assert.InDelta(t, 0, series[1], 1e-9)
		assert.InDelta(t, 150, series[2], 1e-9)
	})

	t.Run("No transactions", func(t *testing.T) {
		series, trained := dailyNetSeries(nil, asOf, 10)
		assert.Nil(t, series)
		assert.Zero(t, trained)
	})

	t.Run("Transactions outside the window are ignored", func(t *testing.T) {
		series, trained := dailyNetSeries(flowTxs(asOf, []testFlow{{daysAgo: 15, amount: 500}}), asOf, 10)
		assert.Nil(t, series)
		assert.Zero(t, trained)
	})
}
