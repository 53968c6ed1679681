package forecast

import (
	"math"
	"time"
)

// fittedModel is the deterministic decomposition fitted on a daily net-flow
// series: ordinary-least-squares trend, day-of-week multiplicative factors
// and the residual standard deviation of the fit.
type fittedModel struct {
	slope     float64
	intercept float64
	n         int
	factors   [7]float64
	seasonal  bool
	sigma     float64
}

// fitModel fits the decomposition. Series index 0 is the oldest day and the
// last index is asOf. Histories shorter than seasonalityMinDays get flat
// factors of 1.
func fitModel(series []float64, asOf time.Time, seasonalityMinDays int) fittedModel {
	m := fittedModel{n: len(series)}
	m.slope, m.intercept = linearRegression(series)

	for i := range m.factors {
		m.factors[i] = 1
	}
	if len(series) >= seasonalityMinDays {
		m.seasonal = fitWeekdayFactors(series, asOf, &m.factors)
	}

	m.sigma = residualStdDev(series, m, asOf)
	return m
}

// trendAt returns the trend-predicted net flow for horizon day t (1-based).
func (m fittedModel) trendAt(t int) float64 {
	return m.intercept + m.slope*float64(m.n-1+t)
}

// factorFor returns the seasonality multiplier for a weekday.
func (m fittedModel) factorFor(day time.Weekday) float64 {
	return m.factors[int(day)]
}

func (m fittedModel) seasonalityName() string {
	if m.seasonal {
		return "day-of-week"
	}
	return "none"
}

// linearRegression fits y = intercept + slope*x over x = 0..n-1.
func linearRegression(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, y[0]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// fitWeekdayFactors computes each weekday's average net flow relative to the
// overall average, capped to sane bounds. It reports false (flat factors)
// when the overall average is too close to zero for a ratio to mean
// anything.
func fitWeekdayFactors(series []float64, asOf time.Time, factors *[7]float64) bool {
	var total float64
	var sums [7]float64
	var counts [7]int

	for i, v := range series {
		day := dayAt(asOf, len(series), i).Weekday()
		sums[day] += v
		counts[day]++
		total += v
	}

	overall := total / float64(len(series))
	if math.Abs(overall) < 1e-9 {
		return false
	}

	for d := range factors {
		if counts[d] == 0 {
			factors[d] = 1
			continue
		}
		f := (sums[d] / float64(counts[d])) / overall
		factors[d] = math.Min(math.Max(f, seasonalFactorMin), seasonalFactorMax)
	}
	return true
}

// residualStdDev is the standard deviation of the series against the fitted
// trend+seasonality values.
func residualStdDev(series []float64, m fittedModel, asOf time.Time) float64 {
	if len(series) < 2 {
		return 0
	}
	var sumSq float64
	for i, v := range series {
		fitted := (m.intercept + m.slope*float64(i)) * m.factors[int(dayAt(asOf, len(series), i).Weekday())]
		diff := v - fitted
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(series)-1))
}

// backtestMAPE trains the model on the first half of the series and scores
// the mean absolute percentage error of its daily predictions over the
// second half. Zero-flow days carry no percentage and are skipped; ok is
// false when nothing scorable remains.
func backtestMAPE(series []float64, asOf time.Time, seasonalityMinDays int) (float64, bool) {
	half := len(series) / 2
	if half < 2 {
		return 0, false
	}
	train := series[:half]
	holdoutAsOf := dayAt(asOf, len(series), half-1)
	m := fitModel(train, holdoutAsOf, seasonalityMinDays)

	var sum float64
	var count int
	for t := 1; half-1+t < len(series); t++ {
		actual := series[half-1+t]
		if math.Abs(actual) < 1e-9 {
			continue
		}
		predicted := m.trendAt(t) * m.factorFor(holdoutAsOf.AddDate(0, 0, t).Weekday())
		sum += math.Abs((actual - predicted) / actual)
		count++
	}
	if count == 0 {
		return 0, false
	}
	return 100 * sum / float64(count), true
}

// dayAt maps a series index to its calendar date given that the last index
// falls on asOf.
func dayAt(asOf time.Time, n, i int) time.Time {
	return asOf.AddDate(0, 0, i-(n-1))
}
