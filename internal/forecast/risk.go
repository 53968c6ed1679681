package forecast

import (
	"fmt"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Risk classification thresholds, in horizon days until the lower confidence
// bound crosses zero.
const (
	criticalWithinDays = 7
	highWithinDays     = 30
)

// assessRisk derives the risk indicator from a realistic forecast series.
// The lower-80 bound, not the point estimate, decides daysToNegative: the
// classification is deliberately conservative.
func assessRisk(points []models.DailyForecastPoint, buffer float64) models.RiskIndicator {
	risk := models.RiskIndicator{
		Level:  models.RiskLow,
		Alerts: []string{},
	}
	if len(points) == 0 {
		return risk
	}

	minBalance := points[0].Predicted
	for i, p := range points {
		if p.Predicted < minBalance {
			minBalance = p.Predicted
		}
		if risk.DaysToNegative == nil && p.Confidence80.Lower < 0 {
			day := i + 1
			risk.DaysToNegative = &day
		}
	}
	risk.MinimumProjectedBalance = minBalance

	switch {
	case risk.DaysToNegative != nil && *risk.DaysToNegative <= criticalWithinDays:
		risk.Level = models.RiskCritical
		risk.Score = 0.95
		risk.Alerts = append(risk.Alerts,
			fmt.Sprintf("projected balance may turn negative within %d days", *risk.DaysToNegative))
	case risk.DaysToNegative != nil && *risk.DaysToNegative <= highWithinDays:
		risk.Level = models.RiskHigh
		risk.Score = 0.7
		risk.Alerts = append(risk.Alerts,
			fmt.Sprintf("projected balance may turn negative within %d days", *risk.DaysToNegative))
	case minBalance < buffer:
		risk.Level = models.RiskMedium
		risk.Score = 0.4
		risk.Alerts = append(risk.Alerts,
			fmt.Sprintf("minimum projected balance %.2f falls below the %.2f buffer", minBalance, buffer))
	default:
		risk.Score = 0.1
	}
	return risk
}
