package models

import "time"

// Band is a confidence interval around a point forecast.
type Band struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// ScenarioSet holds the three projected balances for one horizon day.
// Realistic is the unscaled baseline and is always present.
type ScenarioSet struct {
	Optimistic  float64 `json:"optimistic"`
	Realistic   float64 `json:"realistic"`
	Pessimistic float64 `json:"pessimistic"`
}

// Components exposes the three additive contributions behind a forecast day,
// for explainability.
type Components struct {
	Trend    float64 `json:"trend"`
	Seasonal float64 `json:"seasonal"`
	Planned  float64 `json:"planned"`
}

// DailyForecastPoint is one day of the projected balance series.
// Invariant: Confidence95.Lower <= Confidence80.Lower <= Predicted <=
// Confidence80.Upper <= Confidence95.Upper.
type DailyForecastPoint struct {
	Date         time.Time   `json:"date"`
	Predicted    float64     `json:"predicted"`
	Confidence80 Band        `json:"confidence80"`
	Confidence95 Band        `json:"confidence95"`
	Scenarios    *ScenarioSet `json:"scenarios,omitempty"`
	Components   Components  `json:"components"`
}

// ForecastModel describes how a forecast was produced.
type ForecastModel struct {
	HorizonDays   int      `json:"horizonDays"`
	TrainedOnDays int      `json:"trainedOnNDays"`
	AccuracyMAPE  *float64 `json:"accuracy,omitempty"`
	Seasonality   string   `json:"seasonality"`
}

// RiskLevel classifies how close the account is to running out of cash.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskIndicator is derived from the realistic forecast series.
// DaysToNegative is nil when the lower confidence bound never crosses zero
// within the horizon.
type RiskIndicator struct {
	Level                   RiskLevel `json:"level"`
	Score                   float64   `json:"score"`
	DaysToNegative          *int      `json:"daysToNegative"`
	MinimumProjectedBalance float64   `json:"minimumProjectedBalance"`
	Alerts                  []string  `json:"alerts"`
}

// ForecastResponse is the full payload returned by the forecast endpoint.
type ForecastResponse struct {
	AccountID   string               `json:"accountId"`
	AsOf        time.Time            `json:"asOf"`
	BaseBalance float64              `json:"baseBalance"`
	Points      []DailyForecastPoint `json:"points"`
	Model       ForecastModel        `json:"model"`
	Risk        RiskIndicator        `json:"risk"`
}

// Severity grades an anomaly score.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyScore flags one committed transaction as unusual against the
// counterparty's historical amount distribution.
type AnomalyScore struct {
	TransactionID string   `json:"transactionId"`
	Severity      Severity `json:"severity"`
	Score         float64  `json:"score"`
	ZScore        float64  `json:"zScore"`
	Explanation   string   `json:"explanation"`
}
