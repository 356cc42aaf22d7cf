package income

import (
	"math"

	"spending-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// round rounds x to places decimals, halves away from zero. Infinities and
// NaN are returned unchanged.
func round(x float64, places int32) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// percent converts a rounded percentage to int, saturating at the int32 range.
// NaN becomes 0.
func percent(x float64) int {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt32:
		return math.MaxInt32
	case x <= math.MinInt32:
		return math.MinInt32
	}
	return int(x)
}

// Insight rates spending against income. The band is chosen from the
// unclamped spending percentage; percentages and the remaining amount are
// reported floored at zero. Zero income yields an excellent, all-zero result.
// Totals too large for a finite ratio rate as critical.
func Insight(income, expenses float64) models.FinancialInsight {
	if income == 0 {
		return models.FinancialInsight{Rating: models.RatingExcellent, Color: models.RatingExcellent.Color()}
	}

	ratio := round(expenses/income*100, 0)
	spending := percent(ratio)
	saving := percent(round((income-expenses)/income*100, 0))
	remaining := round(income-expenses, 2)
	if math.IsNaN(remaining) {
		remaining = 0
	}

	var rating models.Rating
	switch {
	case math.IsNaN(ratio) || math.IsInf(ratio, 0):
		rating = models.RatingCritical
	case spending <= 30:
		rating = models.RatingExcellent
	case spending <= 50:
		rating = models.RatingGood
	case spending <= 70:
		rating = models.RatingFair
	case spending <= 90:
		rating = models.RatingPoor
	default:
		rating = models.RatingCritical
	}

	return models.FinancialInsight{
		SpendingPercentage: max(0, spending),
		SavingPercentage:   max(0, saving),
		RemainingAmount:    max(0, remaining),
		Rating:             rating,
		Color:              rating.Color(),
	}
}
