package models

// MonthlyIncome is the income recorded for one month.
type MonthlyIncome struct {
	Month  string  `json:"month"` // YYYY-MM
	Amount float64 `json:"amount"`
}

// IncomeData is the persisted income collection.
type IncomeData struct {
	UserID string                    `json:"userId"`
	Months map[string]*MonthlyIncome `json:"months"`
}

// NewIncomeData returns an empty collection owned by userID.
func NewIncomeData(userID string) IncomeData {
	return IncomeData{UserID: userID, Months: map[string]*MonthlyIncome{}}
}

// Clone returns a deep copy of d.
func (d IncomeData) Clone() IncomeData {
	out := IncomeData{UserID: d.UserID, Months: make(map[string]*MonthlyIncome, len(d.Months))}
	for month, m := range d.Months {
		if m == nil {
			continue
		}
		c := *m
		out.Months[month] = &c
	}
	return out
}

// Rating is the qualitative band of a FinancialInsight.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
	RatingCritical  Rating = "critical"
)

// Color returns the display color associated with the rating.
func (r Rating) Color() string {
	switch r {
	case RatingExcellent:
		return "#28a745"
	case RatingGood:
		return "#ffc107"
	case RatingFair:
		return "#fd7e14"
	case RatingPoor:
		return "#dc3545"
	case RatingCritical:
		return "#6f42c1"
	}
	return ""
}

// FinancialInsight summarises how a month's spending compares to its income.
type FinancialInsight struct {
	SpendingPercentage int     `json:"spendingPercentage"`
	SavingPercentage   int     `json:"savingPercentage"`
	RemainingAmount    float64 `json:"remainingAmount"`
	Rating             Rating  `json:"rating"`
	Color              string  `json:"color"`
}
