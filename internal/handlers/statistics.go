package handlers

import (
	"net/http"
	"time"

	"spending-tracker/internal/models"
	"spending-tracker/internal/tracker"
)

// StatsViewModel is the monthly statistics response.
type StatsViewModel struct {
	tracker.Summary
	MonthName      string `json:"monthName"`
	PrevMonth      string `json:"prevMonth"`
	NextMonth      string `json:"nextMonth"`
	IsCurrentMonth bool   `json:"isCurrentMonth"`
}

// Statistics returns the category breakdown and financial insight of a month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	start, err := time.Parse("2006-01", month)
	if err != nil {
		badRequest(w, "month must be YYYY-MM")
		return
	}

	summary := h.tracker.MonthSummary(month)
	if !finite(summary.Total) {
		unprocessable(w, errOverflow)
		return
	}
	writeJSON(w, http.StatusOK, StatsViewModel{
		Summary:        summary,
		MonthName:      start.Format("January 2006"),
		PrevMonth:      start.AddDate(0, -1, 0).Format("2006-01"),
		NextMonth:      start.AddDate(0, 1, 0).Format("2006-01"),
		IsCurrentMonth: month == h.tracker.CurrentMonth(),
	})
}

// Insight rates a month's spending against its income.
func (h *Handlers) Insight(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if !validMonth(month) {
		badRequest(w, "month must be YYYY-MM")
		return
	}
	total := h.tracker.MonthTotal(month)
	if !finite(total) {
		unprocessable(w, errOverflow)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Month   string                  `json:"month"`
		Income  float64                 `json:"income"`
		Total   float64                 `json:"total"`
		Insight models.FinancialInsight `json:"insight"`
	}{
		Month:   month,
		Income:  h.tracker.Income.GetMonthlyIncome(month),
		Total:   total,
		Insight: h.tracker.Income.CalculateFinancialInsight(month, total),
	})
}
