package models

import (
	"slices"
	"strings"
)

// DefaultUserID is the owner recorded on freshly created collections.
const DefaultUserID = "default"

// Expense represents a single spending record.
//
// Expenses carry no identifier; they are located by MatchesExpense.
type Expense struct {
	Date        string   `json:"date"` // YYYY-MM-DD
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	PaymentMode string   `json:"paymentMode,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Month returns the YYYY-MM bucket the expense belongs to.
func (e Expense) Month() string {
	return MonthOf(e.Date)
}

// Clone returns a copy of e that shares no memory with it.
func (e Expense) Clone() Expense {
	e.Tags = slices.Clone(e.Tags)
	return e
}

// MatchesExpense reports whether a and b are the same record: equal date,
// description and amount, and the same category ignoring case.
func MatchesExpense(a, b Expense) bool {
	return a.Date == b.Date &&
		strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(b.Category)) &&
		a.Description == b.Description &&
		a.Amount == b.Amount
}

// MonthlyExpense holds the expenses of one month in insertion order.
type MonthlyExpense struct {
	Expenses []Expense `json:"expenses"`
}

// ExpenseData is the persisted expense collection.
type ExpenseData struct {
	UserID string                     `json:"userId"`
	Months map[string]*MonthlyExpense `json:"months"`
}

// NewExpenseData returns an empty collection owned by userID.
func NewExpenseData(userID string) ExpenseData {
	return ExpenseData{UserID: userID, Months: map[string]*MonthlyExpense{}}
}

// Clone returns a deep copy of d.
func (d ExpenseData) Clone() ExpenseData {
	out := ExpenseData{UserID: d.UserID, Months: make(map[string]*MonthlyExpense, len(d.Months))}
	for month, m := range d.Months {
		if m == nil {
			continue
		}
		expenses := make([]Expense, len(m.Expenses))
		for i, e := range m.Expenses {
			expenses[i] = e.Clone()
		}
		out.Months[month] = &MonthlyExpense{Expenses: expenses}
	}
	return out
}

// MonthOf returns the YYYY-MM prefix of an ISO date or timestamp.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
