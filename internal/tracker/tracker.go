// Package tracker constructs the expense, income and lending repositories
// over one store and offers the cross-collection operations built on them.
package tracker

import (
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"spending-tracker/internal/expenses"
	"spending-tracker/internal/income"
	"spending-tracker/internal/lending"
	"spending-tracker/internal/models"
	"spending-tracker/internal/storage"
	"spending-tracker/internal/transfer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options configures New. Zero values select defaults.
type Options struct {
	UserID string
	Logger *zap.Logger
	Now    func() time.Time
}

// Tracker owns one instance of each repository.
type Tracker struct {
	Expenses *expenses.Repository
	Income   *income.Repository
	Lending  *lending.Repository

	logger *zap.Logger
	now    func() time.Time
}

// New loads every collection from store.
func New(store storage.Store, opts Options) *Tracker {
	if opts.UserID == "" {
		opts.UserID = models.DefaultUserID
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Tracker{
		Expenses: expenses.New(store,
			expenses.WithLogger(opts.Logger.Named("expenses")),
			expenses.WithUserID(opts.UserID)),
		Income: income.New(store,
			income.WithLogger(opts.Logger.Named("income")),
			income.WithUserID(opts.UserID),
			income.WithClock(opts.Now)),
		Lending: lending.New(store,
			lending.WithLogger(opts.Logger.Named("lending")),
			lending.WithUserID(opts.UserID),
			lending.WithClock(opts.Now)),
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// CurrentMonth returns the tracker clock's month in UTC.
func (t *Tracker) CurrentMonth() string {
	return t.now().UTC().Format("2006-01")
}

// Export returns a combined export of all three collections.
func (t *Tracker) Export() (string, error) {
	return transfer.Export(t.Expenses, t.Income, t.Lending, t.now())
}

// Import restores a combined or legacy expense-only export. It is not atomic
// across collections.
func (t *Tracker) Import(blob string) error {
	return t.logImport(transfer.Import(blob, t.Expenses, t.Income, t.Lending))
}

// ImportReader reads an export file completely and imports it.
func (t *Tracker) ImportReader(r io.Reader) error {
	return t.logImport(transfer.ImportReader(r, t.Expenses, t.Income, t.Lending))
}

func (t *Tracker) logImport(err error) error {
	if err != nil {
		t.logger.Warn("Import failed", zap.Error(err))
		return err
	}
	t.logger.Info("Import completed")
	return nil
}

// DashboardMonths lists the months holding expenses plus the current month,
// latest first.
func (t *Tracker) DashboardMonths() []string {
	months := t.Expenses.GetAllMonths()
	if current := t.CurrentMonth(); !slices.Contains(months, current) {
		months = append(months, current)
	}
	slices.Sort(months)
	slices.Reverse(months)
	return months
}

// MonthTotal sums the expenses of month.
func (t *Tracker) MonthTotal(month string) float64 {
	var total float64
	for _, e := range t.Expenses.GetExpenses(month) {
		total += e.Amount
	}
	return total
}

// CategoryGroup is the expenses of one category within a month.
type CategoryGroup struct {
	Key        string           `json:"key" yaml:"key"`
	Name       string           `json:"name" yaml:"name"`
	Count      int              `json:"count" yaml:"count"`
	Total      float64          `json:"total" yaml:"total"`
	Percentage float64          `json:"percentage" yaml:"percentage"`
	Expenses   []models.Expense `json:"expenses" yaml:"-"`
}

// Summary describes one month of spending against income.
type Summary struct {
	Month   string                  `json:"month" yaml:"month"`
	Total   float64                 `json:"total" yaml:"total"`
	Income  float64                 `json:"income" yaml:"income"`
	Groups  []CategoryGroup         `json:"groups" yaml:"groups"`
	Insight models.FinancialInsight `json:"insight" yaml:"insight"`
}

// round2 rounds x to cents. Infinities and NaN are returned unchanged.
func round2(x float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// MonthSummary groups the expenses of month by case-insensitive category, in
// order of first appearance, and rates the month's spending. A share that has
// no finite percentage is reported as 0.
func (t *Tracker) MonthSummary(month string) Summary {
	s := Summary{Month: month, Groups: []CategoryGroup{}}

	index := map[string]int{}
	for _, e := range t.Expenses.GetExpenses(month) {
		key := strings.ToLower(strings.TrimSpace(e.Category))
		i, ok := index[key]
		if !ok {
			i = len(s.Groups)
			index[key] = i
			s.Groups = append(s.Groups, CategoryGroup{Key: key, Name: expenses.Capitalize(key)})
		}
		g := &s.Groups[i]
		g.Count++
		g.Total += e.Amount
		g.Expenses = append(g.Expenses, e)
		s.Total += e.Amount
	}

	for i := range s.Groups {
		g := &s.Groups[i]
		if s.Total > 0 {
			if p := g.Total / s.Total * 100; !math.IsInf(p, 0) && !math.IsNaN(p) {
				g.Percentage = round2(p)
			}
		}
		g.Total = round2(g.Total)
	}

	s.Income = t.Income.GetMonthlyIncome(month)
	s.Insight = t.Income.CalculateFinancialInsight(month, s.Total)
	s.Total = round2(s.Total)
	return s
}

// SplitShare divides total evenly between count people.
func SplitShare(total float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return total / float64(count)
}

// AddSplitExpense records today's share of a bill split count ways.
// A blank category or description is ignored.
func (t *Tracker) AddSplitExpense(total float64, count int, category, description string) error {
	category = strings.TrimSpace(category)
	description = strings.TrimSpace(description)
	if category == "" || description == "" {
		return nil
	}
	return t.Expenses.AddExpense(models.Expense{
		Date:        t.now().UTC().Format(time.DateOnly),
		Category:    category,
		Description: "Split: " + description,
		Amount:      SplitShare(total, count),
	})
}
