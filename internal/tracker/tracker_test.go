package tracker

import (
	"math"
	"strings"
	"testing"
	"time"

	"spending-tracker/internal/models"
	"spending-tracker/internal/storage"
	"spending-tracker/internal/transfer"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.July, 20, 12, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, store storage.Store) *Tracker {
	t.Helper()
	return New(store, Options{Now: func() time.Time { return testNow }})
}

func seed(t *testing.T, tr *Tracker) {
	t.Helper()
	for _, e := range []models.Expense{
		{Date: "2024-07-01", Category: "food", Description: "Lunch", Amount: 150},
		{Date: "2024-07-02", Category: "travel", Description: "Bus", Amount: 50},
		{Date: "2024-07-03", Category: "Food", Description: "Dinner", Amount: 300},
		{Date: "2024-06-10", Category: "rent", Description: "Flat", Amount: 900},
	} {
		require.NoError(t, tr.Expenses.AddExpense(e))
	}
	require.NoError(t, tr.Income.SetMonthlyIncome("2024-07", 1000))
	_, err := tr.Lending.AddLending(models.Lending{Date: "2024-07-05", PersonName: "Asha", Amount: 200, Type: models.Lent})
	require.NoError(t, err)
}

func TestCombinedExportImportRoundTrip(t *testing.T) {
	src := newTracker(t, storage.NewMemory())
	seed(t, src)

	blob, err := src.Export()
	require.NoError(t, err)
	assert.True(t, transfer.IsEnvelope(blob))
	assert.Contains(t, blob, `"exportDate": "2024-07-20T12:00:00.000Z"`)

	dst := newTracker(t, storage.NewMemory())
	require.NoError(t, dst.Import(blob))

	if diff := cmp.Diff(src.Expenses.Data(), dst.Expenses.Data()); diff != "" {
		t.Errorf("expenses mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, src.Income.Data(), dst.Income.Data())
	assert.Equal(t, src.Lending.Data(), dst.Lending.Data())
	assert.ElementsMatch(t, src.Expenses.GetCategories(), dst.Expenses.GetCategories())
}

func TestImportLegacyExpenseBlob(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())
	require.NoError(t, tr.Income.SetMonthlyIncome("2024-07", 1000))

	legacy := `{"userId":"default","months":{"2024-05":{"expenses":[{"date":"2024-05-02","category":"Gifts","description":"Book","amount":12}]}}}`
	require.NoError(t, tr.ImportReader(strings.NewReader(legacy)))

	assert.Equal(t, []string{"2024-05"}, tr.Expenses.GetAllMonths())
	assert.Equal(t, 1000.0, tr.Income.GetMonthlyIncome("2024-07"), "legacy import leaves income alone")
}

func TestImportIsNotAtomicAcrossCollections(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())
	seed(t, tr)

	blob := `{"expenses":{"userId":"default","months":{}},"income":{"userId":"default"},"lending":{"userId":"default","lendings":[]},"exportDate":"2024-01-01T00:00:00.000Z","version":"2.0"}`
	err := tr.Import(blob)
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrInvalidImport)

	assert.Empty(t, tr.Expenses.GetAllMonths(), "expenses were already replaced")
	assert.Equal(t, 1000.0, tr.Income.GetMonthlyIncome("2024-07"), "income import failed")
	assert.Len(t, tr.Lending.GetAllLendings(), 1, "lending import never ran")
}

func TestDashboardMonthsIncludesCurrentMonth(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())
	assert.Equal(t, []string{"2024-07"}, tr.DashboardMonths())

	require.NoError(t, tr.Expenses.AddExpense(models.Expense{Date: "2024-09-01", Category: "food", Description: "x", Amount: 1}))
	require.NoError(t, tr.Expenses.AddExpense(models.Expense{Date: "2024-03-01", Category: "food", Description: "y", Amount: 1}))
	assert.Equal(t, []string{"2024-09", "2024-07", "2024-03"}, tr.DashboardMonths())
}

func TestMonthSummary(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())
	seed(t, tr)

	s := tr.MonthSummary("2024-07")
	assert.Equal(t, "2024-07", s.Month)
	assert.Equal(t, 500.0, s.Total)
	assert.Equal(t, 1000.0, s.Income)
	require.Len(t, s.Groups, 2)

	food := s.Groups[0]
	assert.Equal(t, "food", food.Key)
	assert.Equal(t, "Food", food.Name)
	assert.Equal(t, 2, food.Count)
	assert.Equal(t, 450.0, food.Total)
	assert.Len(t, food.Expenses, 2)

	travel := s.Groups[1]
	assert.Equal(t, "Travel", travel.Name)
	assert.Equal(t, 10.0, travel.Percentage)
	assert.Equal(t, 90.0, food.Percentage)

	assert.Equal(t, 50, s.Insight.SpendingPercentage)
	assert.Equal(t, models.RatingGood, s.Insight.Rating)
	assert.Equal(t, 500.0, tr.MonthTotal("2024-07"))
}

func TestMonthSummaryEmptyMonth(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())

	s := tr.MonthSummary("2020-01")
	assert.Zero(t, s.Total)
	assert.NotNil(t, s.Groups)
	assert.Empty(t, s.Groups)
	assert.Equal(t, models.RatingExcellent, s.Insight.Rating)
}

func TestMonthSummaryWithOverflowingTotals(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())
	require.NoError(t, tr.Income.SetMonthlyIncome("2024-01", 1))
	for _, d := range []string{"Rocket", "Moon base"} {
		require.NoError(t, tr.Expenses.AddExpense(models.Expense{Date: "2024-01-05", Category: "space", Description: d, Amount: 1e308}))
	}

	var s Summary
	require.NotPanics(t, func() { s = tr.MonthSummary("2024-01") })
	assert.True(t, math.IsInf(s.Total, 1))
	require.Len(t, s.Groups, 1)
	assert.Zero(t, s.Groups[0].Percentage)
	assert.Equal(t, models.RatingCritical, s.Insight.Rating)
	assert.Zero(t, s.Insight.RemainingAmount)
}

func TestInsightWithSingleHugeExpense(t *testing.T) {
	tr := newTracker(t, storage.NewMemory())
	require.NoError(t, tr.Income.SetMonthlyIncome("2024-01", 1))
	require.NoError(t, tr.Expenses.AddExpense(models.Expense{Date: "2024-01-05", Category: "space", Description: "Rocket", Amount: 1e308}))

	var s Summary
	require.NotPanics(t, func() { s = tr.MonthSummary("2024-01") })
	assert.Equal(t, 1e308, s.Total)
	assert.Equal(t, 100.0, s.Groups[0].Percentage)
	assert.Equal(t, models.RatingCritical, s.Insight.Rating)
}

func TestSplitExpense(t *testing.T) {
	assert.Equal(t, 25.0, SplitShare(100, 4))
	assert.Zero(t, SplitShare(100, 0))

	tr := newTracker(t, storage.NewMemory())
	require.NoError(t, tr.AddSplitExpense(90, 3, " dining ", " Pizza night "))
	require.NoError(t, tr.AddSplitExpense(90, 3, "", "ignored"))
	require.NoError(t, tr.AddSplitExpense(90, 3, "dining", "  "))

	got := tr.Expenses.GetExpenses("2024-07")
	require.Len(t, got, 1)
	assert.Equal(t, models.Expense{Date: "2024-07-20", Category: "Dining", Description: "Split: Pizza night", Amount: 30}, got[0])
}

func TestTrackerOverSQLite(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	tr := newTracker(t, db)
	seed(t, tr)

	reloaded := newTracker(t, db)
	assert.Equal(t, tr.Expenses.Data(), reloaded.Expenses.Data())
	assert.Equal(t, tr.Expenses.GetCategories(), reloaded.Expenses.GetCategories())
	assert.Equal(t, tr.Income.Data(), reloaded.Income.Data())
	assert.Equal(t, tr.Lending.Data(), reloaded.Lending.Data())

	keys, err := db.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"spending-tracker",
		"spending-tracker-categories",
		"spending-tracker-income",
		"spending-tracker-lending",
	}, keys)
}
