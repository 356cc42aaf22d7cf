package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"spending-tracker/internal/models"
	"spending-tracker/internal/tracker"
	"spending-tracker/internal/transfer"

	"go.uber.org/zap"
)

// MaxImportSize bounds the body accepted by the import endpoint (10 MiB).
const MaxImportSize = 10 << 20

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(t *tracker.Tracker, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{tracker: t, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// fail maps repository errors to responses. Rejected imports are the caller's
// fault; anything else is a storage problem.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, transfer.ErrInvalidImport) {
		badRequest(w, err.Error())
		return
	}
	h.logger.Error("Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

// errOverflow is reported when a month's totals are too large to represent.
var errOverflow = errors.New("month total exceeds the representable range")

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return false
		}
	}
	return true
}

func unprocessable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func validMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}

func validateExpense(e models.Expense) error {
	if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if strings.TrimSpace(e.Category) == "" {
		return errors.New("category is required")
	}
	if strings.TrimSpace(e.Description) == "" {
		return errors.New("description is required")
	}
	if e.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// Health reports that the server is up.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Months lists the months to offer for selection, latest first.
func (h *Handlers) Months(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"months":  h.tracker.DashboardMonths(),
		"current": h.tracker.CurrentMonth(),
	})
}

// ListViewModel is the response of ListExpenses.
type ListViewModel struct {
	Month    string           `json:"month"`
	Total    float64          `json:"total"`
	Expenses []models.Expense `json:"expenses"`
}

// ListExpenses returns the expenses of a month.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, ListViewModel{
		Month:    month,
		Total:    total,
		Expenses: h.tracker.Expenses.GetExpenses(month),
	})
}

// CreateExpense handles the creation of a new expense.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var e models.Expense
	if err := decode(r, &e); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validateExpense(e); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.tracker.Expenses.AddExpense(e); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.tracker.Expenses.GetExpenses(e.Month()))
}

// UpdateRequest carries an edited expense and the record it replaces.
type UpdateRequest struct {
	Updated  models.Expense  `json:"updated"`
	Original *models.Expense `json:"original,omitempty"`
}

// UpdateExpense handles the update of an existing expense. Without an
// original record it falls back to the in-place update.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validateExpense(req.Updated); err != nil {
		badRequest(w, err.Error())
		return
	}

	var err error
	if req.Original != nil {
		err = h.tracker.Expenses.UpdateExpense(req.Updated, *req.Original)
	} else {
		//nolint:staticcheck // kept for clients that do not send the original
		err = h.tracker.Expenses.UpdateExpenseInPlace(req.Updated)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteExpense removes the expense described by the request body.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	var e models.Expense
	if err := decode(r, &e); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.tracker.Expenses.DeleteExpense(e); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns the category registry.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": h.tracker.Expenses.GetCategories()})
}

// CreateCategory registers a category.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.tracker.Expenses.AddCategory(req.Name); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ListCategories(w, r)
}

// RenameCategory moves all expenses of one category to another name.
func (h *Handlers) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Old string `json:"old"`
		New string `json:"new"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.tracker.Expenses.RenameCategory(req.Old, req.New); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ListCategories(w, r)
}

// DeleteCategory removes a category together with all of its expenses.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Expenses.DeleteCategory(r.PathValue("name")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type amountRequest struct {
	Amount *float64 `json:"amount"`
}

func decodeAmount(r *http.Request) (float64, error) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		return 0, err
	}
	if req.Amount == nil {
		return 0, errors.New("amount is required")
	}
	return *req.Amount, nil
}

// GetIncome returns every month's income and the universal income.
func (h *Handlers) GetIncome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"months":    h.tracker.Income.Data().Months,
		"universal": h.tracker.Income.GetUniversalIncome(),
	})
}

// SetMonthlyIncome records the income of one month.
func (h *Handlers) SetMonthlyIncome(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if !validMonth(month) {
		badRequest(w, "month must be YYYY-MM")
		return
	}
	amount, err := decodeAmount(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.tracker.Income.SetMonthlyIncome(month, amount); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetUniversalIncome applies one income to every month.
func (h *Handlers) SetUniversalIncome(w http.ResponseWriter, r *http.Request) {
	amount, err := decodeAmount(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.tracker.Income.SetUniversalIncome(amount); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMonthlyIncome forgets the income of one month.
func (h *Handlers) DeleteMonthlyIncome(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Income.DeleteMonthlyIncome(r.PathValue("month")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the combined export file.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	blob, err := h.tracker.Export()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="spending-tracker-data.json"`)
	_, _ = w.Write([]byte(blob))
}

// Import replaces stored data with an uploaded export file.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxImportSize)
	if err := h.tracker.ImportReader(body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "import file too large"})
			return
		}
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Split records one person's share of a shared bill.
func (h *Handlers) Split(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Total       float64 `json:"total"`
		Count       int     `json:"count"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Total <= 0 || req.Count <= 0 {
		badRequest(w, "total and count must be positive")
		return
	}
	if err := h.tracker.AddSplitExpense(req.Total, req.Count, req.Category, req.Description); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"share": tracker.SplitShare(req.Total, req.Count)})
}
